package main

import (
	"context"
	"strconv"
	"time"

	"github.com/vango-dev/ssr/pkg/graph"
	"github.com/vango-dev/ssr/pkg/render"
	"github.com/vango-dev/ssr/pkg/router"
	"github.com/vango-dev/ssr/pkg/ssr"
	"github.com/vango-dev/ssr/pkg/vdom"
)

// Post is a blog post listed on the home page.
type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// PostSource loads the posts shown on the home page.
type PostSource func(ctx context.Context) ([]Post, error)

// slowPosts simulates a data source that answers after delay.
func slowPosts(delay time.Duration) PostSource {
	return func(ctx context.Context) ([]Post, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []Post{
			{ID: 1, Title: "Streaming the first chunk"},
			{ID: 2, Title: "Suspense boundaries"},
			{ID: 3, Title: "Incremental rendering"},
		}, nil
	}
}

// demoApp is the fullstack-router demo: a home page whose post list streams
// in when loaded, and /blog/:id/ pages that render an id×id table.
func demoApp(posts PostSource) ssr.GraphFactory {
	r := router.New().
		Page("/", func(s *graph.Scope, _ router.Params) *vdom.VNode {
			return homePage(s, posts)
		}).
		Page("/blog/:id:int/", blogPage)

	return ssr.App(func(*graph.Scope) *vdom.VNode {
		return r.Component()
	})
}

func homePage(s *graph.Scope, posts PostSource) *vdom.VNode {
	if doc, ok := ssr.UseDocument(s); ok {
		doc.SetTitle("Home")
		doc.AddMeta(render.MetaTag{Name: "description", Content: "Latest posts"})
	}

	return vdom.Main(
		vdom.H1(vdom.Text("Latest posts")),
		graph.Suspense(
			func(*graph.Scope) *vdom.VNode { return vdom.P(vdom.Text("Loading posts…")) },
			func(s *graph.Scope) *vdom.VNode { return postList(s, posts) },
		),
	)
}

func postList(s *graph.Scope, posts PostSource) *vdom.VNode {
	f := graph.UseServerFuture(s, posts)
	if !f.Ready() {
		return nil
	}
	if f.Err() != nil {
		return vdom.P(vdom.Text("Posts are unavailable right now."))
	}

	history, _ := graph.Consume[*router.MemoryHistory](s)
	list := f.Value()
	return vdom.Ul(vdom.Repeat(len(list), func(i int) *vdom.VNode {
		p := list[i]
		href := "/blog/" + strconv.Itoa(p.ID) + "/"
		if history != nil {
			href = history.Href(href)
		}
		return vdom.Li(vdom.A(vdom.Href(href), vdom.Text(p.Title)))
	}))
}

func blogPage(s *graph.Scope, params router.Params) *vdom.VNode {
	var p struct {
		ID int `param:"id"`
	}
	if err := params.Decode(&p); err != nil {
		s.Throw(err)
		return nil
	}
	if doc, ok := ssr.UseDocument(s); ok {
		doc.SetTitle("Post " + strconv.Itoa(p.ID))
	}

	return vdom.Main(
		vdom.H1(vdom.Textf("Post %d", p.ID)),
		vdom.Table(vdom.Tbody(vdom.Repeat(p.ID, func(i int) *vdom.VNode {
			return vdom.Tr(vdom.Repeat(p.ID, func(j int) *vdom.VNode {
				return vdom.Td(vdom.Textf("%d", (i+1)*(j+1)))
			}))
		}))),
	)
}
