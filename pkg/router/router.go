package router

import (
	"fmt"

	"github.com/vango-dev/ssr/pkg/graph"
	"github.com/vango-dev/ssr/pkg/vdom"
)

// PageFunc renders the page of a matched route.
type PageFunc func(s *graph.Scope, p Params) *vdom.VNode

// Route is a registered page.
type Route struct {
	Pattern string
	page    PageFunc
}

// Match is the result of a successful lookup.
type Match struct {
	Route  *Route
	Params Params
	// Path is the canonical form of the matched path.
	Path string
}

// ParseRouteError reports a path that no route accepts.
type ParseRouteError struct {
	Route string
	Err   error
}

func (e *ParseRouteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to parse route %q: no route matches", e.Route)
	}
	return fmt.Sprintf("failed to parse route %q: %v", e.Route, e.Err)
}

func (e *ParseRouteError) Unwrap() error { return e.Err }

// Router maps paths to pages.
type Router struct {
	root   *routeNode
	routes []*Route
}

// New creates an empty router.
func New() *Router {
	return &Router{root: &routeNode{}}
}

// Page registers page under pattern. Registering a pattern twice replaces
// the earlier page.
func (r *Router) Page(pattern string, page PageFunc) *Router {
	node := r.root.insert(pattern)
	if node.route != nil {
		node.route.page = page
		return r
	}
	node.route = &Route{Pattern: pattern, page: page}
	r.routes = append(r.routes, node.route)
	return r
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []*Route {
	return r.routes
}

// Match looks up path. Failures are *ParseRouteError.
func (r *Router) Match(path string) (*Match, error) {
	canonical, _, err := CanonicalizePath(path)
	if err != nil {
		return nil, &ParseRouteError{Route: path, Err: err}
	}

	segments := splitPath(canonical)
	params := make(Params)
	node, err := r.root.match(segments, params)
	if node == nil {
		return nil, &ParseRouteError{Route: path, Err: err}
	}
	return &Match{Route: node.route, Params: params, Path: canonical}, nil
}

// Component returns the router as a component node. It renders the page
// for the MemoryHistory provided above it ("/" without one) and commits the
// initial streaming chunk once routing is decided.
func (r *Router) Component() *vdom.VNode {
	return graph.C("Router", r.render)
}

func (r *Router) render(s *graph.Scope) *vdom.VNode {
	path := "/"
	if h, ok := graph.Consume[*MemoryHistory](s); ok {
		path = h.Current()
	}

	m, err := r.Match(path)
	if err != nil {
		s.Throw(err)
		graph.CommitInitialChunk(s)
		return vdom.Fragment()
	}
	graph.CommitInitialChunk(s)

	page := m.Route.page
	params := m.Params
	return graph.C("Route "+m.Route.Pattern, func(s *graph.Scope) *vdom.VNode {
		return page(s, params)
	})
}
