package ssr

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/ssr/pkg/graph"
	"github.com/vango-dev/ssr/pkg/hydration"
	"github.com/vango-dev/ssr/pkg/isr"
	"github.com/vango-dev/ssr/pkg/render"
	"github.com/vango-dev/ssr/pkg/router"
	"github.com/vango-dev/ssr/pkg/vdom"
)

const testIndex = `<html><head><title>Test</title></head><body><div id="main"></div></body></html>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, streaming bool) RenderConfig {
	t.Helper()
	idx, err := render.ParseIndex(testIndex)
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	return RenderConfig{Template: render.PageTemplate{Index: idx}, Streaming: streaming}
}

func newTestState(t *testing.T, cache *isr.IncrementalRenderer) *State {
	t.Helper()
	return NewState(Options{
		Incremental: cache,
		Executor:    NewExecutor(4),
		Logger:      testLogger(),
	})
}

func newMemoryCache(t *testing.T) *isr.IncrementalRenderer {
	t.Helper()
	cache, err := isr.New(isr.Config{MemoryCacheLimit: 1 << 20, Logger: testLogger()})
	if err != nil {
		t.Fatalf("isr.New: %v", err)
	}
	t.Cleanup(cache.Close)
	return cache
}

// gate is a server future that finishes when released.
type gate struct {
	ch    chan struct{}
	value string
	err   error
}

func newGate(value string) *gate {
	return &gate{ch: make(chan struct{}), value: value}
}

func (g *gate) fetch(ctx context.Context) (string, error) {
	select {
	case <-g.ch:
		return g.value, g.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gate) release() { close(g.ch) }

func text(s string) graph.RenderFunc {
	return func(*graph.Scope) *vdom.VNode { return vdom.Text(s) }
}

// loading returns a suspense boundary that shows "loading <name>" until g
// is released and then <p>value</p>.
func loading(name string, g *gate) *vdom.VNode {
	return graph.Suspense(text("loading "+name), func(s *graph.Scope) *vdom.VNode {
		f := graph.UseServerFuture(s, g.fetch)
		if !f.Ready() {
			return vdom.Text("pending")
		}
		if f.Err() != nil {
			return vdom.P(vdom.Text("failed"))
		}
		return vdom.P(vdom.Text(f.Value()))
	})
}

// streamingApp commits the initial chunk right away, as a router does.
func streamingApp(body graph.RenderFunc) GraphFactory {
	return App(func(s *graph.Scope) *vdom.VNode {
		graph.CommitInitialChunk(s)
		return body(s)
	})
}

func blogRouter() *router.Router {
	return router.New().
		Page("/", func(*graph.Scope, router.Params) *vdom.VNode {
			return vdom.H1(vdom.Text("Home"))
		}).
		Page("/blog/:id:int/", func(s *graph.Scope, p router.Params) *vdom.VNode {
			n, _ := p.Int("id")
			if doc, ok := UseDocument(s); ok {
				doc.SetTitle("Post " + p.Get("id"))
			}
			return vdom.Table(vdom.Tbody(vdom.Repeat(n, func(i int) *vdom.VNode {
				return vdom.Tr(vdom.Repeat(n, func(j int) *vdom.VNode {
					return vdom.Td(vdom.Textf("%d", (i+1)*(j+1)))
				}))
			})))
		})
}

func blogApp() GraphFactory {
	r := blogRouter()
	return App(func(*graph.Scope) *vdom.VNode { return r.Component() })
}

func readNext(t *testing.T, stream *ChunkStream) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	chunk, err := stream.Next(ctx)
	if err == context.DeadlineExceeded {
		t.Fatal("timed out waiting for a chunk")
	}
	return chunk, err
}

func readAll(t *testing.T, stream *ChunkStream) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	chunks, err := collect(ctx, stream)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	return chunks
}

var (
	placeholderRE = regexp.MustCompile(`data-ssr-mount="(M\d+)"`)
	resolveRE     = regexp.MustCompile(`window\.__ssr_resolve\("(M\d+)","([^"]*)"`)
)

func placeholders(chunk string) []string {
	var ids []string
	for _, m := range placeholderRE.FindAllStringSubmatch(chunk, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// resolutions returns the mount and decoded hydration data of every
// replacement script in chunk.
func resolutions(t *testing.T, chunk string) map[string][]string {
	t.Helper()
	out := make(map[string][]string)
	for _, m := range resolveRE.FindAllStringSubmatch(chunk, -1) {
		values, err := hydration.Decode(m[2])
		if err != nil {
			t.Fatalf("decoding data of %s: %v", m[1], err)
		}
		var data []string
		for _, v := range values {
			data = append(data, string(v))
		}
		out[m[1]] = data
	}
	return out
}

func countOf(chunks []string, substr string) int {
	n := 0
	for _, c := range chunks {
		n += strings.Count(c, substr)
	}
	return n
}
