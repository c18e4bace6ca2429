package ssr

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	verrors "github.com/vango-dev/ssr/internal/errors"
	"github.com/vango-dev/ssr/pkg/graph"
	"github.com/vango-dev/ssr/pkg/vdom"
)

func TestBlogRouteRendersSingleChunkAndCaches(t *testing.T) {
	cache := newMemoryCache(t)
	state := newTestState(t, cache)
	ctx := context.Background()

	_, stream, err := state.Render(ctx, "/blog/3", testConfig(t, true), blogApp(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	chunks := readAll(t, stream)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1: %q", len(chunks), chunks)
	}
	page := chunks[0]

	if got := strings.Count(page, "<tr>"); got != 3 {
		t.Errorf("rows = %d, want 3", got)
	}
	if got := strings.Count(page, "<td>"); got != 9 {
		t.Errorf("cells = %d, want 9", got)
	}
	if strings.Contains(page, "data-ssr-mount") {
		t.Error("a page without suspense must not contain placeholders")
	}
	if !strings.Contains(page, "<title>Post 3</title>") {
		t.Error("title set by the page is missing")
	}
	if !strings.HasSuffix(page, "</body></html>") {
		t.Errorf("page does not end the document: %q", page[len(page)-40:])
	}

	entry, _, err := cache.Get(ctx, "/blog/3")
	if err != nil || entry == nil {
		t.Fatalf("cache entry = %v, %v", entry, err)
	}
	if string(entry.HTML) != page {
		t.Errorf("cached page differs from the streamed page:\n%s\n%s", entry.HTML, page)
	}
}

func TestCacheIdempotence(t *testing.T) {
	cache := newMemoryCache(t)
	state := newTestState(t, cache)
	ctx := context.Background()
	config := testConfig(t, true)

	_, stream, err := state.Render(ctx, "/blog/4/", config, blogApp(), nil)
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	readAll(t, stream)
	first, _, _ := cache.Get(ctx, "/blog/4")
	if first == nil {
		t.Fatal("first render was not cached")
	}

	calls := 0
	counting := func(ctx context.Context) *graph.Graph {
		calls++
		return blogApp()(ctx)
	}
	freshness, stream, err := state.Render(ctx, "/blog/4", config, counting, nil)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	chunks := readAll(t, stream)
	if calls != 0 {
		t.Error("a cache hit must not build a graph")
	}
	if len(chunks) != 1 || chunks[0] != string(first.HTML) {
		t.Errorf("cache hit = %q, want the cached page", chunks)
	}
	if !freshness.Timestamp().Equal(first.Timestamp) {
		t.Errorf("freshness timestamp = %v, want %v", freshness.Timestamp(), first.Timestamp)
	}
}

func TestSuspendedChildStreamsReplacement(t *testing.T) {
	g := newGate(`"hello"`)
	app := streamingApp(func(*graph.Scope) *vdom.VNode {
		return vdom.Main(loading("greeting", g))
	})

	state := newTestState(t, nil)
	_, stream, err := state.Render(context.Background(), "/", testConfig(t, true), app, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	initial, err := readNext(t, stream)
	if err != nil {
		t.Fatalf("initial chunk: %v", err)
	}
	if got := placeholders(initial); len(got) != 1 || got[0] != "M1" {
		t.Fatalf("placeholders = %v, want [M1]", got)
	}
	if !strings.Contains(initial, "loading greeting") {
		t.Error("placeholder should contain the fallback")
	}
	if !strings.Contains(initial, "window.__ssr_hydration_data=") {
		t.Error("initial chunk should carry the root hydration data")
	}
	if strings.Contains(initial, "</body>") {
		t.Error("document must stay open while boundaries are pending")
	}

	g.release()
	replacement, err := readNext(t, stream)
	if err != nil {
		t.Fatalf("replacement chunk: %v", err)
	}
	if !strings.Contains(replacement, `<div id="ssr-resolved-M1" hidden><p>&quot;hello&quot;</p></div>`) {
		t.Errorf("replacement markup missing: %q", replacement)
	}
	data := resolutions(t, replacement)["M1"]
	if len(data) != 2 || data[0] != "null" || data[1] != `"\"hello\""` {
		t.Errorf("M1 data = %v", data)
	}
	if !strings.HasSuffix(replacement, "</body></html>") {
		t.Error("last chunk should end the document")
	}

	if _, err := readNext(t, stream); err != io.EOF {
		t.Errorf("after the last chunk got %v, want io.EOF", err)
	}
}

func TestEveryPlaceholderIsReplacedOnce(t *testing.T) {
	gates := []*gate{newGate("a"), newGate("b"), newGate("c")}
	app := streamingApp(func(*graph.Scope) *vdom.VNode {
		return vdom.Div(
			loading("a", gates[0]),
			vdom.Section(loading("b", gates[1])),
			loading("c", gates[2]),
		)
	})

	state := newTestState(t, nil)
	_, stream, err := state.Render(context.Background(), "/", testConfig(t, true), app, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	initial, _ := readNext(t, stream)
	mounts := placeholders(initial)
	if len(mounts) != 3 {
		t.Fatalf("placeholders = %v, want 3", mounts)
	}

	for _, i := range []int{2, 0, 1} {
		gates[i].release()
	}
	rest := readAll(t, stream)

	for _, m := range mounts {
		if n := countOf(rest, `window.__ssr_resolve("`+m+`"`); n != 1 {
			t.Errorf("%s replaced %d times, want 1", m, n)
		}
	}
	if n := countOf(rest, "data-ssr-mount"); n != 0 {
		t.Errorf("replacements introduced %d new placeholders", n)
	}
}

func TestFrozenBoundaryIsNotRenderedAgain(t *testing.T) {
	outerGate := newGate("outer")
	innerGate := newGate("")
	innerGate.err = errors.New("inner fetch failed")

	var outer *graph.Scope
	outerRenders := 0
	app := streamingApp(func(*graph.Scope) *vdom.VNode {
		return graph.Suspense(text("loading outer"), func(s *graph.Scope) *vdom.VNode {
			outer = s
			outerRenders++
			f := graph.UseServerFuture(s, outerGate.fetch)
			if !f.Ready() {
				return vdom.Text("pending")
			}
			return vdom.Div(vdom.Text(f.Value()), loading("inner", innerGate))
		})
	})

	state := newTestState(t, nil)
	_, stream, err := state.Render(context.Background(), "/", testConfig(t, true), app, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := readNext(t, stream); err != nil {
		t.Fatalf("initial chunk: %v", err)
	}

	outerGate.release()
	outerChunk, err := readNext(t, stream)
	if err != nil {
		t.Fatalf("outer chunk: %v", err)
	}
	if _, ok := resolutions(t, outerChunk)["M1"]; !ok {
		t.Fatalf("expected the M1 replacement, got %q", outerChunk)
	}
	if got := placeholders(outerChunk); len(got) != 1 || got[0] != "M2" {
		t.Fatalf("nested placeholders = %v, want [M2]", got)
	}
	rendersAtFreeze := outerRenders

	innerGate.release()
	rest := readAll(t, stream)
	if len(rest) != 1 {
		t.Fatalf("got %d chunks after the inner failure, want 1", len(rest))
	}
	if n := countOf(rest, "ssr-resolved-M1"); n != 0 {
		t.Error("frozen boundary was sent again")
	}
	if !outer.Suspense().Frozen() {
		t.Error("resolved boundary should be frozen")
	}
	if outerRenders != rendersAtFreeze {
		t.Errorf("frozen boundary rendered %d more times", outerRenders-rendersAtFreeze)
	}

	inner := resolutions(t, rest[0])["M2"]
	if len(inner) == 0 || !strings.Contains(inner[0], "inner fetch failed") {
		t.Errorf("inner error missing from M2 payload: %v", inner)
	}
	if !strings.Contains(rest[0], "<p>failed</p>") {
		t.Errorf("inner boundary should render its failure: %q", rest[0])
	}
}

func TestRoutingErrorEmitsNoChunks(t *testing.T) {
	state := newTestState(t, nil)
	_, stream, err := state.Render(context.Background(), "/missing", testConfig(t, true), blogApp(), nil)
	if stream != nil {
		t.Error("a failed render must not return a stream")
	}

	var re *RoutingError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v (%T), want *RoutingError", err, err)
	}
	if verrors.FromError(err, "").Code != "E101" {
		t.Errorf("code = %q, want E101", verrors.FromError(err, "").Code)
	}
	if !IsRoutingError(err) {
		t.Error("IsRoutingError = false")
	}
}

func TestRenderingErrorEmitsNoChunks(t *testing.T) {
	app := App(func(s *graph.Scope) *vdom.VNode {
		s.Throw(errors.New("database unavailable"))
		s.Throw(errors.New("cache unavailable"))
		return vdom.Text("partial")
	})

	state := newTestState(t, nil)
	_, stream, err := state.Render(context.Background(), "/", testConfig(t, true), app, nil)
	if stream != nil {
		t.Error("a failed render must not return a stream")
	}

	var re *RenderingError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v (%T), want *RenderingError", err, err)
	}
	if IsRoutingError(err) {
		t.Error("a rendering failure is not a routing failure")
	}
	for _, want := range []string{"database unavailable", "cache unavailable"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestFailureAfterStreamingEndsStreamWithError(t *testing.T) {
	g := newGate("x")
	app := streamingApp(func(*graph.Scope) *vdom.VNode {
		return graph.Suspense(text("loading"), func(s *graph.Scope) *vdom.VNode {
			if !graph.UseServerFuture(s, g.fetch).Ready() {
				return vdom.Text("pending")
			}
			return &vdom.VNode{Kind: vdom.VKind(99)}
		})
	})

	state := newTestState(t, nil)
	_, stream, err := state.Render(context.Background(), "/", testConfig(t, true), app, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := readNext(t, stream); err != nil {
		t.Fatalf("initial chunk: %v", err)
	}

	g.release()
	_, err = readNext(t, stream)
	var re *RenderingError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RenderingError", err)
	}
	if verrors.FromError(err, "").Code != "E112" {
		t.Errorf("code = %q, want E112", verrors.FromError(err, "").Code)
	}
	if _, err := readNext(t, stream); err != io.EOF {
		t.Errorf("after the error chunk got %v, want io.EOF", err)
	}
}

func TestCloseCancelsSession(t *testing.T) {
	cache := newMemoryCache(t)
	g := newGate("never")
	cancelled := make(chan struct{})
	app := streamingApp(func(*graph.Scope) *vdom.VNode {
		return graph.Suspense(text("loading"), func(s *graph.Scope) *vdom.VNode {
			f := graph.UseServerFuture(s, func(ctx context.Context) (string, error) {
				v, err := g.fetch(ctx)
				if err != nil {
					close(cancelled)
				}
				return v, err
			})
			return vdom.Text(f.Value())
		})
	})

	state := newTestState(t, cache)
	_, stream, err := state.Render(context.Background(), "/slow", testConfig(t, true), app, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := readNext(t, stream); err != nil {
		t.Fatalf("initial chunk: %v", err)
	}

	stream.Close()
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("server future was not cancelled")
	}

	// The channel closes once the session has stopped.
	deadline := time.After(2 * time.Second)
	for open := true; open; {
		select {
		case c, ok := <-stream.Chunks():
			if ok && c.HTML != "" {
				t.Errorf("chunk after Close: %q", c.HTML)
			}
			open = ok
		case <-deadline:
			t.Fatal("session did not stop")
		}
	}

	if entry, _, _ := cache.Get(context.Background(), "/slow"); entry != nil {
		t.Error("a cancelled session must not write the cache")
	}
}

func TestNonStreamingWaitsForAllWork(t *testing.T) {
	g := newGate("ready")
	g.release()
	app := App(func(*graph.Scope) *vdom.VNode {
		return vdom.Main(loading("data", g))
	})

	state := newTestState(t, nil)
	_, stream, err := state.Render(context.Background(), "/", testConfig(t, false), app, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	chunks := readAll(t, stream)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if strings.Contains(chunks[0], "data-ssr-mount") || !strings.Contains(chunks[0], "<p>ready</p>") {
		t.Errorf("page = %q", chunks[0])
	}
}

func TestUncommittedPageWaitsForWork(t *testing.T) {
	g := newGate("late")
	app := App(func(*graph.Scope) *vdom.VNode {
		return loading("data", g)
	})

	state := newTestState(t, nil)
	go func() {
		time.Sleep(10 * time.Millisecond)
		g.release()
	}()
	_, stream, err := state.Render(context.Background(), "/", testConfig(t, true), app, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	chunks := readAll(t, stream)
	if len(chunks) != 1 || !strings.Contains(chunks[0], "<p>late</p>") {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestBasePathAndRequestContext(t *testing.T) {
	r := blogRouter()
	var seen string
	app := App(func(s *graph.Scope) *vdom.VNode {
		if req, ok := UseRequest(s); ok {
			seen = req.Header.Get("X-Test")
		}
		return r.Component()
	})

	config := testConfig(t, true)
	config.BasePath = "/app"
	req := &RequestContext{Header: map[string][]string{"X-Test": {"yes"}}}

	state := newTestState(t, nil)
	_, stream, err := state.Render(context.Background(), "/app/blog/2", config, app, req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	chunks := readAll(t, stream)
	if got := strings.Count(chunks[0], "<td>"); got != 4 {
		t.Errorf("cells = %d, want 4", got)
	}
	if seen != "yes" {
		t.Errorf("request header = %q, want yes", seen)
	}
}

func TestQueryRoutesBypassCache(t *testing.T) {
	cache := newMemoryCache(t)
	state := newTestState(t, cache)

	_, stream, err := state.Render(context.Background(), "/blog/2?draft=1", testConfig(t, true), blogApp(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	readAll(t, stream)
	if entry, _, _ := cache.Get(context.Background(), "/blog/2"); entry != nil {
		t.Error("routes with a query string must not be cached")
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseResolvingSuspense.String() != "resolving_suspense" || Phase(42).String() != "unknown" {
		t.Error("unexpected phase names")
	}
}

func TestUnmountedFetchDoesNotBlockReplacement(t *testing.T) {
	outer := newGate("outer")
	dropped := newGate("dropped")
	defer dropped.release()

	cache := newMemoryCache(t)
	app := streamingApp(func(*graph.Scope) *vdom.VNode {
		return graph.Suspense(text("loading"), func(s *graph.Scope) *vdom.VNode {
			f := graph.UseServerFuture(s, outer.fetch)
			if !f.Ready() {
				return graph.C("Dropped", func(s *graph.Scope) *vdom.VNode {
					graph.UseServerFuture(s, dropped.fetch)
					return vdom.Text("pending")
				})
			}
			return vdom.P(vdom.Text(f.Value()))
		})
	})

	state := newTestState(t, cache)
	_, stream, err := state.Render(context.Background(), "/", testConfig(t, true), app, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	initial, _ := readNext(t, stream)
	if got := placeholders(initial); len(got) != 1 || got[0] != "M1" {
		t.Fatalf("placeholders = %v, want [M1]", got)
	}

	outer.release()
	rest := readAll(t, stream)
	if n := countOf(rest, `window.__ssr_resolve("M1"`); n != 1 {
		t.Fatalf("M1 replaced %d times, want 1: %q", n, rest)
	}
	if !strings.Contains(rest[0], `<div id="ssr-resolved-M1" hidden><p>outer</p></div>`) {
		t.Errorf("replacement markup missing: %q", rest[0])
	}
	if !strings.HasSuffix(rest[len(rest)-1], "</body></html>") {
		t.Error("last chunk should end the document")
	}

	entry, _, err := cache.Get(context.Background(), "/")
	if err != nil || entry == nil {
		t.Fatalf("cache entry = %v, %v", entry, err)
	}
	if html := string(entry.HTML); !strings.Contains(html, "<p>outer</p>") || strings.Contains(html, "loading") {
		t.Errorf("cached page is not fully resolved: %s", html)
	}
}
