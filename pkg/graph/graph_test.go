package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vango-dev/ssr/pkg/vdom"
)

// gate is a fetch that blocks until released.
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

func text(s string) RenderFunc {
	return func(*Scope) *vdom.VNode { return vdom.Text(s) }
}

func loader(g *gate) RenderFunc {
	return func(s *Scope) *vdom.VNode {
		f := UseServerFuture(s, g.fetch)
		if !f.Ready() {
			return vdom.Text("pending")
		}
		return vdom.Text(f.Value())
	}
}

func waitResolved(t *testing.T, g *Graph) []ScopeID {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.WaitForSuspenseWork(ctx); err != nil {
		t.Fatalf("WaitForSuspenseWork: %v", err)
	}
	return g.RenderSuspenseImmediate()
}

func TestRebuildMountsComponents(t *testing.T) {
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		return vdom.Div(C("A", text("a")), vdom.P(C("B", text("b"))))
	})
	defer g.Close()
	g.Rebuild()

	root := g.Root()
	if root.ID() != RootScope {
		t.Fatalf("root ID = %d, want %d", root.ID(), RootScope)
	}
	if len(root.children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.children))
	}
	if got := root.children[1].Name(); got != "B" {
		t.Errorf("second child = %q, want B", got)
	}
	if g.SuspendedTasksRemaining() {
		t.Error("no futures were started")
	}
}

func TestRerenderReusesScopes(t *testing.T) {
	showB := true
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		if showB {
			return vdom.Div(C("A", text("a")), C("B", text("b")))
		}
		return vdom.Div(C("A", text("a")))
	})
	defer g.Close()
	g.Rebuild()

	a := g.Root().children[0]
	b := g.Root().children[1]
	showB = false
	g.Rebuild()

	if g.Root().children[0] != a {
		t.Error("A should keep its scope")
	}
	if !b.unmounted || g.Scope(b.ID()) != nil {
		t.Error("B should be unmounted")
	}
}

func TestSuspenseShowsFallbackUntilResolved(t *testing.T) {
	data := newGate("loaded")
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		return Suspense(text("loading"), func(s *Scope) *vdom.VNode {
			return C("Loader", loader(data))
		})
	})
	defer g.Close()
	g.Rebuild()

	boundary := g.Root().children[0]
	if boundary.Suspense() == nil || !boundary.Suspense().HasSuspendedTasks() {
		t.Fatal("boundary should be suspended")
	}
	if got := boundary.Node().Text; got != "loading" {
		t.Errorf("boundary shows %q, want fallback", got)
	}
	if boundary.Suspense().SuspendedNodes() == nil {
		t.Error("suspended body should be kept")
	}

	data.release()
	resolved := waitResolved(t, g)
	if len(resolved) != 1 || resolved[0] != boundary.ID() {
		t.Fatalf("resolved = %v, want [%d]", resolved, boundary.ID())
	}
	if boundary.Suspense().SuspendedNodes() != nil {
		t.Error("resolved boundary should show its body")
	}
	loaderScope := g.Scope(ScopeID(boundary.Node().Scope))
	if loaderScope == nil || loaderScope.Node().Text != "loaded" {
		t.Errorf("loader not re-rendered with value")
	}
	if g.SuspendedTasksRemaining() {
		t.Error("no futures should remain")
	}
}

func TestNestedBoundaryResolvesIndependently(t *testing.T) {
	outer := newGate("outer")
	inner := newGate("inner")
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		return Suspense(text("outer loading"), func(s *Scope) *vdom.VNode {
			return vdom.Div(
				C("Outer", loader(outer)),
				Suspense(text("inner loading"), func(s *Scope) *vdom.VNode {
					return C("Inner", loader(inner))
				}),
			)
		})
	})
	defer g.Close()
	g.Rebuild()

	outerB := g.Root().children[0]
	var innerB *Scope
	for _, c := range outerB.children {
		if c.Suspense() != nil {
			innerB = c
		}
	}
	if innerB == nil {
		t.Fatal("inner boundary not mounted")
	}

	inner.release()
	resolved := waitResolved(t, g)
	if len(resolved) != 1 || resolved[0] != innerB.ID() {
		t.Fatalf("resolved = %v, want inner boundary only", resolved)
	}
	if !outerB.Suspense().HasSuspendedTasks() {
		t.Error("outer boundary should still be suspended")
	}

	outer.release()
	resolved = waitResolved(t, g)
	if len(resolved) != 1 || resolved[0] != outerB.ID() {
		t.Fatalf("resolved = %v, want outer boundary", resolved)
	}
}

func TestFrozenBoundaryIsNotRerendered(t *testing.T) {
	first := newGate("first")
	second := newGate("second")
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		return Suspense(text("loading"), func(s *Scope) *vdom.VNode {
			return vdom.Div(
				C("First", loader(first)),
				Suspense(text("later"), func(s *Scope) *vdom.VNode {
					return C("Second", loader(second))
				}),
			)
		})
	})
	defer g.Close()
	g.Rebuild()

	boundary := g.Root().children[0]
	first.release()
	waitResolved(t, g)
	boundary.Suspense().Freeze()
	renders := boundary.Renders()

	g.Rebuild()
	second.release()
	waitResolved(t, g)
	if boundary.Renders() != renders {
		t.Errorf("frozen boundary rendered %d more times", boundary.Renders()-renders)
	}
}

func TestThrowPropagatesToCapturingScope(t *testing.T) {
	fail := newGate("")
	fail.err = errors.New("fetch failed")
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		return Suspense(text("loading"), func(s *Scope) *vdom.VNode {
			return C("Loader", loader(fail))
		})
	})
	defer g.Close()
	g.Rebuild()

	boundary := g.Root().children[0]
	g.StartCapturingErrors(boundary.ID())
	fail.release()
	waitResolved(t, g)

	if len(g.RootErrors()) != 0 {
		t.Errorf("root captured %v", g.RootErrors())
	}
	if err := boundary.ErrorContext().First(); err == nil || err.Error() != "fetch failed" {
		t.Errorf("boundary error = %v", err)
	}
}

func TestThrowWithoutCaptureReachesRoot(t *testing.T) {
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		return C("Child", func(s *Scope) *vdom.VNode {
			s.Throw(errors.New("bad"))
			return nil
		})
	})
	defer g.Close()
	g.Rebuild()

	if errs := g.RootErrors(); len(errs) != 1 || errs[0].Error() != "bad" {
		t.Errorf("RootErrors = %v", errs)
	}
}

func TestContextValues(t *testing.T) {
	type theme string
	var got theme
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		return C("Child", func(s *Scope) *vdom.VNode {
			got, _ = Consume[theme](s)
			return nil
		})
	})
	defer g.Close()
	ProvideRootContext(g, theme("dark"))
	g.Rebuild()

	if got != "dark" {
		t.Errorf("Consume = %q, want dark", got)
	}
	if _, ok := ConsumeRootContext[int](g); ok {
		t.Error("int was never provided")
	}
}

func TestFutureStoresHydrationData(t *testing.T) {
	data := newGate("hello")
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		return Suspense(text("loading"), func(s *Scope) *vdom.VNode {
			return C("Loader", loader(data))
		})
	})
	defer g.Close()
	g.Rebuild()

	loaderScope := g.Root().children[0].children[0]
	hc := loaderScope.OwnHydration()
	if hc == nil || hc.Len() != 1 {
		t.Fatal("future should reserve one hydration entry")
	}
	if hc.Entries()[0].Value != nil {
		t.Error("entry should be unresolved before the fetch finishes")
	}

	data.release()
	waitResolved(t, g)
	if got := string(hc.Entries()[0].Value); got != `"hello"` {
		t.Errorf("entry = %s, want \"hello\"", got)
	}
}

func TestCloseDiscardsLateResults(t *testing.T) {
	data := newGate("late")
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		return Suspense(text("loading"), func(s *Scope) *vdom.VNode {
			return C("Loader", loader(data))
		})
	})
	g.Rebuild()
	g.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.WaitForSuspenseWork(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForSuspenseWork after Close = %v, want context.Canceled", err)
	}
}

func TestStreamingContext(t *testing.T) {
	sc := NewStreamingContext()
	if sc.Status() != RenderingInitialChunk {
		t.Error("new context should not be committed")
	}
	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		CommitInitialChunk(s)
		return nil
	})
	defer g.Close()
	ProvideRootContext(g, sc)
	g.Rebuild()

	select {
	case <-sc.Committed():
	default:
		t.Fatal("Committed channel should be closed")
	}
	sc.Commit()
	if sc.Status() != InitialChunkCommitted {
		t.Error("status should be committed")
	}
}

func TestUnmountedFutureReleasesBoundary(t *testing.T) {
	outer := newGate("outer")
	dropped := newGate("dropped")
	defer dropped.release()

	g := New(context.Background(), func(s *Scope) *vdom.VNode {
		return Suspense(text("loading"), func(s *Scope) *vdom.VNode {
			f := UseServerFuture(s, outer.fetch)
			if !f.Ready() {
				return C("Dropped", loader(dropped))
			}
			return vdom.Text(f.Value())
		})
	})
	defer g.Close()
	g.Rebuild()

	boundary := g.Root().children[0]
	if n := len(boundary.Suspense().tasks); n != 2 {
		t.Fatalf("boundary tasks = %d, want 2", n)
	}

	outer.release()
	resolved := waitResolved(t, g)
	if len(resolved) != 1 || resolved[0] != boundary.ID() {
		t.Fatalf("resolved = %v, want [%d]", resolved, boundary.ID())
	}
	if got := boundary.Node().Text; got != "outer" {
		t.Errorf("boundary shows %q, want its body", got)
	}
	if g.SuspendedTasksRemaining() {
		t.Error("the unmounted scope's future must not be waited for")
	}
}
