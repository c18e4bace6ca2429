package graph

import (
	"context"
	"sync"

	"github.com/vango-dev/ssr/pkg/vdom"
)

// ScopeID identifies a mounted scope.
type ScopeID uint64

// RootScope is the ID of the root scope of every graph.
const RootScope ScopeID = 1

// Graph is a mounted component tree.
type Graph struct {
	root   *Scope
	scopes map[ScopeID]*Scope
	nextID ScopeID

	// pending holds every task that has not been applied yet.
	pending map[*task]struct{}

	// orphaned holds boundaries that lost tasks to an unmount since the last
	// RenderSuspenseImmediate.
	orphaned []*Scope

	// Tasks that finished but have not been applied. Guarded by readyMu;
	// this is the only state touched by fetch goroutines.
	readyMu sync.Mutex
	ready   []*task
	notify  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	built  bool
}

// New creates a graph whose root scope renders with root. Server futures
// started by the graph run under ctx; Close cancels them.
func New(ctx context.Context, root RenderFunc) *Graph {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	g := &Graph{
		scopes:  make(map[ScopeID]*Scope),
		pending: make(map[*task]struct{}),
		notify:  make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	g.root = g.newScope(nil, &funcComponent{name: "Root", render: root})
	g.root.errors = &ErrorContext{}
	return g
}

// Root returns the root scope.
func (g *Graph) Root() *Scope {
	return g.root
}

// Scope returns the mounted scope with the given ID, or nil.
func (g *Graph) Scope(id ScopeID) *Scope {
	return g.scopes[id]
}

// Rebuild renders the whole tree from the root. The first call mounts every
// component and starts their server futures.
func (g *Graph) Rebuild() {
	g.built = true
	g.renderScope(g.root)
}

// Built reports whether Rebuild has run.
func (g *Graph) Built() bool {
	return g.built
}

// Close cancels all outstanding server futures. Results that arrive later
// are discarded.
func (g *Graph) Close() {
	g.cancel()
}

// SuspendedTasksRemaining reports whether any server future is outstanding,
// or a boundary still has to be revisited after losing its tasks.
func (g *Graph) SuspendedTasksRemaining() bool {
	return len(g.pending) > 0 || len(g.orphaned) > 0
}

// WaitForSuspenseWork blocks until at least one server future has finished,
// no futures are outstanding, or ctx is done.
func (g *Graph) WaitForSuspenseWork(ctx context.Context) error {
	for {
		g.readyMu.Lock()
		n := len(g.ready)
		g.readyMu.Unlock()
		if n > 0 || len(g.pending) == 0 || len(g.orphaned) > 0 {
			return nil
		}
		select {
		case <-g.notify:
		case <-ctx.Done():
			return ctx.Err()
		case <-g.ctx.Done():
			return g.ctx.Err()
		}
	}
}

// RenderSuspenseImmediate applies every finished server future, re-renders
// the scopes that own them and returns the suspense boundaries that resolved
// as a result, in the order their last task became ready.
func (g *Graph) RenderSuspenseImmediate() []ScopeID {
	g.readyMu.Lock()
	ready := g.ready
	g.ready = nil
	g.readyMu.Unlock()

	var dirty, touched []*Scope
	isDirty := make(map[*Scope]bool)
	isTouched := make(map[*Scope]bool)
	touch := func(b *Scope) {
		if b != nil && !isTouched[b] {
			isTouched[b] = true
			touched = append(touched, b)
		}
	}
	for _, t := range ready {
		if _, ok := g.pending[t]; !ok {
			continue
		}
		delete(g.pending, t)
		if t.boundary != nil {
			t.boundary.suspense.removeTask(t)
		}
		touch(t.boundary)
		if t.scope.unmounted {
			continue
		}
		t.apply()
		if !isDirty[t.scope] {
			isDirty[t.scope] = true
			dirty = append(dirty, t.scope)
		}
	}

	for _, s := range dirty {
		if s.unmounted || s.inFrozenBoundary() {
			continue
		}
		g.renderScope(s)
	}

	// Re-rendering may unmount scopes whose futures were still running.
	for len(g.orphaned) > 0 {
		b := g.orphaned[0]
		g.orphaned = g.orphaned[1:]
		touch(b)
	}

	var resolved []ScopeID
	for _, b := range touched {
		if b.unmounted || b.suspense.frozen || b.suspense.HasSuspendedTasks() {
			continue
		}
		g.renderScope(b)
		if !b.suspense.HasSuspendedTasks() {
			resolved = append(resolved, b.id)
		}
	}
	return resolved
}

// WaitForSuspense runs suspense work until no server future is outstanding.
func (g *Graph) WaitForSuspense(ctx context.Context) error {
	for g.SuspendedTasksRemaining() {
		if err := g.WaitForSuspenseWork(ctx); err != nil {
			return err
		}
		g.RenderSuspenseImmediate()
	}
	return nil
}

func (g *Graph) newScope(parent *Scope, comp vdom.Component) *Scope {
	g.nextID++
	s := &Scope{
		id:     g.nextID,
		parent: parent,
		graph:  g,
		comp:   comp,
	}
	if sc, ok := comp.(*suspenseComponent); ok {
		s.suspense = &SuspenseContext{scope: s, fallback: sc.fallback}
	}
	g.scopes[s.id] = s
	return s
}

func (g *Graph) unmount(s *Scope) {
	s.unmounted = true
	delete(g.scopes, s.id)
	for _, t := range s.tasks {
		if _, ok := g.pending[t]; !ok {
			continue
		}
		delete(g.pending, t)
		if b := t.boundary; b != nil {
			b.suspense.removeTask(t)
			if !b.unmounted {
				g.orphaned = append(g.orphaned, b)
			}
		}
	}
	s.tasks = nil
	for _, child := range s.children {
		g.unmount(child)
	}
	s.children = nil
}

func (g *Graph) addTask(t *task) {
	g.pending[t] = struct{}{}
	t.scope.tasks = append(t.scope.tasks, t)
	if t.boundary != nil {
		t.boundary.suspense.addTask(t)
	}
}

// complete queues a finished task. Called from fetch goroutines.
func (g *Graph) complete(t *task) {
	if g.ctx.Err() != nil {
		return
	}
	g.readyMu.Lock()
	g.ready = append(g.ready, t)
	g.readyMu.Unlock()
	select {
	case g.notify <- struct{}{}:
	default:
	}
}
