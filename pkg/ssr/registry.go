package ssr

import (
	"io"
	"sync"

	"github.com/vango-dev/ssr/pkg/graph"
	"github.com/vango-dev/ssr/pkg/render"
)

// pendingSuspenseBoundary is a placeholder that has been sent and not yet
// replaced.
type pendingSuspenseBoundary struct {
	mount render.Mount

	// children are the boundaries whose placeholders were written inside
	// this one, in render order.
	children []graph.ScopeID
}

// mountRegistry maps boundary scopes to their pending placeholders. A scope
// has an entry exactly while its placeholder is out and unreplaced.
type mountRegistry struct {
	mu      sync.RWMutex
	pending map[graph.ScopeID]*pendingSuspenseBoundary
}

func newMountRegistry() *mountRegistry {
	return &mountRegistry{pending: make(map[graph.ScopeID]*pendingSuspenseBoundary)}
}

func (r *mountRegistry) insert(id graph.ScopeID, b *pendingSuspenseBoundary) {
	r.mu.Lock()
	r.pending[id] = b
	r.mu.Unlock()
}

func (r *mountRegistry) get(id graph.ScopeID) (*pendingSuspenseBoundary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.pending[id]
	return b, ok
}

// addChildren records children under the pending boundary id, if it is
// still pending.
func (r *mountRegistry) addChildren(id graph.ScopeID, children []graph.ScopeID) {
	if len(children) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.pending[id]; ok {
		b.children = append(b.children, children...)
	}
}

func (r *mountRegistry) remove(id graph.ScopeID) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func (r *mountRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pending)
}

// nestingFrame is a boundary being rendered into, with the boundaries found
// inside it so far.
type nestingFrame struct {
	id       graph.ScopeID
	children []graph.ScopeID
}

// nestingStack attributes boundaries to the closest enclosing boundary while
// a frame is rendered. Pushes and pops are balanced within one render call.
type nestingStack struct {
	frames []nestingFrame
}

func (s *nestingStack) push(id graph.ScopeID) {
	s.frames = append(s.frames, nestingFrame{id: id})
}

// pop removes the top frame and returns the boundaries found inside it.
func (s *nestingStack) pop() []graph.ScopeID {
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top.children
}

// attach records id under the top frame. It reports false when the stack is
// empty, meaning id is a root boundary.
func (s *nestingStack) attach(id graph.ScopeID) bool {
	if len(s.frames) == 0 {
		return false
	}
	top := &s.frames[len(s.frames)-1]
	top.children = append(top.children, id)
	return true
}

// renderComponent is the renderer's component callback. Scopes that are
// suspense boundaries with outstanding work are written as placeholders and
// registered; everything else renders inline.
func (s *session) renderComponent(r *render.Renderer, w io.Writer, g *graph.Graph, id graph.ScopeID) error {
	scope := g.Scope(id)
	if scope == nil || !isSuspended(scope) {
		return r.RenderScope(w, g, id)
	}

	s.nesting.push(id)
	mount, err := s.streaming.RenderPlaceholder(w, func(w io.Writer) error {
		return r.RenderScope(w, g, id)
	})
	children := s.nesting.pop()
	if err != nil {
		return err
	}

	s.registry.insert(id, &pendingSuspenseBoundary{mount: mount, children: children})
	if !s.nesting.attach(id) {
		// Nothing was sent around a root boundary, so its errors cannot
		// travel to an ancestor's payload.
		g.StartCapturingErrors(id)
	}
	s.logger.Debug("suspense placeholder written", "scope", uint64(id), "mount", mount.String())
	return nil
}

// isSuspended reports whether scope is a suspense boundary still waiting on
// server futures.
func isSuspended(scope *graph.Scope) bool {
	sc := scope.Suspense()
	return sc != nil && sc.HasSuspendedTasks()
}
