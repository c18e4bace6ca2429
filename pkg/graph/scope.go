package graph

import (
	"github.com/vango-dev/ssr/pkg/hydration"
	"github.com/vango-dev/ssr/pkg/vdom"
)

// RenderFunc renders a component for the given scope.
type RenderFunc func(s *Scope) *vdom.VNode

// funcComponent is a plain component.
type funcComponent struct {
	name   string
	render RenderFunc
}

func (c *funcComponent) ComponentName() string { return c.name }

// suspenseComponent is a suspense boundary: it renders body, and shows
// fallback in its place while any server future under it is outstanding.
type suspenseComponent struct {
	body     RenderFunc
	fallback RenderFunc
}

func (c *suspenseComponent) ComponentName() string { return "SuspenseBoundary" }

// C returns a component node. Components are matched to their previous
// scope by position and name when a parent re-renders.
func C(name string, render RenderFunc) *vdom.VNode {
	return &vdom.VNode{
		Kind: vdom.KindComponent,
		Comp: &funcComponent{name: name, render: render},
	}
}

// Suspense returns a suspense boundary node. While any server future started
// inside body (and not inside a nested boundary) is outstanding, the
// boundary renders fallback instead of body.
func Suspense(fallback, body RenderFunc) *vdom.VNode {
	return &vdom.VNode{
		Kind: vdom.KindComponent,
		Comp: &suspenseComponent{body: body, fallback: fallback},
	}
}

// Scope is one mounted component.
type Scope struct {
	id     ScopeID
	parent *Scope
	graph  *Graph
	comp   vdom.Component

	node     *vdom.VNode
	children []*Scope

	// mounting state for the render in progress
	childIdx int
	hooks    []any
	hookIdx  int

	values    map[any]any
	errors    *ErrorContext
	suspense  *SuspenseContext
	hydration *hydration.Context

	// tasks started by this scope's server futures
	tasks []*task

	renders   int
	unmounted bool
}

// ID returns the scope ID.
func (s *Scope) ID() ScopeID { return s.id }

// Name returns the component name.
func (s *Scope) Name() string { return s.comp.ComponentName() }

// Parent returns the parent scope, or nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Graph returns the graph the scope belongs to.
func (s *Scope) Graph() *Graph { return s.graph }

// Node returns the VNode the scope currently shows. For a suspended
// boundary this is the fallback.
func (s *Scope) Node() *vdom.VNode { return s.node }

// Suspense returns the scope's suspense context, or nil when the scope is
// not a suspense boundary.
func (s *Scope) Suspense() *SuspenseContext { return s.suspense }

// Renders returns how many times the scope has rendered.
func (s *Scope) Renders() int { return s.renders }

// Hydration returns the hydration context published by this scope, creating
// it on first use.
func (s *Scope) Hydration() *hydration.Context {
	if s.hydration == nil {
		s.hydration = hydration.New()
	}
	return s.hydration
}

// OwnHydration returns the scope's own hydration context without creating
// one. Ancestors are not consulted.
func (s *Scope) OwnHydration() *hydration.Context {
	return s.hydration
}

// nearestBoundary returns the closest suspense boundary at or above s.
func (s *Scope) nearestBoundary() *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.suspense != nil {
			return cur
		}
	}
	return nil
}

// inFrozenBoundary reports whether the closest boundary at or above s has
// been frozen. Such scopes are never rendered again.
func (s *Scope) inFrozenBoundary() bool {
	b := s.nearestBoundary()
	return b != nil && b.suspense.frozen
}

// nextHook returns the hook slot for the current call, creating it with
// init on first render.
func (s *Scope) nextHook(init func() any) any {
	if s.hookIdx >= len(s.hooks) {
		s.hooks = append(s.hooks, init())
	}
	h := s.hooks[s.hookIdx]
	s.hookIdx++
	return h
}

func (g *Graph) renderScope(s *Scope) {
	s.hookIdx = 0
	s.childIdx = 0
	s.renders++

	var node *vdom.VNode
	switch c := s.comp.(type) {
	case *funcComponent:
		node = c.render(s)
		g.mountChildren(s, node)
	case *suspenseComponent:
		body := c.body(s)
		g.mountChildren(s, body)
		if s.suspense.HasSuspendedTasks() {
			s.suspense.suspended = body
			node = c.fallback(s)
			g.mountChildren(s, node)
		} else {
			s.suspense.suspended = nil
			node = body
		}
	}
	if node == nil {
		node = vdom.Fragment()
	}
	s.node = node

	// Children past the last mounted position are gone.
	for _, stale := range s.children[s.childIdx:] {
		g.unmount(stale)
	}
	s.children = s.children[:s.childIdx]
}

// mountChildren mounts every component node in node's subtree as a child of
// s, reusing the scope previously mounted at the same position when the
// component name matches.
func (g *Graph) mountChildren(s *Scope, node *vdom.VNode) {
	vdom.Walk(node, func(n *vdom.VNode) bool {
		if n.Kind != vdom.KindComponent {
			return true
		}
		var child *Scope
		if s.childIdx < len(s.children) {
			prev := s.children[s.childIdx]
			if prev.comp.ComponentName() == n.Comp.ComponentName() {
				prev.comp = n.Comp
				child = prev
			} else {
				g.unmount(prev)
			}
		}
		if child == nil {
			child = g.newScope(s, n.Comp)
			if s.childIdx < len(s.children) {
				s.children[s.childIdx] = child
			} else {
				s.children = append(s.children, child)
			}
		}
		s.childIdx++
		n.Scope = uint64(child.id)

		if !child.suspenseFrozen() {
			g.renderScope(child)
		}
		return false
	})
}

func (s *Scope) suspenseFrozen() bool {
	return s.suspense != nil && s.suspense.frozen
}
