package graph

import "github.com/vango-dev/ssr/pkg/vdom"

// SuspenseContext is the state of one suspense boundary.
type SuspenseContext struct {
	scope    *Scope
	fallback RenderFunc

	tasks  []*task
	frozen bool

	// suspended is the body rendered on the last pass while the boundary
	// still showed its fallback.
	suspended *vdom.VNode
}

// Scope returns the boundary scope.
func (c *SuspenseContext) Scope() *Scope { return c.scope }

// HasSuspendedTasks reports whether any server future under the boundary is
// outstanding.
func (c *SuspenseContext) HasSuspendedTasks() bool { return len(c.tasks) > 0 }

// SuspendedNodes returns the body that is hidden behind the fallback, or nil
// when the boundary shows its body.
func (c *SuspenseContext) SuspendedNodes() *vdom.VNode { return c.suspended }

// Freeze marks the boundary as sent. A frozen boundary and every scope under
// it up to the next boundary are never rendered again.
func (c *SuspenseContext) Freeze() { c.frozen = true }

// Frozen reports whether Freeze has been called.
func (c *SuspenseContext) Frozen() bool { return c.frozen }

func (c *SuspenseContext) addTask(t *task) {
	c.tasks = append(c.tasks, t)
}

func (c *SuspenseContext) removeTask(t *task) {
	for i, cur := range c.tasks {
		if cur == t {
			c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
			return
		}
	}
}
