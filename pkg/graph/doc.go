// Package graph is the component runtime the SSR engine renders.
//
// A Graph is a tree of scopes. Each scope is one mounted component: it owns
// the VNode the component last rendered, its hook slots, the context values
// it provides, an optional error context and, for suspense boundaries, a
// SuspenseContext.
//
// Components suspend by calling UseServerFuture. The fetch runs in its own
// goroutine; when it finishes the result is queued and applied by the
// goroutine that owns the graph:
//
//	for g.SuspendedTasksRemaining() {
//	    if err := g.WaitForSuspenseWork(ctx); err != nil {
//	        return err
//	    }
//	    for _, id := range g.RenderSuspenseImmediate() {
//	        // id is a suspense boundary that just resolved
//	    }
//	}
//
// Apart from the work queue, a Graph is not safe for concurrent use. It is
// owned by exactly one render session.
package graph
