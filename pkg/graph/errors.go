package graph

import "sync"

// ErrorContext accumulates errors thrown by the scopes under it.
type ErrorContext struct {
	mu     sync.Mutex
	errors []error
}

// Errors returns the captured errors in the order they were thrown.
func (c *ErrorContext) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errors))
	copy(out, c.errors)
	return out
}

// First returns the first captured error, or nil.
func (c *ErrorContext) First() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errors) == 0 {
		return nil
	}
	return c.errors[0]
}

// Insert records err.
func (c *ErrorContext) Insert(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.errors = append(c.errors, err)
	c.mu.Unlock()
}

// ErrorContext returns the error context that captures errors thrown at s:
// the closest one at or above s. The root always has one.
func (s *Scope) ErrorContext() *ErrorContext {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.errors != nil {
			return cur.errors
		}
	}
	return nil
}

// Throw records err in the closest error context.
func (s *Scope) Throw(err error) {
	if ec := s.ErrorContext(); ec != nil {
		ec.Insert(err)
	}
}

// StartCapturingErrors installs an error context on the scope, so errors
// thrown under it stop propagating to its ancestors. It is a no-op for an
// unknown scope or one that already captures.
func (g *Graph) StartCapturingErrors(id ScopeID) {
	s := g.scopes[id]
	if s == nil || s.errors != nil {
		return
	}
	s.errors = &ErrorContext{}
}

// RootErrors returns the errors captured by the root error context.
func (g *Graph) RootErrors() []error {
	return g.root.errors.Errors()
}
