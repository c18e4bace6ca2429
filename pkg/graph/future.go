package graph

import (
	"context"
	"fmt"

	"github.com/vango-dev/ssr/internal/errors"
	"github.com/vango-dev/ssr/pkg/hydration"
)

type task struct {
	scope    *Scope
	boundary *Scope
	apply    func()
}

// Future is the state of a server future started by UseServerFuture.
type Future[T any] struct {
	value T
	err   error
	done  bool
}

// Ready reports whether the fetch has finished.
func (f *Future[T]) Ready() bool { return f.done }

// Value returns the fetched value. It is the zero value until Ready.
func (f *Future[T]) Value() T { return f.value }

// Err returns the fetch error, if any.
func (f *Future[T]) Err() error { return f.err }

// UseServerFuture starts fetch once, on the scope's first render, and
// returns its state. While the fetch is running the closest suspense
// boundary shows its fallback. On success the value is stored in the scope's
// hydration context so the client does not have to fetch it again; on
// failure the error is thrown at s.
func UseServerFuture[T any](s *Scope, fetch func(ctx context.Context) (T, error)) *Future[T] {
	loc := errors.Caller(1)
	return s.nextHook(func() any {
		f := &Future[T]{}
		var zero T
		slot := s.Hydration().Reserve(fmt.Sprintf("%T", zero), loc)
		startFuture(s, f, slot, fetch)
		return f
	}).(*Future[T])
}

func startFuture[T any](s *Scope, f *Future[T], slot *hydration.Slot, fetch func(ctx context.Context) (T, error)) {
	g := s.graph
	var (
		value T
		err   error
	)
	t := &task{scope: s, boundary: s.nearestBoundary()}
	t.apply = func() {
		f.value, f.err, f.done = value, err, true
		if err != nil {
			s.Throw(err)
			return
		}
		if ierr := slot.Insert(value); ierr != nil {
			s.Throw(ierr)
		}
	}
	g.addTask(t)

	ctx := g.ctx
	go func() {
		value, err = fetch(ctx)
		g.complete(t)
	}()
}
