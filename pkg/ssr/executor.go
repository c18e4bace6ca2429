package ssr

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	verrors "github.com/vango-dev/ssr/internal/errors"
)

// Executor runs render sessions in the background.
type Executor interface {
	// Go runs fn on its own goroutine. It may block until a worker is
	// free, and fails when ctx ends first.
	Go(ctx context.Context, fn func()) error
}

// BoundedExecutor runs at most a fixed number of sessions at once.
type BoundedExecutor struct {
	sem     *semaphore.Weighted
	workers int64
}

// NewExecutor returns a BoundedExecutor with the given number of workers.
// Zero or less uses one worker per CPU.
func NewExecutor(workers int) *BoundedExecutor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &BoundedExecutor{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: int64(workers),
	}
}

// Workers returns the number of sessions that may run concurrently.
func (e *BoundedExecutor) Workers() int {
	return int(e.workers)
}

// Go implements Executor.
func (e *BoundedExecutor) Go(ctx context.Context, fn func()) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return verrors.New("E114").Wrap(err)
	}
	go func() {
		defer e.sem.Release(1)
		fn()
	}()
	return nil
}

// Wait blocks until every running session has finished or ctx ends.
func (e *BoundedExecutor) Wait(ctx context.Context) error {
	if err := e.sem.Acquire(ctx, e.workers); err != nil {
		return err
	}
	e.sem.Release(e.workers)
	return nil
}
