// Package workerpool runs the parallelizable loops of spec.md §5 over a
// fixed-size worker pool; every caller passes a loop bound and a
// per-index function. solver.Cascade's row assembly runs through it;
// sparsemat's parallel mat-vec starts its own goroutines instead.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool runs bounded-parallel loops with a fixed degree of concurrency,
// matching spec.md §5's "parallel worker pool of fixed size T,
// cooperative inside each phase, sequential across phases" model.
type Pool struct {
	threads int
}

// New returns a Pool with the given thread count. threads <= 1 makes
// every subsequent For call run sequentially in the caller's goroutine.
func New(threads int) *Pool {
	if threads < 1 {
		threads = 1
	}
	return &Pool{threads: threads}
}

// Threads returns the configured degree of parallelism.
func (p *Pool) Threads() int { return p.threads }

// For calls fn(i) for every i in [0, n), using up to p.threads
// goroutines. It returns the first error any fn call returned, after
// all goroutines have finished (errgroup semantics): this keeps the
// cross-depth ordering guarantee of spec.md §5, since For never
// returns early while sibling goroutines are still running.
func (p *Pool) For(ctx context.Context, n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if p.threads <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.threads)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return fn(i)
		})
	}
	return g.Wait()
}
