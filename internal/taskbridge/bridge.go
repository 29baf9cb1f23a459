// Package taskbridge adapts cache.Cache's non-blocking GetAndRef to
// cooperative task runtimes that cannot tolerate ErrWouldBlock. It is the
// Go-shaped generalization of lwan's cache_coro_get_and_ref_entry
// (original_source/lwan-cache.c): lwan's version is written against its
// own stackful coroutine type (coro_t) and its coro_defer2 unwind hook; Go
// has no stackful coroutines, so the bridge is expressed against a small
// Scheduler interface any cooperative runtime (an errgroup-backed worker,
// an HTTP request's per-call task, a custom event loop) can implement.
package taskbridge

import (
	"context"

	"github.com/lattice-run/ttlcache/internal/cache"
)

// Scheduler is the cooperative yield/defer surface GetAndRef needs from
// its caller's task runtime.
type Scheduler interface {
	// Yield suspends the calling task for one scheduler tick, returning
	// control to other runnable tasks, then resumes. It returns ctx.Err()
	// if ctx is done before the task is resumed.
	Yield(ctx context.Context) error

	// Defer registers fn to run when the task unwinds or is canceled,
	// whichever happens first. Used to guarantee a reserved cache
	// reference is released even if the task is killed after GetAndRef
	// returns but before the caller would otherwise have called Unref.
	Defer(fn func())
}

// GetAndRef loops cache.GetAndRef on sched's task until it succeeds or
// fails for a reason other than contention. On success it registers
// c.Unref(entry) as a deferred action on sched, so task cancellation can
// never leak the reference, and returns the entry. On construction
// failure (nil, nil from the cache) it returns (nil, nil). On any other
// error it returns (nil, err) immediately, without yielding again.
func GetAndRef(ctx context.Context, c *cache.Cache, key string, sched Scheduler) (*cache.Entry, error) {
	for {
		entry, err := c.GetAndRef(key)
		switch {
		case err == nil:
			if entry == nil {
				return nil, nil // constructor declined; not a bridge error
			}
			sched.Defer(func() { c.Unref(entry) })
			return entry, nil

		case err == cache.ErrWouldBlock:
			if yieldErr := sched.Yield(ctx); yieldErr != nil {
				return nil, yieldErr
			}

		default:
			return nil, err
		}
	}
}
