package taskbridge

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TaskScheduler is a reference Scheduler for a single logical task (e.g.
// one HTTP request). Yield hands the tick to an errgroup.Group running a
// single no-op goroutine derived from ctx, so a parent cancellation (or,
// were a real concurrent step added here, a sibling goroutine's error)
// unblocks it the same way it would unblock any other errgroup-managed
// task step; Defer runs its stack, most-recently registered first,
// exactly once, whether the task finishes normally or its context is
// canceled.
type TaskScheduler struct {
	mu       sync.Mutex
	deferred []func()
	ran      bool
}

// NewTaskScheduler constructs a scheduler for one task. Callers must call
// Unwind exactly once when the task is done, whether it succeeded, failed,
// or was canceled.
func NewTaskScheduler() *TaskScheduler {
	return &TaskScheduler{}
}

// Yield gives other goroutines a chance to run before resuming, or returns
// ctx.Err() if ctx is done before or during the tick.
func (s *TaskScheduler) Yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		default:
			return nil
		}
	})
	return g.Wait()
}

// Defer registers fn to run on Unwind, most-recently-registered first
// (mirroring defer's own ordering).
func (s *TaskScheduler) Defer(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ran {
		// The task already unwound; run immediately so the reference
		// is never silently dropped.
		fn()
		return
	}
	s.deferred = append(s.deferred, fn)
}

// Unwind runs every deferred action in reverse registration order. Safe to
// call multiple times; only the first call has effect.
func (s *TaskScheduler) Unwind() {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return
	}
	s.ran = true
	fns := s.deferred
	s.deferred = nil
	s.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
