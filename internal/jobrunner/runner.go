// Package jobrunner implements the single, process-wide, low-priority
// background worker that ttlcache's pruners (and any other periodic
// callback) run on. It is a direct translation of lwan's job thread
// (common/lwan-job.c): one goroutine, one jobs_lock, adaptive backoff
// between 1 and 15 seconds, and condition-variable wakeup on shutdown so
// that tearing the process down never waits out a sleep.
package jobrunner

import (
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/lattice-run/ttlcache/internal/status"
)

// Callback is invoked with no lock held externally. It reports whether it
// found work to do; the runner uses that to drive its adaptive backoff.
type Callback func(data any) (hadWork bool)

type job struct {
	cb   Callback
	data any
}

// Runner is a single low-priority background worker executing registered
// callbacks on an adaptive 1s-15s schedule. The zero value is not usable; construct
// one with New and call Init before registering jobs.
type Runner struct {
	status status.Channel

	mu      sync.Mutex // jobs_lock
	jobs    []job
	running bool

	cond    *sync.Cond
	done    chan struct{}
	waitSec int
}

// New constructs a Runner. ch may be status.Noop() if diagnostics aren't
// needed.
func New(ch status.Channel) *Runner {
	if ch == nil {
		ch = status.Noop()
	}
	r := &Runner{status: ch, waitSec: 1}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Init starts the worker goroutine. Init must not be called twice without
// an intervening Shutdown.
func (r *Runner) Init() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.done = make(chan struct{})
	r.mu.Unlock()

	r.status.Infof("jobrunner: initializing low priority job worker")

	go r.loop()
}

// Add registers cb/data. Duplicates are tolerated; Remove deletes every
// matching record.
func (r *Runner) Add(cb Callback, data any) {
	if cb == nil {
		panic("jobrunner: nil callback")
	}

	if !r.mu.TryLock() {
		r.status.Warnf("jobrunner: Add dropped record, jobs_lock contended")
		return
	}
	defer r.mu.Unlock()

	r.jobs = append(r.jobs, job{cb: cb, data: data})
}

// Remove deletes every job record whose callback and data both match.
func (r *Runner) Remove(cb Callback, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.jobs[:0]
	for _, j := range r.jobs {
		if sameFunc(j.cb, cb) && j.data == data {
			continue
		}
		kept = append(kept, j)
	}
	r.jobs = kept
}

// Shutdown deregisters every job, stops the worker, and blocks until it has
// joined. Shutdown is idempotent.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}

	r.jobs = nil
	r.running = false
	r.cond.Signal()
	done := r.done
	r.mu.Unlock()

	<-done

	r.status.Infof("jobrunner: shut down")
}

func (r *Runner) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	lowerPriority(r.status)

	defer close(r.done)

	for {
		r.mu.Lock()
		if !r.running {
			r.mu.Unlock()
			return
		}

		hadWork := r.runJobsLocked()

		if hadWork {
			r.waitSec = 1
		} else if r.waitSec < 15 {
			r.waitSec++
		}

		deadline := time.Now().Add(time.Duration(r.waitSec) * time.Second)
		r.condWaitUntilLocked(deadline)

		stillRunning := r.running
		r.mu.Unlock()

		if !stillRunning {
			return
		}
	}
}

// runJobsLocked runs every registered callback. Callers must hold r.mu.
func (r *Runner) runJobsLocked() bool {
	hadWork := false
	for _, j := range r.jobs {
		if j.cb(j.data) {
			hadWork = true
		}
	}
	return hadWork
}

// condWaitUntilLocked sleeps on r.cond until deadline or until Shutdown
// signals it, whichever comes first. r.mu must be held on entry and is
// held again on return.
func (r *Runner) condWaitUntilLocked(deadline time.Time) {
	timer := time.AfterFunc(time.Until(deadline), func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer timer.Stop()

	for r.running && time.Now().Before(deadline) {
		r.cond.Wait()
	}
}

func sameFunc(a, b Callback) bool {
	// Go forbids comparing arbitrary func values; reflect.Value.Pointer
	// is the idiomatic escape hatch for registries like this one (the
	// source compares C function pointers directly).
	return funcPointer(a) == funcPointer(b)
}

func lowerPriority(ch status.Channel) {
	// Best-effort: Go cannot address a single OS thread's scheduling
	// class the way pthread_setschedparam(SCHED_IDLE) does, so this
	// lowers the niceness of the calling (locked) OS thread instead.
	// Failure is logged, never fatal, matching the source's behavior.
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, 19); err != nil {
		ch.Perror("setpriority", err)
	}
}
