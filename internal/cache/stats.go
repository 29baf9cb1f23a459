package cache

import "sync/atomic"

// counters holds the three monotonically non-decreasing stats counters.
// Each is independently atomic; no cross-counter ordering is guaranteed,
// matching spec.md §5 ("Stats counters use relaxed atomic arithmetic").
type counters struct {
	hits    atomic.Uint64
	misses  atomic.Uint64
	evicted atomic.Uint64
}

// boolAtomic is a small wrapper around atomic.Bool for the shutting_down
// flag, which is read by the pruner and written exactly once by Destroy.
type boolAtomic struct {
	v atomic.Bool
}

func (b *boolAtomic) store(v bool) { b.v.Store(v) }
func (b *boolAtomic) load() bool   { return b.v.Load() }
