package cache

import (
	"container/list"
	"sync/atomic"
	"time"
)

// entryFlags is a bitset. FLOATING is the only defined bit: it marks an
// entry that is no longer reachable from the index, so the last releaser
// must destroy it.
type entryFlags uint32

const flagFloating entryFlags = 1 << 0

// Entry is one cached object plus its housekeeping. The payload is opaque
// to the cache; only the constructor and destructor supplied to Create
// know its shape.
type Entry struct {
	key     string
	Payload any

	refs  int32
	flags atomic.Uint32

	// timeToDie is produced by time.Now().Add(ttl) and never passed through
	// anything that strips the monotonic reading (no UnixNano, no
	// formatting), so comparisons against a fresh time.Now() in pruner.go
	// use the monotonic clock and are immune to wall-clock jumps.
	timeToDie time.Time

	link *list.Element // membership in Cache.queue, nil once unlinked
}

// Key returns the entry's key. Safe to call without holding the entry's ref.
func (e *Entry) Key() string {
	return e.key
}

func (e *Entry) floating() bool {
	return entryFlags(e.flags.Load())&flagFloating != 0
}

func (e *Entry) setFloating() {
	e.flags.Store(uint32(flagFloating))
}

func (e *Entry) addRef(n int32) int32 {
	return atomic.AddInt32(&e.refs, n)
}

func (e *Entry) loadRefs() int32 {
	return atomic.LoadInt32(&e.refs)
}
