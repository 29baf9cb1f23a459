// Package cache implements the keyed, time-to-live object store at the
// heart of ttlcache: deduplicated construction under contention, atomic
// reference counting, a floating-entry protocol that decouples logical
// eviction from physical destruction, and a background pruner driven by
// internal/jobrunner.
//
// The design is a direct port of lwan's cache.c (original_source/
// lwan-cache.c): two independent reader-writer locks (hash_lock over the
// index, queue_lock over the FIFO insertion-order queue; the pruner takes
// queue_lock first, insertion takes queue_lock while holding hash_lock, and
// the pruner only try-locks so the two nestings cannot deadlock), a
// non-blocking hot read path that
// reports contention instead of blocking, and the FLOATING flag marking
// entries the index no longer reaches but a reader still holds.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/lattice-run/ttlcache/internal/jobrunner"
	"github.com/lattice-run/ttlcache/internal/status"
)

// Constructor builds a new payload for key. A nil return means "could not
// construct" and is not cached. context is the opaque value passed to
// Create.
type Constructor func(key string, context any) any

// Destructor releases a payload built by Constructor. It must be
// idempotent in the sense that the cache guarantees it is called exactly
// once per constructed entry, but it must tolerate running on an
// unpredictable goroutine.
type Destructor func(payload any, context any)

// maxAddUniqueRetries bounds the "key existed, then vanished on re-lookup"
// loop in insertOrAdopt. The source retries unboundedly; under sustained
// churn on a single key this open question (spec.md §9) is resolved here
// by returning ErrContention past the bound rather than spinning forever.
const maxAddUniqueRetries = 32

// Stats is a point-in-time snapshot of a Cache's counters.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Evicted uint64
}

// Cache is one process-local keyed TTL store. The zero value is not
// usable; construct one with Create.
type Cache struct {
	constructor Constructor
	destructor  Destructor
	context     any
	ttl         time.Duration

	hashLock sync.RWMutex
	index    map[string]*Entry

	queueLock sync.RWMutex
	queue     *list.List // of *Entry, oldest at Front

	stats counters

	shuttingDown boolAtomic

	runner *jobrunner.Runner
	status status.Channel
}

// Create allocates a cache registered with runner's pruner. constructor
// and destructor must be non-nil; ttl must be positive.
func Create(runner *jobrunner.Runner, constructor Constructor, destructor Destructor, context any, ttl time.Duration) *Cache {
	if constructor == nil || destructor == nil {
		panic("cache: constructor and destructor must be non-nil")
	}
	if ttl <= 0 {
		panic("cache: ttl must be positive")
	}

	ch := status.Noop()

	c := &Cache{
		constructor: constructor,
		destructor:  destructor,
		context:     context,
		ttl:         ttl,
		index:       make(map[string]*Entry),
		queue:       list.New(),
		runner:      runner,
		status:      ch,
	}

	if runner != nil {
		runner.Add(c.prunerCallback, c)
	}

	return c
}

// SetStatusChannel attaches a diagnostic sink. Safe to call once before
// the cache is shared across goroutines.
func (c *Cache) SetStatusChannel(ch status.Channel) {
	if ch == nil {
		ch = status.Noop()
	}
	c.status = ch
}

// Destroy deregisters the pruner, drains the cache synchronously, and
// leaves it unusable. Any operation on c after Destroy returns is invalid.
func (c *Cache) Destroy() {
	if c.runner != nil {
		c.runner.Remove(c.prunerCallback, c)
	}

	c.shuttingDown.store(true)
	c.prune()
}

// GetAndRef returns a referenced entry for key, constructing it if
// necessary. On success the caller owns one reference and must eventually
// call Unref. Returns (nil, ErrWouldBlock) if the hash index's read lock
// is currently contended; returns (nil, nil) if the constructor itself
// produced nil (construction failure, not cached).
func (c *Cache) GetAndRef(key string) (*Entry, error) {
	if !c.hashLock.TryRLock() {
		return nil, ErrWouldBlock
	}

	if entry, ok := c.index[key]; ok {
		entry.addRef(1)
		c.hashLock.RUnlock()
		c.stats.hits.Add(1)
		return entry, nil
	}
	c.hashLock.RUnlock()

	c.stats.misses.Add(1)

	payload := c.constructor(key, c.context)
	if payload == nil {
		return nil, nil
	}

	candidate := &Entry{key: key, Payload: payload}

	return c.insertOrAdopt(key, candidate)
}

// insertOrAdopt implements the deduplicated-construction protocol: try to
// add candidate under the key; if another goroutine's entry won the race,
// destroy candidate and adopt the winner instead.
//
// The source's add_unique has a third outcome besides success/exists: any
// other failure (an allocation failure in the backing hash table), which
// marks the candidate FLOATING with time_to_die = now and hands it back
// with refs = 1 for the caller to unref-and-destroy. Go's builtin map has
// no such failure mode, so that branch has no analog here and is omitted.
func (c *Cache) insertOrAdopt(key string, candidate *Entry) (*Entry, error) {
	for attempt := 0; ; attempt++ {
		if attempt >= maxAddUniqueRetries {
			c.status.Warnf("cache: giving up on %q after %d attempts, key kept flapping in and out of the index", key, attempt)
			c.destructor(candidate.Payload, c.context)
			return nil, ErrContention
		}

		c.hashLock.Lock()
		if _, exists := c.index[key]; exists {
			c.hashLock.Unlock()

			c.hashLock.RLock()
			winner, stillExists := c.index[key]
			if stillExists {
				c.destructor(candidate.Payload, c.context)
				winner.addRef(1)
				c.hashLock.RUnlock()
				return winner, nil
			}
			c.hashLock.RUnlock()
			c.status.Debugf("cache: %q vanished between its exists-check and re-lookup, retrying (attempt %d)", key, attempt)
			continue // winner evicted between releases; retry from the top
		}

		c.index[key] = candidate
		candidate.timeToDie = time.Now().Add(c.ttl)

		c.queueLock.Lock()
		candidate.link = c.queue.PushBack(candidate)
		c.queueLock.Unlock()

		candidate.refs = 1
		c.hashLock.Unlock()
		return candidate, nil
	}
}

// Unref releases the caller's reference to entry. If the count drops to
// zero and the entry is FLOATING, the destructor runs now on the calling
// goroutine. entry must not be used after Unref returns.
func (c *Cache) Unref(entry *Entry) {
	if entry == nil {
		return
	}
	if entry.addRef(-1) == 0 && entry.floating() {
		c.destructor(entry.Payload, c.context)
	}
}

// liveCount returns the number of entries currently reachable from the
// index, for the Prometheus gauge in metrics.go.
func (c *Cache) liveCount() int {
	c.hashLock.RLock()
	defer c.hashLock.RUnlock()
	return len(c.index)
}

// Stats returns a snapshot of the hit/miss/eviction counters. No ordering
// is guaranteed across the three counters relative to each other.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.stats.hits.Load(),
		Misses:  c.stats.misses.Load(),
		Evicted: c.stats.evicted.Load(),
	}
}
