package cache

import (
	"container/list"
	"time"
)

// prunerCallback adapts prune to jobrunner.Callback. data is the *Cache
// registered at Create time.
func (c *Cache) prunerCallback(data any) bool {
	return data.(*Cache).prune()
}

// prune walks the queue from oldest to newest, evicting every entry whose
// deadline has passed (or every entry, unconditionally, while shutting
// down). It takes queueLock before hashLock; insertOrAdopt is the other
// path that holds both, nested the opposite way (see below).
func (c *Cache) prune() bool {
	if !c.queueLock.TryLock() {
		return false
	}
	defer c.queueLock.Unlock()

	// TryLock rather than a blocking Lock: insertOrAdopt acquires these
	// two locks in the opposite nesting order (hashLock then queueLock)
	// while adding a new entry. A blocking acquire here, combined with
	// that nesting, could deadlock against a writer holding hashLock and
	// waiting on queueLock. Giving up and reporting "no work" instead
	// keeps the two lock orders from ever cycling.
	if !c.hashLock.TryLock() {
		return false
	}
	defer c.hashLock.Unlock()

	now := time.Now()
	shuttingDown := c.shuttingDown.load()

	var evicted uint64
	for elem := c.queue.Front(); elem != nil; {
		entry := elem.Value.(*Entry)

		if !shuttingDown && now.Before(entry.timeToDie) {
			break // invariant: timeToDie is non-decreasing in queue order
		}

		next := elem.Next()
		c.evictLocked(elem, entry)
		evicted++
		elem = next
	}

	if evicted > 0 {
		c.stats.evicted.Add(evicted)
	}

	return evicted > 0
}

// evictLocked unlinks entry from queue and index. Callers must hold both
// queueLock and hashLock for writing.
func (c *Cache) evictLocked(elem *list.Element, entry *Entry) {
	c.queue.Remove(elem)
	entry.link = nil

	if entry.loadRefs() == 0 {
		c.destructor(entry.Payload, c.context)
	} else {
		entry.setFloating()
		c.status.Debugf("cache: %q expired with %d outstanding reference(s), deferring destruction", entry.key, entry.loadRefs())
	}

	delete(c.index, entry.key)
}
