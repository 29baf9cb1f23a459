package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lattice-run/ttlcache/internal/jobrunner"
)

func echoConstructor(key string, _ any) any {
	return key
}

func countingDestructor(counter *atomic.Int64) Destructor {
	return func(any, any) {
		counter.Add(1)
	}
}

// TestHitPath matches spec.md §8 scenario 1: a miss followed by an
// immediate hit on the same key returns the same entry.
func TestHitPath(t *testing.T) {
	r := jobrunner.New(nil)
	r.Init()
	t.Cleanup(r.Shutdown)

	var destroyed atomic.Int64
	c := Create(r, echoConstructor, countingDestructor(&destroyed), nil, time.Minute)
	t.Cleanup(c.Destroy)

	first, err := c.GetAndRef("a")
	require.NoError(t, err)
	require.NotNil(t, first)
	c.Unref(first)

	second, err := c.GetAndRef("a")
	require.NoError(t, err)
	require.Same(t, first, second)
	c.Unref(second)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(0), stats.Evicted)
}

// TestUnrefNTimes matches spec.md §8's round-trip property: N serial
// unref(get_and_ref(k)) calls produce misses=1, hits=N-1.
func TestUnrefNTimes(t *testing.T) {
	r := jobrunner.New(nil)
	r.Init()
	t.Cleanup(r.Shutdown)

	var destroyed atomic.Int64
	c := Create(r, echoConstructor, countingDestructor(&destroyed), nil, time.Minute)
	t.Cleanup(c.Destroy)

	const n = 10
	for i := 0; i < n; i++ {
		entry, err := c.GetAndRef("k")
		require.NoError(t, err)
		c.Unref(entry)
	}

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(n-1), stats.Hits)
}

// TestExpiry matches spec.md §8 scenario 2: ttl=1s, insert, unref, wait
// past two pruner ticks, expect eviction and a fresh construction on the
// next GetAndRef.
func TestExpiry(t *testing.T) {
	r := jobrunner.New(nil)
	r.Init()
	t.Cleanup(r.Shutdown)

	var constructs atomic.Int64
	ctor := func(key string, _ any) any {
		constructs.Add(1)
		return key
	}
	var destroyed atomic.Int64
	c := Create(r, ctor, countingDestructor(&destroyed), nil, time.Second)
	t.Cleanup(c.Destroy)

	entry, err := c.GetAndRef("a")
	require.NoError(t, err)
	c.Unref(entry)

	require.Eventually(t, func() bool {
		return c.Stats().Evicted == 1
	}, 5*time.Second, 50*time.Millisecond)

	_, err = c.GetAndRef("a")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c.Stats().Misses)
	assert.GreaterOrEqual(t, constructs.Load(), int64(2))
}

// TestReferencedExpiry matches spec.md §8 scenario 3: an entry still held
// by a reader survives the pruner as FLOATING; its destructor runs only
// once the last reference is released.
func TestReferencedExpiry(t *testing.T) {
	r := jobrunner.New(nil)
	r.Init()
	t.Cleanup(r.Shutdown)

	var destroyed atomic.Int64
	c := Create(r, echoConstructor, countingDestructor(&destroyed), nil, time.Second)
	t.Cleanup(c.Destroy)

	entry, err := c.GetAndRef("a") // held, not unref'd yet
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.Stats().Evicted == 1
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, int64(0), destroyed.Load(), "destructor must not run while the reader holds a reference")

	c.Unref(entry)
	assert.Equal(t, int64(1), destroyed.Load(), "destructor runs exactly once the last reference is released")
}

// TestDeduplicatedConstruction matches spec.md §8 scenario 4: many
// concurrent GetAndRef calls for the same missing key produce exactly one
// winner in the index; every constructed entry (winner and losers alike)
// has its destructor run exactly once overall.
func TestDeduplicatedConstruction(t *testing.T) {
	r := jobrunner.New(nil)
	r.Init()
	t.Cleanup(r.Shutdown)

	var constructs atomic.Int64
	ctor := func(key string, _ any) any {
		constructs.Add(1)
		time.Sleep(10 * time.Millisecond)
		return new(int)
	}
	var destroyed atomic.Int64
	c := Create(r, ctor, countingDestructor(&destroyed), nil, time.Minute)

	const n = 16
	var g errgroup.Group
	entries := make([]*Entry, n)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			entry, err := c.GetAndRef("x")
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	require.NoError(t, g.Wait())

	first := entries[0]
	for _, e := range entries {
		assert.Same(t, first, e, "every caller must observe the single winning entry")
	}

	for _, e := range entries {
		c.Unref(e)
	}

	// The winner is still indexed (not evicted, not FLOATING) after every
	// caller unrefs it, so only the losers have been destroyed so far.
	losers := constructs.Load() - 1
	assert.Equal(t, losers, destroyed.Load(), "every losing candidate is destroyed synchronously on adoption")

	// Destroy drains the cache, evicting (and destroying) the winner too.
	// Invariant 2 (spec.md §8): the destructor runs exactly once per
	// constructed entry, across the whole schedule.
	c.Destroy()
	assert.Equal(t, constructs.Load(), destroyed.Load(), "every constructed entry, winner included, is destroyed exactly once")
	assert.GreaterOrEqual(t, constructs.Load(), int64(1))
	assert.LessOrEqual(t, constructs.Load(), int64(n))
}

// TestConstructorFailure matches spec.md §4.2/§7: a nil constructor result
// is surfaced as (nil, nil) and is never cached.
func TestConstructorFailure(t *testing.T) {
	r := jobrunner.New(nil)
	r.Init()
	t.Cleanup(r.Shutdown)

	ctor := func(string, any) any { return nil }
	var destroyed atomic.Int64
	c := Create(r, ctor, countingDestructor(&destroyed), nil, time.Minute)
	t.Cleanup(c.Destroy)

	entry, err := c.GetAndRef("missing")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Equal(t, uint64(1), c.Stats().Misses)
}

// TestPrunerFailureToLock matches spec.md §8 scenario 6: if queueLock is
// held elsewhere, the pruner reports no work and evicts nothing.
func TestPrunerFailureToLock(t *testing.T) {
	var destroyed atomic.Int64
	c := Create(jobrunner.New(nil), echoConstructor, countingDestructor(&destroyed), nil, time.Nanosecond)

	entry, err := c.GetAndRef("a")
	require.NoError(t, err)
	c.Unref(entry)

	c.queueLock.Lock()
	hadWork := c.prune()
	c.queueLock.Unlock()

	assert.False(t, hadWork)
	assert.Equal(t, uint64(0), c.Stats().Evicted)
	assert.Equal(t, int64(0), destroyed.Load())
}

// TestContentionReturnsWouldBlock exercises the non-blocking hot read
// path: a concurrent writer holding hashLock forces GetAndRef to report
// ErrWouldBlock rather than waiting.
func TestContentionReturnsWouldBlock(t *testing.T) {
	var destroyed atomic.Int64
	c := Create(jobrunner.New(nil), echoConstructor, countingDestructor(&destroyed), nil, time.Minute)

	c.hashLock.Lock()
	_, err := c.GetAndRef("a")
	c.hashLock.Unlock()

	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestConcurrentDistinctKeys(t *testing.T) {
	r := jobrunner.New(nil)
	r.Init()
	t.Cleanup(r.Shutdown)

	var destroyed atomic.Int64
	c := Create(r, echoConstructor, countingDestructor(&destroyed), nil, time.Minute)
	t.Cleanup(c.Destroy)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			for attempt := 0; attempt < 100; attempt++ {
				entry, err := c.GetAndRef(key)
				if err == ErrWouldBlock {
					continue
				}
				require.NoError(t, err)
				c.Unref(entry)
				return
			}
			t.Errorf("key %s never succeeded under contention", key)
		}()
	}
	wg.Wait()
}
