// Package cache memoizes expensive derivations in a fixed capacity LRU.
//
// All access goes through a single lock that is also held while a missing
// value is computed. At most one computation runs at a time across the whole
// cache, so concurrent misses on one key compute once and misses on different
// keys are served one after another. Long computations therefore delay every
// other caller, hits included.
package cache

import (
	"context"
	"time"

	"github.com/pyropy/imgserve/lib/lru_cache"
	"golang.org/x/sync/semaphore"
)

// ComputeFunc produces the value for a missing key.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

type Stats struct {
	Len       int
	Cap       int
	Hits      uint64
	Misses    uint64
	Failures  uint64
	Evictions uint64
}

type Resolver[K comparable, V any] struct {
	sem     *semaphore.Weighted
	lru     *lru_cache.LRU[K, V]
	metrics *Metrics
	stats   Stats
}

// NewResolver creates a resolver holding up to capacity values. metrics may
// be nil.
func NewResolver[K comparable, V any](capacity int, metrics *Metrics) *Resolver[K, V] {
	lru := lru_cache.NewLRU[K, V](capacity)

	return &Resolver[K, V]{
		sem:     semaphore.NewWeighted(1),
		lru:     lru,
		metrics: metrics,
		stats:   Stats{Cap: lru.Cap()},
	}
}

// Resolve returns the value cached under key, or runs compute, caches its
// result and returns it. A failed computation is not cached and its error is
// returned unchanged. If ctx is done before the lock is acquired Resolve
// returns ctx.Err().
func (r *Resolver[K, V]) Resolve(ctx context.Context, key K, compute ComputeFunc[V]) (V, error) {
	var zero V

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer r.sem.Release(1)

	if r.lru.Contains(key) {
		v, _ := r.lru.Get(key)
		r.stats.Hits++
		r.metrics.hit()

		return v, nil
	}

	r.stats.Misses++
	r.metrics.miss()

	start := time.Now()
	v, err := compute(ctx)
	r.metrics.observe(time.Since(start))
	if err != nil {
		r.stats.Failures++
		r.metrics.failure()

		return zero, err
	}

	before := r.lru.Len()
	r.lru.Put(key, v)
	if evicted := before + 1 - r.lru.Len(); evicted > 0 {
		r.stats.Evictions += uint64(evicted)
		r.metrics.evicted(evicted)
	}
	r.metrics.setEntries(r.lru.Len())

	return v, nil
}

// Peek returns the cached value without promoting it.
func (r *Resolver[K, V]) Peek(key K) (V, bool) {
	r.lock()
	defer r.unlock()

	return r.lru.Peek(key)
}

// Contains reports whether key is cached without promoting it.
func (r *Resolver[K, V]) Contains(key K) bool {
	r.lock()
	defer r.unlock()

	return r.lru.Contains(key)
}

// Remove drops key from the cache.
func (r *Resolver[K, V]) Remove(key K) (V, bool) {
	r.lock()
	defer r.unlock()

	v, ok := r.lru.Remove(key)
	r.metrics.setEntries(r.lru.Len())

	return v, ok
}

// Purge drops every cached value and returns how many there were.
func (r *Resolver[K, V]) Purge() int {
	r.lock()
	defer r.unlock()

	n := r.lru.Len()
	r.lru.Purge()
	r.metrics.setEntries(0)

	return n
}

// Keys returns cached keys from most to least recently used.
func (r *Resolver[K, V]) Keys() []K {
	r.lock()
	defer r.unlock()

	return r.lru.Keys()
}

func (r *Resolver[K, V]) Len() int {
	r.lock()
	defer r.unlock()

	return r.lru.Len()
}

func (r *Resolver[K, V]) Stats() Stats {
	r.lock()
	defer r.unlock()

	s := r.stats
	s.Len = r.lru.Len()

	return s
}

func (r *Resolver[K, V]) lock() {
	// Acquire only fails when the context is done.
	_ = r.sem.Acquire(context.Background(), 1)
}

func (r *Resolver[K, V]) unlock() {
	r.sem.Release(1)
}
