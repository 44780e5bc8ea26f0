package gasstation

import (
	"sync"
	"sync/atomic"
	"time"
)

// for atomic load/store in cache.
type cacheValue[T any] struct {
	value    T
	err      error
	expireAt time.Time
}

// expiryCache caches the outcome of the last update, failed or not, until it expires.
type expiryCache[T any] struct {
	value   atomic.Pointer[cacheValue[T]]
	timeout time.Duration
	mu      sync.Mutex
}

func newExpiryCache[T any](timeout time.Duration) *expiryCache[T] {
	return &expiryCache[T]{timeout: timeout}
}

func (cache *expiryCache[T]) getAt(now time.Time) (*cacheValue[T], bool) {
	val := cache.value.Load()
	if val == nil || !now.Before(val.expireAt) {
		return nil, false
	}

	return val, true
}

// getOrUpdateAt returns the cached outcome, or calls updateFunc at most once among
// concurrent callers once expired. The bool result tells whether it is served from cache.
func (cache *expiryCache[T]) getOrUpdateAt(now time.Time, updateFunc func() (T, error)) (T, bool, error) {
	// cache value not expired
	if val, ok := cache.getAt(now); ok {
		return val.value, true, val.err
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	// double check for concurrency
	if val, ok := cache.getAt(now); ok {
		return val.value, true, val.err
	}

	val, err := updateFunc()
	cache.value.Store(&cacheValue[T]{
		value:    val,
		err:      err,
		expireAt: now.Add(cache.timeout),
	})

	return val, false, err
}
