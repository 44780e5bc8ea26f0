package util

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type expirableEntry struct {
	value     []byte
	expiresAt time.Time
}

// ResponseCache is a size bounded LRU cache of raw response bodies with a fixed TTL.
//
// Expired entries are purged lazily when looked up. It is used to debounce upstream
// requests so that callers polling the same URL within the TTL share one response.
type ResponseCache struct {
	lru *lru.Cache
	mu  sync.Mutex
	ttl time.Duration

	// custom `time.Now` function, which could be used for testing
	timeNowFunc func() time.Time
}

func NewResponseCache(size int, ttl time.Duration, timeNowFunc ...func() time.Time) *ResponseCache {
	nowFunc := time.Now
	if len(timeNowFunc) > 0 {
		nowFunc = timeNowFunc[0]
	}

	cache, _ := lru.New(max(size, 1))
	return &ResponseCache{lru: cache, ttl: ttl, timeNowFunc: nowFunc}
}

// Get returns the cached body for key, or false if absent or expired.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.get(key)
}

// GetOrLoad returns the cached body for key, or calls load and caches its result.
//
// Loads for the same cache are serialized, so concurrent callers of an expired key
// trigger only one load. Failed loads are not cached.
func (c *ResponseCache) GetOrLoad(key string, load func() ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if body, ok := c.get(key); ok {
		return body, nil
	}

	body, err := load()
	if err != nil {
		return nil, err
	}

	c.lru.Add(key, &expirableEntry{value: body, expiresAt: c.timeNowFunc().Add(c.ttl)})
	return body, nil
}

// Purge removes all entries.
func (c *ResponseCache) Purge() {
	c.lru.Purge()
}

func (c *ResponseCache) get(key string) ([]byte, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}

	entry := v.(*expirableEntry)
	if !c.timeNowFunc().Before(entry.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}

	return entry.value, true
}
