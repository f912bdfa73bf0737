// Package cache is a TTL memoization layer for expensive derived values
// (platform views, change impacts, predictiveness sweeps). Entries are not
// a source of truth: losing one only costs a recomputation.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time

	mu sync.Mutex // serializes computation for this key
}

// Cache memoizes computed values by key with per-entry TTLs. Concurrent
// callers for the same key share one computation; different keys never
// block each other.
type Cache struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a cache. The clock is injectable for tests; nil means
// time.Now.
func New(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{now: now, entries: make(map[string]*entry)}
}

// GetOrCompute returns the cached value for key, recomputing it through fn
// when missing or past its TTL. A failed computation is not cached, so the
// next caller retries.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.value != nil && c.now().Before(e.expiresAt) {
		return e.value, nil
	}

	value, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	e.value = value
	e.expiresAt = c.now().Add(ttl)
	return value, nil
}

// Invalidate drops a key so the next lookup recomputes.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
