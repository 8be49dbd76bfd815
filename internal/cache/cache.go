// Package cache provides a process-wide TTL cache used by the domain
// validator and SMTP verifier to amortize DNS and probe costs.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long MX, catch-all, and verification entries stay fresh.
const DefaultTTL = time.Hour

// Clock returns the current time. Injecting it makes expiry deterministic
// under test.
type Clock func() time.Time

type entry[V any] struct {
	value   V
	savedAt time.Time
}

// TTL is a keyed cache whose entries expire after a fixed duration. Expired
// entries are treated as absent and recomputed by the caller, never served
// stale. Writes are last-writer-wins.
type TTL[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   Clock
	items map[string]entry[V]
}

// NewTTL creates a cache with the given entry lifetime. A nil clock uses
// time.Now.
func NewTTL[V any](ttl time.Duration, now Clock) *TTL[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TTL[V]{
		ttl:   ttl,
		now:   now,
		items: make(map[string]entry[V]),
	}
}

// Get returns the cached value for key if it exists and is within TTL.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.savedAt) >= c.ttl {
		// Lazy eviction; expired entries are recomputed, not refreshed.
		c.mu.Lock()
		if cur, still := c.items[key]; still && cur.savedAt.Equal(e.savedAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, stamping it with the injected clock.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, savedAt: c.now()}
	c.mu.Unlock()
}

// Len returns the number of stored entries, including any not yet evicted.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
