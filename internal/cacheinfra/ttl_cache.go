package cacheinfra

import (
	"sync"
	"time"
)

// TTLCache is a minimal in-process key/value store with per-entry expiry.
// Expired entries are removed lazily, on the read that observes them.
// There is no size-based eviction; the repository key space is small and
// bounded by the entity count, and the sturdyc backend exists for anyone who
// needs a capacity bound.
type TTLCache[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K]ttlEntry[V]
	now  func() time.Time
}

type ttlEntry[V any] struct {
	val V
	exp time.Time
}

// NewTTLCache returns an empty cache.
func NewTTLCache[K comparable, V any]() *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data: make(map[K]ttlEntry[V]),
		now:  time.Now,
	}
}

// SetClock replaces the time source. Tests use this to make expiry
// deterministic; production code never calls it.
func (c *TTLCache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Set stores value under key until now + ttl.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	c.data[key] = ttlEntry[V]{val: value, exp: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Get returns the value and true when key is present and not expired.
// An expired entry is deleted on the spot and reported as a miss.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.exp) {
		delete(c.data, key)
		var zero V
		return zero, false
	}
	return e.val, true
}

// Has reports whether Get would hit.
func (c *TTLCache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key if present. Deleting an absent key is not an error.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

// Flush clears every entry.
func (c *TTLCache[K, V]) Flush() {
	c.mu.Lock()
	c.data = make(map[K]ttlEntry[V])
	c.mu.Unlock()
}

// Len counts the live (unexpired) entries without evicting anything.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	now := c.now()
	for _, e := range c.data {
		if now.Before(e.exp) {
			n++
		}
	}
	return n
}

// Keys returns the live keys in no particular order.
func (c *TTLCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.data))
	now := c.now()
	for k, e := range c.data {
		if now.Before(e.exp) {
			keys = append(keys, k)
		}
	}
	return keys
}
