package cacheinfra

import (
	"context"
	"time"
)

// memoryService is the default CacheService backend: a TTLCache keyed by the
// serialized operation key, with one shared TTL for every entry.
//
// It deliberately performs no in-flight request coalescing: concurrent
// callers that each miss on the same key independently invoke the producer.
// That matches the behavior of the legacy service this replaces; callers who
// want single-producer semantics select the sturdyc backend instead.
type memoryService struct {
	cache *TTLCache[string, any]
	ttl   time.Duration
}

// NewMemoryService creates the TTL-map cache service. Entries live for ttl
// after each write; reads never extend an entry's life.
func NewMemoryService(ttl time.Duration) *memoryService {
	return &memoryService{
		cache: NewTTLCache[string, any](),
		ttl:   ttl,
	}
}

// Cache exposes the underlying TTLCache so tests can install a fixed clock.
func (s *memoryService) Cache() *TTLCache[string, any] {
	return s.cache
}

// GetOrFetch returns the cached value for key, or invokes fetchFn and stores
// its result. A cached nil is still a hit: absence of a row is a normal
// result, not an error, and the write paths invalidate the exact keys a new
// row could resolve to.
func (s *memoryService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	v, err := callFetchFn(ctx, fetchFn)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, v, s.ttl)
	return v, nil
}

// Delete removes a single entry.
func (s *memoryService) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Invalidate removes the listed entries.
func (s *memoryService) Invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(key)
	}
	return nil
}

// Flush clears everything.
func (s *memoryService) Flush(ctx context.Context) error {
	s.cache.Flush()
	return nil
}

// Keys lists the live cache keys.
func (s *memoryService) Keys(ctx context.Context) []string {
	return s.cache.Keys()
}
