// Package testsupport provides the shared fakes and fixtures used by the
// package tests: an in-memory database with the real schema, a recording
// cache wrapper, and a fixed clock.
package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-license-server/cache"
	"github.com/goliatone/go-license-server/internal/store"
)

// OpenDB opens a throwaway in-memory sqlite database with the full schema.
// The handle is closed when the test finishes.
func OpenDB(t *testing.T) *bun.DB {
	t.Helper()

	// Plain :memory: keeps each test isolated; store.Open caps the pool at
	// one connection, so the database lives exactly as long as the handle.
	db, err := store.Open(store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := store.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// FixedClock returns a clock function pinned to ts.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

// RecordingCache wraps a real CacheService and records every key that flows
// through it, so tests can assert which entries a mutation invalidated.
type RecordingCache struct {
	cache.CacheService

	mu          sync.Mutex
	fetched     []string
	invalidated []string
	flushes     int
}

// NewRecordingCache wraps inner.
func NewRecordingCache(inner cache.CacheService) *RecordingCache {
	return &RecordingCache{CacheService: inner}
}

// GetOrFetch records the key and delegates.
func (r *RecordingCache) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	r.mu.Lock()
	r.fetched = append(r.fetched, key)
	r.mu.Unlock()
	return r.CacheService.GetOrFetch(ctx, key, fetchFn)
}

// Delete records the key and delegates.
func (r *RecordingCache) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	r.invalidated = append(r.invalidated, key)
	r.mu.Unlock()
	return r.CacheService.Delete(ctx, key)
}

// Invalidate records the keys and delegates.
func (r *RecordingCache) Invalidate(ctx context.Context, keys ...string) error {
	r.mu.Lock()
	r.invalidated = append(r.invalidated, keys...)
	r.mu.Unlock()
	return r.CacheService.Invalidate(ctx, keys...)
}

// Flush counts the call and delegates.
func (r *RecordingCache) Flush(ctx context.Context) error {
	r.mu.Lock()
	r.flushes++
	r.mu.Unlock()
	return r.CacheService.Flush(ctx)
}

// Fetched returns every key passed to GetOrFetch, in order.
func (r *RecordingCache) Fetched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fetched...)
}

// Invalidated returns every key passed to Delete or Invalidate, in order.
func (r *RecordingCache) Invalidated() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.invalidated...)
}

// WasInvalidated reports whether key was ever invalidated.
func (r *RecordingCache) WasInvalidated(key string) bool {
	for _, k := range r.Invalidated() {
		if k == key {
			return true
		}
	}
	return false
}

// Flushes returns how many times Flush was called.
func (r *RecordingCache) Flushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushes
}

// Reset clears the recordings but not the underlying cache.
func (r *RecordingCache) Reset() {
	r.mu.Lock()
	r.fetched = nil
	r.invalidated = nil
	r.flushes = 0
	r.mu.Unlock()
}
