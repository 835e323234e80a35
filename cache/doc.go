// Package cache defines the caching contracts used by the repository layer.
//
// It exposes three pieces:
//
//   - KeySerializer: builds a stable cache key from an operation name and its
//     arguments. Identical calls must always produce identical keys, because
//     the repository layer enumerates the exact keys it invalidates on writes.
//
//   - CacheService: the read-through cache surface. GetOrFetch returns the
//     cached value on a hit without invoking the producer; on a miss it calls
//     the producer, stores the result under the key, and returns it.
//
//   - GetOrFetch[T]: a type-safe wrapper around CacheService for callers that
//     know the concrete result type.
//
// Two backends implement CacheService (see internal/cacheinfra): an in-process
// TTL map, which is the default and performs no request coalescing, and a
// sturdyc-backed adapter that coalesces concurrent misses for the same key.
// The backend is selected through Config.
//
// Cached values are strictly redundant with the database: flushing the cache
// never changes observable behavior, only latency.
package cache
