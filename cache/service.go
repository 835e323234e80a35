package cache

import "context"

// KeySerializer builds a cache key from an operation name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(op string, args ...any) string
}

// FetchFn is the producer signature CacheService invokes on a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through and invalidation operations the
// repository layer needs. Keys, Flush and Len exist for the cache admin
// endpoints; they are cheap on both backends.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	Invalidate(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
	Keys(ctx context.Context) []string
}

// GetOrFetch is a type-safe wrapper that provides generic support for
// CacheService. The producer result is stored under key and asserted back to
// T on hits.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		var zero T
		return zero, err
	}
	if result == nil {
		var zero T
		return zero, nil
	}
	return result.(T), nil
}
