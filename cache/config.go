package cache

import (
	"fmt"
	"time"

	"github.com/goliatone/go-license-server/internal/cacheinfra"
)

// Backend names the available CacheService implementations.
const (
	// BackendMemory is the default: a plain TTL map with lazy eviction and
	// no request coalescing. Concurrent misses on the same key each invoke
	// the producer.
	BackendMemory = "memory"
	// BackendSturdyc is the hardened backend: sharded, capacity-bounded, and
	// coalesces concurrent misses into a single producer invocation.
	BackendSturdyc = "sturdyc"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend string
	TTL     time.Duration

	// The remaining fields only apply to the sturdyc backend.
	Capacity           int
	NumShards          int
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	internal := cacheinfra.DefaultConfig()
	return Config{
		Backend:            BackendMemory,
		TTL:                internal.TTL,
		Capacity:           internal.Capacity,
		NumShards:          internal.NumShards,
		EvictionPercentage: internal.EvictionPercentage,
		EvictionInterval:   internal.EvictionInterval,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		if c.TTL <= 0 {
			return fmt.Errorf("cache config: TTL must be greater than 0")
		}
		return nil
	case BackendSturdyc:
		return c.toInternal().Validate()
	default:
		return fmt.Errorf("cache config: unknown backend %q", c.Backend)
	}
}

// NewCacheService constructs the configured CacheService implementation.
func NewCacheService(cfg Config) (CacheService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendSturdyc:
		return cacheinfra.NewSturdycService(cfg.toInternal())
	default:
		return cacheinfra.NewMemoryService(cfg.TTL), nil
	}
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}
