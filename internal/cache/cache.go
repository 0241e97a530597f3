package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vyrodovalexey/avagroups/internal/config"
	"github.com/vyrodovalexey/avagroups/internal/observability"
)

// Backend names used in metrics, spans and readiness output.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDisabled = "disabled"
)

var (
	// ErrCacheMiss indicates that the key was not found in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheDisabled indicates that caching is disabled.
	ErrCacheDisabled = errors.New("cache disabled")

	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrConnectionFailed indicates that the cache backend is unreachable.
	ErrConnectionFailed = errors.New("cache connection failed")
)

// Cache stores opaque values by key.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value. A zero ttl uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error

	// Backend names the implementation.
	Backend() string

	Close() error
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// HitRate returns the hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// New creates the cache described by cfg.
func New(cfg *config.CacheConfig, logger observability.Logger) (Cache, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	if !cfg.Enabled {
		logger.Info("result cache disabled")
		return NewDisabled(), nil
	}

	switch cfg.Type {
	case config.CacheTypeMemory, "":
		return NewMemory(cfg.MaxEntries, cfg.TTL.Duration(), logger), nil
	case config.CacheTypeRedis:
		rc, err := newRedisCache(cfg, logger)
		if err != nil {
			return nil, err
		}
		if cb := cfg.CircuitBreaker; cb != nil && cb.Enabled {
			return NewBreaker(rc, cb.Threshold, cb.Timeout.Duration(), logger), nil
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("%w: unknown cache type %q", ErrInvalidConfig, cfg.Type)
	}
}

// disabledCache always misses.
type disabledCache struct{}

// NewDisabled returns a cache that rejects every operation with
// ErrCacheDisabled.
func NewDisabled() Cache {
	return disabledCache{}
}

func (disabledCache) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheDisabled
}

func (disabledCache) Set(context.Context, string, []byte, time.Duration) error {
	return ErrCacheDisabled
}

func (disabledCache) Delete(context.Context, string) error {
	return ErrCacheDisabled
}

func (disabledCache) Ping(context.Context) error { return nil }

func (disabledCache) Backend() string { return BackendDisabled }

func (disabledCache) Close() error { return nil }
