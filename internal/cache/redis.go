package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avagroups/internal/config"
	"github.com/vyrodovalexey/avagroups/internal/observability"
	"github.com/vyrodovalexey/avagroups/internal/retry"
)

const redisPingTimeout = 5 * time.Second

func defaultRedisRetryConfig() *retry.Config {
	return &retry.Config{
		MaxRetries:     2,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		JitterFactor:   retry.DefaultJitterFactor,
	}
}

// isRetryableRedisError retries network failures only. A miss or a server
// reply is final.
func isRetryableRedisError(err error) bool {
	if errors.Is(err, redis.Nil) {
		return false
	}
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return false
	}
	return retry.IsTransient(err)
}

// RedisCache stores values in Redis.
type RedisCache struct {
	logger      observability.Logger
	client      *redis.Client
	keyPrefix   string
	defaultTTL  time.Duration
	ttlJitter   float64
	retryConfig *retry.Config

	hits   atomic.Int64
	misses atomic.Int64
}

func newRedisCache(cfg *config.CacheConfig, logger observability.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.Redis == nil || cfg.Redis.URL == "" {
		return nil, fmt.Errorf("%w: redis url is required", ErrInvalidConfig)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis url: %w", ErrInvalidConfig, err)
	}
	applyRedisPoolOptions(opts, cfg.Redis)

	client := redis.NewClient(opts)
	if err := pingRedis(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &RedisCache{
		logger:      logger,
		client:      client,
		keyPrefix:   resolveKeyPrefix(cfg.Redis.KeyPrefix),
		defaultTTL:  cfg.TTL.Duration(),
		ttlJitter:   cfg.Redis.TTLJitter,
		retryConfig: defaultRedisRetryConfig(),
	}

	logger.Info("redis cache initialized",
		observability.String("addr", opts.Addr),
		observability.Int("db", opts.DB),
		observability.String("keyPrefix", c.keyPrefix),
		observability.Duration("defaultTTL", c.defaultTTL),
		observability.Float64("ttlJitter", c.ttlJitter))

	return c, nil
}

func applyRedisPoolOptions(opts *redis.Options, cfg *config.RedisCacheConfig) {
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration()
	}
}

func pingRedis(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

func resolveKeyPrefix(prefix string) string {
	if prefix == "" {
		return config.DefaultRedisKeyPrefix
	}
	return prefix
}

// applyTTLJitter varies ttl by up to ±jitterFactor so that entries written
// together do not expire together.
func applyTTLJitter(ttl time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 || ttl <= 0 {
		return ttl
	}
	if jitterFactor > 1.0 {
		jitterFactor = 1.0
	}
	//nolint:gosec // TTL jitter does not need cryptographic randomness
	jitter := time.Duration(float64(ttl) * jitterFactor * (2*rand.Float64() - 1))
	if result := ttl + jitter; result > 0 {
		return result
	}
	return ttl
}

func (c *RedisCache) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return cacheTracer.Start(ctx, "cache."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendRedis),
			attribute.String("cache.key", key),
		),
	)
}

func (c *RedisCache) do(ctx context.Context, op, key string, fn retry.RetryableFunc) error {
	return retry.Do(ctx, c.retryConfig, fn, &retry.Options{
		Operation:   "redis_" + op,
		ShouldRetry: isRetryableRedisError,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			c.logger.Debug("retrying redis operation",
				observability.String("operation", op),
				observability.String("key", key),
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(err))
		},
	})
}

func (c *RedisCache) fail(span trace.Span, op, key string, err error) {
	GetMetrics().errorsTotal.WithLabelValues(BackendRedis, op).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Warn("redis operation failed",
		observability.String("operation", op),
		observability.String("key", key),
		observability.Error(err))
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := c.startSpan(ctx, "Get", key)
	defer span.End()

	m := GetMetrics()
	start := time.Now()
	defer func() {
		m.operationDuration.WithLabelValues(BackendRedis, "get").Observe(time.Since(start).Seconds())
	}()

	fullKey := c.keyPrefix + key
	var result []byte
	err := c.do(ctx, "get", key, func() error {
		val, getErr := c.client.Get(ctx, fullKey).Bytes()
		if getErr != nil {
			return getErr
		}
		result = val
		return nil
	})

	switch {
	case err == nil:
		c.hits.Add(1)
		m.hitsTotal.WithLabelValues(BackendRedis).Inc()
		span.SetAttributes(
			attribute.Bool("cache.hit", true),
			attribute.Int("cache.value_size", len(result)),
		)
		return result, nil
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		m.missesTotal.WithLabelValues(BackendRedis).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	default:
		c.fail(span, "get", key, err)
		return nil, err
	}
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := c.startSpan(ctx, "Set", key)
	defer span.End()

	start := time.Now()
	defer func() {
		GetMetrics().operationDuration.WithLabelValues(BackendRedis, "set").Observe(time.Since(start).Seconds())
	}()

	if ttl == 0 {
		ttl = c.defaultTTL
	}
	ttl = applyTTLJitter(ttl, c.ttlJitter)
	if ttl < 0 {
		ttl = 0
	}

	fullKey := c.keyPrefix + key
	err := c.do(ctx, "set", key, func() error {
		return c.client.Set(ctx, fullKey, value, ttl).Err()
	})
	if err != nil {
		c.fail(span, "set", key, err)
		return err
	}
	span.SetAttributes(attribute.Int("cache.value_size", len(value)))
	return nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	ctx, span := c.startSpan(ctx, "Delete", key)
	defer span.End()

	fullKey := c.keyPrefix + key
	err := c.do(ctx, "delete", key, func() error {
		return c.client.Del(ctx, fullKey).Err()
	})
	if err != nil {
		c.fail(span, "delete", key, err)
		return err
	}
	return nil
}

// Ping implements Cache.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Backend implements Cache.
func (c *RedisCache) Backend() string { return BackendRedis }

// Stats returns hit and miss counts. Size is not tracked for Redis.
func (c *RedisCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	c.logger.Info("redis cache closed")
	return c.client.Close()
}
