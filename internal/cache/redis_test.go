package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avagroups/internal/config"
)

func setupMiniRedis(t *testing.T, mutate func(*config.CacheConfig)) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &config.CacheConfig{
		Enabled: true,
		Type:    config.CacheTypeRedis,
		TTL:     config.Duration(time.Minute),
		Redis:   &config.RedisCacheConfig{URL: "redis://" + mr.Addr()},
	}
	if mutate != nil {
		mutate(cfg)
	}

	c, err := newRedisCache(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestNewRedisCache_NilLogger(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.CacheConfig{
		TTL:   config.Duration(time.Minute),
		Redis: &config.RedisCacheConfig{URL: "redis://" + mr.Addr()},
	}

	var c *RedisCache
	var err error
	require.NotPanics(t, func() { c, err = newRedisCache(cfg, nil) })
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.NotNil(t, c.logger)
	assert.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
}

func TestRedisCache_GetSetDelete(t *testing.T) {
	mr, c := setupMiniRedis(t, nil)
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte(`{"a":1}`), 0))
	assert.True(t, mr.Exists(config.DefaultRedisKeyPrefix+"k"))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, mr.Exists(config.DefaultRedisKeyPrefix+"k"))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, BackendRedis, c.Backend())
	assert.NoError(t, c.Ping(ctx))
}

func TestRedisCache_KeyPrefix(t *testing.T) {
	mr, c := setupMiniRedis(t, func(cfg *config.CacheConfig) {
		cfg.Redis.KeyPrefix = "test:"
	})

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))

	val, err := mr.Get("test:k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestRedisCache_TTL(t *testing.T) {
	mr, c := setupMiniRedis(t, nil)
	ctx := context.Background()
	prefix := config.DefaultRedisKeyPrefix

	require.NoError(t, c.Set(ctx, "default", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "explicit", []byte("b"), 10*time.Second))
	require.NoError(t, c.Set(ctx, "forever", []byte("c"), -1))

	assert.Equal(t, time.Minute, mr.TTL(prefix+"default"))
	assert.Equal(t, 10*time.Second, mr.TTL(prefix+"explicit"))
	assert.Zero(t, mr.TTL(prefix+"forever"))

	mr.FastForward(11 * time.Second)
	_, err := c.Get(ctx, "explicit")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "default")
	assert.NoError(t, err)
}

func TestRedisCache_ServerError(t *testing.T) {
	mr, c := setupMiniRedis(t, nil)
	ctx := context.Background()

	mr.SetError("LOADING dataset in memory")
	defer mr.SetError("")

	_, err := c.Get(ctx, "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))
	assert.Error(t, c.Set(ctx, "k", []byte("v"), 0))
	assert.Error(t, c.Delete(ctx, "k"))
}

func TestApplyTTLJitter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ttl    time.Duration
		factor float64
		exact  bool
	}{
		{name: "no jitter", ttl: time.Minute, factor: 0, exact: true},
		{name: "zero ttl", ttl: 0, factor: 0.5, exact: true},
		{name: "negative ttl", ttl: -1, factor: 0.5, exact: true},
		{name: "half", ttl: time.Minute, factor: 0.5},
		{name: "clamped", ttl: time.Minute, factor: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for i := 0; i < 50; i++ {
				got := applyTTLJitter(tt.ttl, tt.factor)
				if tt.exact {
					assert.Equal(t, tt.ttl, got)
					continue
				}
				factor := tt.factor
				if factor > 1 {
					factor = 1
				}
				spread := time.Duration(float64(tt.ttl) * factor)
				assert.Greater(t, got, time.Duration(0))
				assert.LessOrEqual(t, got, tt.ttl+spread)
				assert.GreaterOrEqual(t, got, tt.ttl-spread)
			}
		})
	}
}

func TestIsRetryableRedisError(t *testing.T) {
	t.Parallel()

	assert.False(t, isRetryableRedisError(redis.Nil))
	assert.False(t, isRetryableRedisError(context.Canceled))
	assert.True(t, isRetryableRedisError(io.EOF))
	assert.False(t, isRetryableRedisError(errors.New("plain")))
}

func TestResolveKeyPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, config.DefaultRedisKeyPrefix, resolveKeyPrefix(""))
	assert.Equal(t, "x:", resolveKeyPrefix("x:"))
}
