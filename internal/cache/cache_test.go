package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avagroups/internal/config"
)

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		cfg         *config.CacheConfig
		wantBackend string
		wantType    interface{}
		wantErr     error
	}{
		{name: "nil config", cfg: nil, wantErr: ErrInvalidConfig},
		{
			name:        "disabled",
			cfg:         &config.CacheConfig{Enabled: false, Type: config.CacheTypeRedis},
			wantBackend: BackendDisabled,
		},
		{
			name:        "memory",
			cfg:         &config.CacheConfig{Enabled: true, Type: config.CacheTypeMemory, MaxEntries: 10},
			wantBackend: BackendMemory,
			wantType:    &MemoryCache{},
		},
		{
			name:        "empty type is memory",
			cfg:         &config.CacheConfig{Enabled: true},
			wantBackend: BackendMemory,
			wantType:    &MemoryCache{},
		},
		{
			name: "redis",
			cfg: &config.CacheConfig{
				Enabled: true,
				Type:    config.CacheTypeRedis,
				Redis:   &config.RedisCacheConfig{URL: "redis://" + mr.Addr()},
			},
			wantBackend: BackendRedis,
			wantType:    &RedisCache{},
		},
		{
			name: "redis with breaker",
			cfg: &config.CacheConfig{
				Enabled:        true,
				Type:           config.CacheTypeRedis,
				Redis:          &config.RedisCacheConfig{URL: "redis://" + mr.Addr()},
				CircuitBreaker: &config.CircuitBreakerConfig{Enabled: true, Threshold: 2, Timeout: config.Duration(time.Second)},
			},
			wantBackend: BackendRedis,
			wantType:    &BreakerCache{},
		},
		{
			name:    "redis without url",
			cfg:     &config.CacheConfig{Enabled: true, Type: config.CacheTypeRedis},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "redis bad url",
			cfg: &config.CacheConfig{
				Enabled: true,
				Type:    config.CacheTypeRedis,
				Redis:   &config.RedisCacheConfig{URL: "http://nope"},
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown type",
			cfg:     &config.CacheConfig{Enabled: true, Type: "disk"},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg, nil)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			defer func() { _ = c.Close() }()

			assert.Equal(t, tt.wantBackend, c.Backend())
			if tt.wantType != nil {
				assert.IsType(t, tt.wantType, c)
			}
			assert.NoError(t, c.Ping(context.Background()))
		})
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(&config.CacheConfig{
		Enabled: true,
		Type:    config.CacheTypeRedis,
		Redis:   &config.RedisCacheConfig{URL: "redis://" + addr, ConnectTimeout: config.Duration(200 * time.Millisecond)},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed))
}

func TestDisabledCache(t *testing.T) {
	t.Parallel()

	c := NewDisabled()
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheDisabled)
	assert.ErrorIs(t, c.Set(ctx, "k", []byte("v"), 0), ErrCacheDisabled)
	assert.ErrorIs(t, c.Delete(ctx, "k"), ErrCacheDisabled)
	assert.NoError(t, c.Ping(ctx))
	assert.Equal(t, BackendDisabled, c.Backend())
	assert.NoError(t, c.Close())
}

func TestStats_HitRate(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Stats{}.HitRate())
	assert.Equal(t, 75.0, Stats{Hits: 3, Misses: 1}.HitRate())
}

func TestKey(t *testing.T) {
	t.Parallel()

	a := Key("transform", []byte(`{"results":[]}`))
	b := Key("transform", []byte(`{"results":[]}`))
	c := Key("transform", []byte(`{"results":[1]}`))
	d := Key("merge", []byte(`{"results":[]}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.True(t, strings.HasPrefix(a, "transform:"))
	assert.Len(t, a, len("transform:")+64)
}
