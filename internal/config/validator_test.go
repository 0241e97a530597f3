package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		paths  []string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Server.Port = 0 },
			paths:  []string{"server.port"},
		},
		{
			name:   "negative timeouts",
			mutate: func(c *Config) { c.Server.ReadTimeout = -1; c.Server.ShutdownTimeout = -1 },
			paths:  []string{"server.readTimeout", "server.shutdownTimeout"},
		},
		{
			name:   "bad logging",
			mutate: func(c *Config) { c.Logging = LoggingConfig{Level: "verbose", Format: "xml", Output: " "} },
			paths:  []string{"logging.level", "logging.format", "logging.output"},
		},
		{
			name:   "metrics path",
			mutate: func(c *Config) { c.Metrics.Path = "metrics" },
			paths:  []string{"metrics.path"},
		},
		{
			name:   "metrics path ignored when disabled",
			mutate: func(c *Config) { c.Metrics.Enabled = false; c.Metrics.Path = "metrics" },
		},
		{
			name:   "sampling rate",
			mutate: func(c *Config) { c.Tracing.SamplingRate = 1.5 },
			paths:  []string{"tracing.samplingRate"},
		},
		{
			name:   "redis without url",
			mutate: func(c *Config) { c.Cache.Type = CacheTypeRedis },
			paths:  []string{"cache.redis.url"},
		},
		{
			name: "redis wrong scheme and jitter",
			mutate: func(c *Config) {
				c.Cache.Type = CacheTypeRedis
				c.Cache.Redis = &RedisCacheConfig{URL: "http://localhost", TTLJitter: 2}
			},
			paths: []string{"cache.redis.url", "cache.redis.ttlJitter"},
		},
		{
			name:   "disabled cache skips checks",
			mutate: func(c *Config) { c.Cache.Enabled = false; c.Cache.Type = "disk" },
		},
		{
			name: "breaker threshold",
			mutate: func(c *Config) {
				c.Cache.CircuitBreaker = &CircuitBreakerConfig{Enabled: true, Threshold: 0}
			},
			paths: []string{"cache.circuitBreaker.threshold"},
		},
		{
			name: "rate limit",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{Enabled: true, RequestsPerSecond: 0, Burst: 0}
			},
			paths: []string{"rateLimit.requestsPerSecond", "rateLimit.burst"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)

			if len(tt.paths) == 0 {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.ElementsMatch(t, tt.paths, verrs.Paths())
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	t.Parallel()

	err := Validate(nil)
	require.Error(t, err)
	assert.Equal(t, "configuration is nil", err.Error())
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.Equal(t, "a: bad", ValidationErrors{{Path: "a", Message: "bad"}}.Error())

	multi := ValidationErrors{{Path: "a", Message: "bad"}, {Message: "worse"}}.Error()
	assert.Contains(t, multi, "2 validation errors")
	assert.Contains(t, multi, "1. a: bad")
	assert.Contains(t, multi, "2. worse")
}
