package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "groupsd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 9090
  readTimeout: 5s
logging:
  level: debug
  format: console
cache:
  type: redis
  ttl: 1m
  redis:
    url: redis://localhost:6379/2
  circuitBreaker:
    enabled: true
rateLimit:
  enabled: true
  requestsPerSecond: 10
  burst: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout.Duration())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, LogFormatConsole, cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, CacheTypeRedis, cfg.Cache.Type)
	assert.Equal(t, time.Minute, cfg.Cache.TTL.Duration())
	require.NotNil(t, cfg.Cache.Redis)
	assert.Equal(t, "groupsd:", cfg.Cache.Redis.KeyPrefix)
	assert.Equal(t, 5, cfg.Cache.CircuitBreaker.Threshold)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10.0, cfg.RateLimit.RequestsPerSecond)
}

func TestLoad_ExplicitFalseOverridesDefault(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "metrics:\n  enabled: false\ncache:\n  enabled: false\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoad_EmptyFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/groupsd.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		errText string
	}{
		{name: "malformed yaml", content: "server: [", errText: "failed to parse YAML"},
		{name: "unknown field", content: "server:\n  portt: 1\n", errText: "failed to parse YAML"},
		{name: "bad duration", content: "server:\n  readTimeout: soon\n", errText: "failed to parse YAML"},
		{name: "invalid value", content: "server:\n  port: 70000\n", errText: "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewLoader().LoadFromReader(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoad_InvalidReturnsValidationErrors(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().LoadFromReader(strings.NewReader("logging:\n  level: loud\ncache:\n  type: disk\n"))
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.ElementsMatch(t, []string{"logging.level", "cache.type"}, verrs.Paths())
}

func TestLoader_SubstituteEnvVars(t *testing.T) {
	t.Parallel()

	env := map[string]string{"REDIS_HOST": "cache.internal", "EMPTY": ""}
	l := &Loader{lookupEnv: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set variable", input: "url: redis://${REDIS_HOST}:6379", want: "url: redis://cache.internal:6379"},
		{name: "default used", input: "port: ${PORT:-8080}", want: "port: 8080"},
		{name: "set but empty wins over default", input: "x: ${EMPTY:-fallback}", want: "x: "},
		{name: "missing without default", input: "x: ${MISSING}", want: "x: "},
		{name: "escaped dollar", input: "x: $${REDIS_HOST}", want: "x: ${REDIS_HOST}"},
		{name: "no pattern", input: "plain: value", want: "plain: value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, l.substituteEnvVars(tt.input))
		})
	}
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("GROUPSD_TEST_PORT", "9191")

	cfg, err := Load(writeConfig(t, "server:\n  port: ${GROUPSD_TEST_PORT}\n"))
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoad_SampleConfig(t *testing.T) {
	t.Setenv("GROUPSD_PORT", "")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg, err := Load(filepath.Join("..", "..", "configs", "groupsd.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default().Server, cfg.Server)
	assert.Equal(t, CacheTypeMemory, cfg.Cache.Type)
	require.NotNil(t, cfg.Cache.Redis)
	assert.Equal(t, "redis://cache:6379/1", cfg.Cache.Redis.URL)
	require.NotNil(t, cfg.Cache.CircuitBreaker)
	assert.True(t, cfg.Cache.CircuitBreaker.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
}
