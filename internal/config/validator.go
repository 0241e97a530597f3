package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ValidationError is a single invalid field.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every invalid field found in one pass.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "no validation errors"
	case 1:
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e[i].Error())
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Paths returns the field paths of every error.
func (e ValidationErrors) Paths() []string {
	paths := make([]string, 0, len(e))
	for i := range e {
		paths = append(paths, e[i].Path)
	}
	return paths
}

type validator struct {
	errors ValidationErrors
}

func (v *validator) addError(path, format string, args ...interface{}) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate checks cfg and returns ValidationErrors when anything is wrong.
func Validate(cfg *Config) error {
	v := &validator{}
	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&cfg.Server)
	v.validateLogging(&cfg.Logging)
	v.validateMetrics(&cfg.Metrics)
	v.validateTracing(&cfg.Tracing)
	v.validateCache(&cfg.Cache)
	v.validateRateLimit(&cfg.RateLimit)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *validator) validateServer(s *ServerConfig) {
	if s.Port < 1 || s.Port > 65535 {
		v.addError("server.port", "port must be between 1 and 65535, got %d", s.Port)
	}
	if s.ReadTimeout < 0 {
		v.addError("server.readTimeout", "must not be negative")
	}
	if s.WriteTimeout < 0 {
		v.addError("server.writeTimeout", "must not be negative")
	}
	if s.IdleTimeout < 0 {
		v.addError("server.idleTimeout", "must not be negative")
	}
	if s.ShutdownTimeout < 0 {
		v.addError("server.shutdownTimeout", "must not be negative")
	}
	if s.MaxRequestBodySize < 0 {
		v.addError("server.maxRequestBodySize", "must not be negative")
	}
}

func (v *validator) validateLogging(l *LoggingConfig) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		v.addError("logging.level", "unknown level %q", l.Level)
	}
	if l.Format != LogFormatJSON && l.Format != LogFormatConsole {
		v.addError("logging.format", "format must be %q or %q", LogFormatJSON, LogFormatConsole)
	}
	if strings.TrimSpace(l.Output) == "" {
		v.addError("logging.output", "output must be stdout, stderr or a file path")
	}
}

func (v *validator) validateMetrics(m *MetricsConfig) {
	if m.Enabled && !strings.HasPrefix(m.Path, "/") {
		v.addError("metrics.path", "path must start with '/'")
	}
}

func (v *validator) validateTracing(t *TracingConfig) {
	if t.SamplingRate < 0 || t.SamplingRate > 1 {
		v.addError("tracing.samplingRate", "samplingRate must be between 0 and 1")
	}
}

func (v *validator) validateCache(c *CacheConfig) {
	if !c.Enabled {
		return
	}
	if c.TTL < 0 {
		v.addError("cache.ttl", "must not be negative")
	}
	if c.MaxEntries < 0 {
		v.addError("cache.maxEntries", "must not be negative")
	}

	switch c.Type {
	case CacheTypeMemory:
	case CacheTypeRedis:
		v.validateRedis(c.Redis)
	default:
		v.addError("cache.type", "unknown cache type %q", c.Type)
	}

	if cb := c.CircuitBreaker; cb != nil && cb.Enabled {
		if cb.Threshold < 1 {
			v.addError("cache.circuitBreaker.threshold", "threshold must be at least 1")
		}
		if cb.Timeout < 0 {
			v.addError("cache.circuitBreaker.timeout", "must not be negative")
		}
	}
}

func (v *validator) validateRedis(r *RedisCacheConfig) {
	if r == nil || r.URL == "" {
		v.addError("cache.redis.url", "url is required for redis cache")
		return
	}
	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		v.addError("cache.redis.url", "url must use the redis:// or rediss:// scheme")
	}
	if r.PoolSize < 0 {
		v.addError("cache.redis.poolSize", "must not be negative")
	}
	if r.TTLJitter < 0 || r.TTLJitter > 1 {
		v.addError("cache.redis.ttlJitter", "ttlJitter must be between 0 and 1")
	}
}

func (v *validator) validateRateLimit(r *RateLimitConfig) {
	if !r.Enabled {
		return
	}
	if r.RequestsPerSecond <= 0 {
		v.addError("rateLimit.requestsPerSecond", "must be positive")
	}
	if r.Burst < 1 {
		v.addError("rateLimit.burst", "burst must be at least 1")
	}
}
