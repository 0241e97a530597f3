package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/avagroups/internal/config"
	"github.com/vyrodovalexey/avagroups/internal/observability"
)

// RateLimiter is a process wide token bucket whose limits can change while
// requests are flowing. A nil bucket means limiting is off.
type RateLimiter struct {
	bucket atomic.Pointer[rate.Limiter]
	logger observability.Logger
}

// NewRateLimiter creates a limiter from cfg. A nil cfg creates a disabled
// limiter.
func NewRateLimiter(cfg *config.RateLimitConfig, logger observability.Logger) *RateLimiter {
	if logger == nil {
		logger = observability.NopLogger()
	}
	rl := &RateLimiter{logger: logger}
	rl.Update(cfg)
	return rl
}

// Update applies new limits. An active bucket keeps its tokens and only has
// its limit and burst changed.
func (rl *RateLimiter) Update(cfg *config.RateLimitConfig) {
	if cfg == nil || !cfg.Enabled {
		if rl.bucket.Swap(nil) != nil {
			rl.logger.Info("rate limit disabled")
		}
		return
	}

	limit := rate.Limit(cfg.RequestsPerSecond)
	if b := rl.bucket.Load(); b != nil {
		b.SetLimit(limit)
		b.SetBurst(cfg.Burst)
	} else {
		rl.bucket.Store(rate.NewLimiter(limit, cfg.Burst))
	}

	rl.logger.Info("rate limit updated",
		observability.Float64("requestsPerSecond", cfg.RequestsPerSecond),
		observability.Int("burst", cfg.Burst),
	)
}

// Enabled reports whether requests are being limited.
func (rl *RateLimiter) Enabled() bool {
	return rl.bucket.Load() != nil
}

// Allow reports whether a request may proceed now.
func (rl *RateLimiter) Allow() bool {
	b := rl.bucket.Load()
	return b == nil || b.Allow()
}

// Limit returns the current requests per second and burst. A disabled
// limiter reports zero for both.
func (rl *RateLimiter) Limit() (float64, int) {
	b := rl.bucket.Load()
	if b == nil {
		return 0, 0
	}
	return float64(b.Limit()), b.Burst()
}

// RateLimit answers 429 once the limiter runs dry. Health probes are never
// limited.
func RateLimit(rl *RateLimiter, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isHealthCheckPath(c.Request.URL.Path) || rl.Allow() {
			c.Next()
			return
		}

		route := routeOf(c)
		if m != nil {
			m.RecordRateLimitHit(route)
		}
		rl.logger.WithContext(c.Request.Context()).Debug("rate limit exceeded",
			observability.String("route", route),
			observability.String("clientIP", c.ClientIP()),
		)

		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rl)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}

func retryAfterSeconds(rl *RateLimiter) int {
	rps, _ := rl.Limit()
	if rps <= 0 || rps >= 1 {
		return 1
	}
	return int(math.Ceil(1 / rps))
}
