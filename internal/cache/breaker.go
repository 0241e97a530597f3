package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avagroups/internal/observability"
)

// ErrCircuitOpen indicates that the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("cache circuit open")

// BreakerCache guards another Cache with a circuit breaker. Misses count
// as successes; only backend failures trip the breaker.
type BreakerCache struct {
	next   Cache
	cb     *gobreaker.CircuitBreaker
	logger observability.Logger
}

// NewBreaker wraps next. The breaker opens once at least threshold
// requests were seen in the current interval and half of them failed, and
// stays open for timeout.
func NewBreaker(next Cache, threshold int, timeout time.Duration, logger observability.Logger) *BreakerCache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	b := &BreakerCache{next: next, logger: logger}

	minRequests := safeIntToUint32(threshold)
	name := "cache_" + next.Backend()
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("cache circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			GetMetrics().circuitState.WithLabelValues(name).Set(float64(to))

			_, span := cacheTracer.Start(context.Background(), "cache.circuit_state_change",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			span.AddEvent("state_change", trace.WithAttributes(
				attribute.String("circuitbreaker.name", name),
				attribute.String("circuitbreaker.from", from.String()),
				attribute.String("circuitbreaker.to", to.String()),
			))
			span.End()
		},
	})
	GetMetrics().circuitState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return b
}

func safeIntToUint32(n int) uint32 {
	if n < 1 {
		return 1
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

func (b *BreakerCache) execute(fn func() (interface{}, error)) (interface{}, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return v, err
}

// Get implements Cache.
func (b *BreakerCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.execute(func() (interface{}, error) {
		return b.next.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Set implements Cache.
func (b *BreakerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.next.Set(ctx, key, value, ttl)
	})
	return err
}

// Delete implements Cache.
func (b *BreakerCache) Delete(ctx context.Context, key string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return err
}

// Ping bypasses the breaker so readiness reflects the backend itself.
func (b *BreakerCache) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

// Backend implements Cache.
func (b *BreakerCache) Backend() string { return b.next.Backend() }

// State returns the breaker state.
func (b *BreakerCache) State() gobreaker.State { return b.cb.State() }

// Close implements Cache.
func (b *BreakerCache) Close() error { return b.next.Close() }
