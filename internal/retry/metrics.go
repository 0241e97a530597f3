package retry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for retried operations.
type Metrics struct {
	attemptsTotal  *prometheus.CounterVec
	successTotal   *prometheus.CounterVec
	exhaustedTotal *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton retry metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			attemptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "groups",
					Subsystem: "retry",
					Name:      "attempts_total",
					Help:      "Total number of retry attempts",
				},
				[]string{"operation"},
			),
			successTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "groups",
					Subsystem: "retry",
					Name:      "success_total",
					Help:      "Total number of operations that succeeded after retrying",
				},
				[]string{"operation"},
			),
			exhaustedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "groups",
					Subsystem: "retry",
					Name:      "exhausted_total",
					Help:      "Total number of operations that failed after all attempts",
				},
				[]string{"operation"},
			),
		}
	})
	return metricsInstance
}

// MustRegister registers the collectors with registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.attemptsTotal, m.successTotal, m.exhaustedTotal)
}

func recordAttempt(operation string) {
	if operation != "" {
		GetMetrics().attemptsTotal.WithLabelValues(operation).Inc()
	}
}

func recordSuccess(operation string) {
	if operation != "" {
		GetMetrics().successTotal.WithLabelValues(operation).Inc()
	}
}

func recordExhausted(operation string) {
	if operation != "" {
		GetMetrics().exhaustedTotal.WithLabelValues(operation).Inc()
	}
}
