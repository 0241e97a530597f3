package transform

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MergeMetrics contains Prometheus metrics for tree merges.
type MergeMetrics struct {
	mergesTotal   *prometheus.CounterVec
	mergeDuration *prometheus.HistogramVec
}

var (
	mergeMetricsInstance *MergeMetrics
	mergeMetricsOnce     sync.Once
)

// GetMergeMetrics returns the singleton merge metrics instance.
func GetMergeMetrics() *MergeMetrics {
	mergeMetricsOnce.Do(func() {
		mergeMetricsInstance = &MergeMetrics{
			mergesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "groups",
					Subsystem: "merge",
					Name:      "operations_total",
					Help:      "Total number of tree merge operations",
				},
				[]string{"strategy", "result"},
			),
			mergeDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "groups",
					Subsystem: "merge",
					Name:      "duration_seconds",
					Help:      "Duration of tree merge operations in seconds",
					Buckets: []float64{
						.00001, .0001, .0005, .001,
						.005, .01, .05, .1,
					},
				},
				[]string{"strategy"},
			),
		}
	})
	return mergeMetricsInstance
}

// MustRegister registers the merge collectors with registry. promauto
// registers with the default registry while the service serves its own.
func (m *MergeMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.mergesTotal, m.mergeDuration)
}

// Init pre-creates label combinations so series appear at startup.
func (m *MergeMetrics) Init() {
	for _, s := range []string{MergeStrategyDeep, MergeStrategyShallow, MergeStrategyReplace} {
		m.mergesTotal.WithLabelValues(s, "success")
		m.mergeDuration.WithLabelValues(s)
	}
	m.mergesTotal.WithLabelValues("unknown", "error")
}

// RecordMerge records one merge.
func (m *MergeMetrics) RecordMerge(strategy, result string, d time.Duration) {
	m.mergesTotal.WithLabelValues(strategy, result).Inc()
	if result == "success" {
		m.mergeDuration.WithLabelValues(strategy).Observe(d.Seconds())
	}
}
