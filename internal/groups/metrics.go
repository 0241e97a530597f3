package groups

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TransformMetrics contains Prometheus metrics for result transformation.
type TransformMetrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	groupsTotal      prometheus.Counter
	emptyGroupsTotal prometheus.Counter
	droppedValues    prometheus.Counter
}

var (
	transformMetricsInstance *TransformMetrics
	transformMetricsOnce     sync.Once
)

// GetTransformMetrics returns the singleton transform metrics instance.
func GetTransformMetrics() *TransformMetrics {
	transformMetricsOnce.Do(func() {
		transformMetricsInstance = &TransformMetrics{
			runsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "groups",
					Subsystem: "transform",
					Name:      "runs_total",
					Help:      "Total number of result set transformations",
				},
				[]string{"source", "result"},
			),
			runDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "groups",
					Subsystem: "transform",
					Name:      "duration_seconds",
					Help:      "Duration of result set transformations in seconds",
					Buckets: []float64{
						.00001, .00005, .0001, .0005,
						.001, .005, .01, .05, .1,
					},
				},
			),
			groupsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "groups",
					Subsystem: "transform",
					Name:      "groups_total",
					Help:      "Total number of groups transformed",
				},
			),
			emptyGroupsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "groups",
					Subsystem: "transform",
					Name:      "empty_groups_total",
					Help:      "Total number of groups without aggregate data",
				},
			),
			droppedValues: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "groups",
					Name:      "dropped_values_total",
					Help:      "Scalar entries skipped inside attribute-shaped aggregates",
				},
			),
		}
	})
	return transformMetricsInstance
}

// MustRegister registers the collectors with registry. promauto uses the
// default registry while the service serves its own.
func (m *TransformMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.groupsTotal,
		m.emptyGroupsTotal,
		m.droppedValues,
	)
}

// Init pre-creates label combinations so series appear at startup.
func (m *TransformMetrics) Init() {
	for _, source := range []string{sourceTyped, sourceDecoded} {
		m.runsTotal.WithLabelValues(source, "success")
		m.runsTotal.WithLabelValues(source, "error")
	}
}

// RecordRun records one completed run.
func (m *TransformMetrics) RecordRun(source string, groups, empty int, d time.Duration) {
	m.runsTotal.WithLabelValues(source, "success").Inc()
	m.runDuration.Observe(d.Seconds())
	m.groupsTotal.Add(float64(groups))
	m.emptyGroupsTotal.Add(float64(empty))
}

// RecordError records input that could not be transformed.
func (m *TransformMetrics) RecordError(source string) {
	m.runsTotal.WithLabelValues(source, "error").Inc()
}

// RecordDropped records skipped scalar entries.
func (m *TransformMetrics) RecordDropped(n int) {
	if n > 0 {
		m.droppedValues.Add(float64(n))
	}
}
