// Package observability provides logging, metrics, and tracing
// for the groups service.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("tree built", observability.Int("groups", 3))
//
// Library constructors accept a nil Logger and fall back to NopLogger.
//
// # Metrics
//
// NewMetrics owns the Prometheus registry served on /metrics. Package level
// metric singletons (groups, cache) register themselves into it with
// MustRegister.
//
// # Tracing
//
// NewTracer installs an OpenTelemetry tracer provider exporting over OTLP
// gRPC. When tracing is disabled the global no-op provider stays in place.
package observability
