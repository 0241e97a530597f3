package main

import (
	"context"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/avagroups/internal/config"
	"github.com/vyrodovalexey/avagroups/internal/observability"
)

// Reload results.
const (
	reloadSuccess = "success"
	reloadError   = "error"
)

// reloadMetrics tracks configuration hot reloads.
type reloadMetrics struct {
	reloadTotal    *prometheus.CounterVec
	lastSuccess    prometheus.Gauge
	watcherRunning prometheus.Gauge
}

func newReloadMetrics(m *observability.Metrics, namespace string) *reloadMetrics {
	rm := &reloadMetrics{
		reloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_total",
				Help:      "Total number of configuration reloads",
			},
			[]string{"result"},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_reload_last_success_timestamp",
				Help:      "Timestamp of the last successful configuration reload",
			},
		),
		watcherRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_watcher_running",
				Help:      "Whether the configuration watcher is running (1=running, 0=stopped)",
			},
		),
	}
	m.MustRegisterCollector(rm.reloadTotal, rm.lastSuccess, rm.watcherRunning)
	rm.reloadTotal.WithLabelValues(reloadSuccess)
	rm.reloadTotal.WithLabelValues(reloadError)
	return rm
}

// startConfigWatcher watches configPath and applies changes. It returns nil
// when there is no file to watch or the watcher could not start.
func (app *application) startConfigWatcher(ctx context.Context, configPath string) *config.Watcher {
	if configPath == "" {
		return nil
	}

	watcher, err := config.NewWatcher(configPath,
		func(newCfg *config.Config) {
			applyLogOverrides(newCfg, app.overrides)
			app.applyConfig(newCfg)
		},
		config.WithLogger(app.logger),
		config.WithErrorCallback(func(err error) {
			app.reloadMetrics.reloadTotal.WithLabelValues(reloadError).Inc()
		}),
	)
	if err != nil {
		app.logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		app.logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		return nil
	}

	app.reloadMetrics.watcherRunning.Set(1)
	return watcher
}

// applyConfig applies the parts of newCfg that can change at runtime and
// logs the sections that only take effect after a restart.
func (app *application) applyConfig(newCfg *config.Config) {
	start := time.Now()
	old := app.config

	app.limiter.Update(&newCfg.RateLimit)

	if newCfg.Logging.Level != old.Logging.Level {
		if err := app.logger.SetLevel(newCfg.Logging.Level); err != nil {
			app.logger.Warn("failed to apply log level",
				observability.String("level", newCfg.Logging.Level),
				observability.Error(err))
		}
	}

	restart := restartRequiredSections(old, newCfg)
	if len(restart) > 0 {
		app.logger.Warn("configuration sections changed that require a restart",
			observability.Strings("sections", restart))
	}

	app.reloadMetrics.reloadTotal.WithLabelValues(reloadSuccess).Inc()
	app.reloadMetrics.lastSuccess.SetToCurrentTime()

	app.logger.Info("configuration reloaded",
		observability.String("logLevel", newCfg.Logging.Level),
		observability.Bool("rateLimit", newCfg.RateLimit.Enabled),
		observability.Float64("requestsPerSecond", newCfg.RateLimit.RequestsPerSecond),
		observability.Int("burst", newCfg.RateLimit.Burst),
		observability.Duration("duration", time.Since(start)),
	)
}

// restartRequiredSections names the sections of next that differ from prev
// but are only read at startup.
func restartRequiredSections(prev, next *config.Config) []string {
	var sections []string
	if !reflect.DeepEqual(prev.Server, next.Server) {
		sections = append(sections, "server")
	}
	if prev.Logging.Format != next.Logging.Format || prev.Logging.Output != next.Logging.Output {
		sections = append(sections, "logging")
	}
	if !reflect.DeepEqual(prev.Metrics, next.Metrics) {
		sections = append(sections, "metrics")
	}
	if !reflect.DeepEqual(prev.Tracing, next.Tracing) {
		sections = append(sections, "tracing")
	}
	if !reflect.DeepEqual(prev.Cache, next.Cache) {
		sections = append(sections, "cache")
	}
	return sections
}
