package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/vyrodovalexey/avagroups/internal/cache"
	"github.com/vyrodovalexey/avagroups/internal/config"
	"github.com/vyrodovalexey/avagroups/internal/groups"
	"github.com/vyrodovalexey/avagroups/internal/observability"
	"github.com/vyrodovalexey/avagroups/internal/retry"
	"github.com/vyrodovalexey/avagroups/internal/server"
	"github.com/vyrodovalexey/avagroups/internal/server/middleware"
	"github.com/vyrodovalexey/avagroups/internal/transform"
)

// application holds all application components.
type application struct {
	config        *config.Config
	logger        observability.Logger
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	cache         cache.Cache
	limiter       *middleware.RateLimiter
	server        *server.Server
	reloadMetrics *reloadMetrics

	// overrides are command line settings that win over reloaded files.
	overrides cliFlags
}

// newApplication wires every component from cfg.
func newApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics(cfg.Metrics.Namespace)
	metrics.SetBuildInfo(version, gitCommit, buildTime)
	registerPackageMetrics(metrics)

	tracer, err := observability.NewTracer(ctx, observability.TracerConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	resultCache := initCache(cfg, logger)
	limiter := middleware.NewRateLimiter(&cfg.RateLimit, logger)

	transformer := groups.NewResultTransformer(
		groups.WithLogger(logger),
		groups.WithMetrics(groups.GetTransformMetrics()),
	)

	srv := server.New(cfg, server.Deps{
		Logger:      logger,
		Metrics:     metrics,
		Cache:       resultCache,
		Transformer: transformer,
		Merger:      transform.NewTreeMerger(logger),
		RateLimiter: limiter,
		Version:     version,
	})

	logger.Info("application initialized",
		observability.String("address", cfg.Server.Addr()),
		observability.String("cache", resultCache.Backend()),
		observability.Bool("tracing", tracer.Enabled()),
		observability.Bool("rateLimit", limiter.Enabled()),
	)

	return &application{
		config:        cfg,
		logger:        logger,
		metrics:       metrics,
		tracer:        tracer,
		cache:         resultCache,
		limiter:       limiter,
		server:        srv,
		reloadMetrics: newReloadMetrics(metrics, cfg.Metrics.Namespace),
	}, nil
}

// registerPackageMetrics exposes the package level collectors on the
// service registry.
func registerPackageMetrics(m *observability.Metrics) {
	reg := m.Registry()

	tm := groups.GetTransformMetrics()
	tm.MustRegister(reg)
	tm.Init()

	mm := transform.GetMergeMetrics()
	mm.MustRegister(reg)
	mm.Init()

	cm := cache.GetMetrics()
	cm.MustRegister(reg)
	cm.Init()

	retry.GetMetrics().MustRegister(reg)
}

// initCache builds the configured cache. A backend that cannot be reached
// at startup degrades to no caching instead of failing the service.
func initCache(cfg *config.Config, logger observability.Logger) cache.Cache {
	c, err := cache.New(&cfg.Cache, logger)
	if err == nil {
		return c
	}

	if errors.Is(err, cache.ErrConnectionFailed) {
		logger.Error("cache backend unreachable, serving without cache",
			observability.String("type", cfg.Cache.Type),
			observability.Error(err))
	} else {
		logger.Error("invalid cache configuration, serving without cache", observability.Error(err))
	}
	return cache.NewDisabled()
}

// run serves until ctx is cancelled or the server fails, then shuts every
// component down.
func (app *application) run(ctx context.Context, configPath string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start(context.WithoutCancel(ctx))
	}()

	watcher := app.startConfigWatcher(ctx, configPath)

	var serveErr error
	select {
	case <-ctx.Done():
		app.logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		if serveErr != nil {
			app.logger.Error("HTTP server failed", observability.Error(serveErr))
		}
	}

	app.shutdown(watcher)
	return serveErr
}

// shutdown stops the components in reverse order of their dependencies.
func (app *application) shutdown(watcher *config.Watcher) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout.Duration())
	defer cancel()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			app.logger.Warn("failed to stop config watcher", observability.Error(err))
		}
		app.reloadMetrics.watcherRunning.Set(0)
	}

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("failed to stop HTTP server gracefully", observability.Error(err))
	}

	if err := app.cache.Close(); err != nil {
		app.logger.Error("failed to close cache", observability.Error(err))
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	app.logger.Info("groupsd stopped")
}
