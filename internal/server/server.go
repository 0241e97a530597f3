package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avagroups/internal/cache"
	"github.com/vyrodovalexey/avagroups/internal/config"
	"github.com/vyrodovalexey/avagroups/internal/groups"
	"github.com/vyrodovalexey/avagroups/internal/health"
	"github.com/vyrodovalexey/avagroups/internal/observability"
	"github.com/vyrodovalexey/avagroups/internal/server/middleware"
	"github.com/vyrodovalexey/avagroups/internal/transform"
)

// Route paths.
const (
	TransformPath = "/api/v1/groups/transform"
	MergePath     = "/api/v1/groups/merge"
	HealthPath    = "/health"
	ReadyPath     = "/ready"
)

// ginModeOnce ensures gin.SetMode is only called once.
var ginModeOnce sync.Once

// Deps are the collaborators of the server. Nil fields get working
// defaults.
type Deps struct {
	Logger         observability.Logger
	Metrics        *observability.Metrics
	TracerProvider trace.TracerProvider
	Cache          cache.Cache
	Transformer    *groups.ResultTransformer
	Merger         *transform.TreeMerger
	RateLimiter    *middleware.RateLimiter
	Version        string
}

// Server is the HTTP front of the groups transformer.
type Server struct {
	engine      *gin.Engine
	httpServer  *http.Server
	config      *config.Config
	logger      observability.Logger
	metrics     *observability.Metrics
	cache       cache.Cache
	transformer *groups.ResultTransformer
	merger      *transform.TreeMerger
	limiter     *middleware.RateLimiter
	checker     *health.Checker

	mu      sync.Mutex
	running bool
}

// New builds the server and registers its routes. cfg must be validated.
func New(cfg *config.Config, deps Deps) *Server {
	ginModeOnce.Do(func() {
		if gin.Mode() == gin.DebugMode {
			gin.SetMode(gin.ReleaseMode)
		}
	})

	s := &Server{
		engine:      gin.New(),
		config:      cfg,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		cache:       deps.Cache,
		transformer: deps.Transformer,
		merger:      deps.Merger,
		limiter:     deps.RateLimiter,
		checker:     health.NewChecker(deps.Version),
	}
	if s.logger == nil {
		s.logger = observability.NopLogger()
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}
	if s.cache == nil {
		s.cache = cache.NewDisabled()
	}
	if s.transformer == nil {
		s.transformer = groups.NewResultTransformer(groups.WithLogger(s.logger))
	}
	if s.merger == nil {
		s.merger = transform.NewTreeMerger(s.logger)
	}
	if s.limiter == nil {
		s.limiter = middleware.NewRateLimiter(&cfg.RateLimit, s.logger)
	}
	s.checker.RegisterCheck("cache", health.PingCheck(s.cache.Backend(), s.cache.Ping))

	s.engine.Use(
		middleware.RequestID(),
		middleware.Logging(s.logger, true),
		middleware.Tracing(deps.TracerProvider),
		middleware.Metrics(s.metrics),
		middleware.Recovery(s.logger),
		middleware.RateLimit(s.limiter, s.metrics),
		middleware.BodyLimit(cfg.Server.MaxRequestBodySize, s.logger),
	)
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET(HealthPath, s.handleHealth)
	s.engine.GET(ReadyPath, s.handleReady)

	api := s.engine.Group("/api/v1/groups")
	api.POST("/transform", s.handleTransform)
	api.POST("/merge", s.handleMerge)

	if s.config.Metrics.Enabled {
		s.engine.GET(s.config.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// RateLimiter returns the limiter so reloads can adjust it.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.limiter
}

// Start listens on the configured address and serves until Shutdown. It
// returns nil after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server already running")
	}

	srv := s.config.Server
	s.httpServer = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  srv.ReadTimeout.Duration(),
		WriteTimeout: srv.WriteTimeout.Duration(),
		IdleTimeout:  srv.IdleTimeout.Duration(),
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.running = true
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", ln.Addr().String()),
		observability.Duration("readTimeout", srv.ReadTimeout.Duration()),
		observability.Duration("writeTimeout", srv.WriteTimeout.Duration()),
		observability.String("cache", s.cache.Backend()),
	)

	err := httpServer.Serve(ln)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	running := s.running
	s.mu.Unlock()

	if !running || httpServer == nil {
		return nil
	}

	s.logger.Info("stopping HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
