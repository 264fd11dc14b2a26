// Package server wires the HTTP surface: the gin engine, the ambient
// middleware, and the per-route pipelines in front of the task store
// and the identity provider.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taskgate/taskgate/internal/auth"
	"github.com/taskgate/taskgate/internal/health"
	"github.com/taskgate/taskgate/internal/observability"
	"github.com/taskgate/taskgate/internal/ratelimit"
	"github.com/taskgate/taskgate/internal/task"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions
var ginModeOnce sync.Once

// Config holds configuration for the HTTP server.
type Config struct {
	Port           int
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// MaxRequestBodySize is the maximum allowed request body size in
	// bytes. Set to 0 to disable the limit.
	MaxRequestBodySize int64

	// Development includes upstream error detail in responses.
	Development bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Port:               8080,
		Address:            "",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        120 * time.Second,
		MaxHeaderBytes:     1 << 20,
		MaxRequestBodySize: 1 << 20,
	}
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Tasks    task.Store
	Provider auth.Provider
	Limits   *ratelimit.Registry
	Metrics  *observability.Metrics
	Health   *health.Handler

	// KeyFunc derives the rate limit caller key from a request. Nil
	// means the client IP.
	KeyFunc ratelimit.KeyFunc
}

// Server is the HTTP server for the task service.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     *Config
	deps       Deps
	keyFunc    ratelimit.KeyFunc
	logger     *zap.Logger
	mu         sync.RWMutex
	running    bool
}

// New creates a server with its middleware and routes registered.
func New(config *Config, deps Deps, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	keyFunc := deps.KeyFunc
	if keyFunc == nil {
		keyFunc = ratelimit.IPKeyFunc
	}

	s := &Server{
		engine:  gin.New(),
		config:  config,
		deps:    deps,
		keyFunc: keyFunc,
		logger:  logger,
	}

	s.engine.Use(Recovery(observability.WrapZap(logger)))
	s.engine.Use(RequestID())
	s.engine.Use(Logging(LoggingConfig{
		Logger:    observability.WrapZap(logger),
		SkipPaths: []string{"/health/live", "/health/ready", "/metrics"},
	}))
	if deps.Metrics != nil {
		s.engine.Use(MetricsMiddleware(deps.Metrics))
	}
	if config.MaxRequestBodySize > 0 {
		s.engine.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxRequestBodySize)
			c.Next()
		})
	}

	s.registerRoutes()

	return s
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)

	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		zap.String("address", addr),
		zap.Duration("readTimeout", s.config.ReadTimeout),
		zap.Duration("writeTimeout", s.config.WriteTimeout),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
