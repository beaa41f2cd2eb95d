package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stamp-market/internal/adapter"
	"github.com/feral-file/ff-stamp-market/internal/api/middleware"
	"github.com/feral-file/ff-stamp-market/internal/api/rest"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/executor"
	"github.com/feral-file/ff-stamp-market/internal/composer"
	"github.com/feral-file/ff-stamp-market/internal/logger"
	"github.com/feral-file/ff-stamp-market/internal/membership"
	"github.com/feral-file/ff-stamp-market/internal/ratelimit"
	"github.com/feral-file/ff-stamp-market/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug          bool
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	// ComposerPoolSize bounds the goroutines used to load side tables
	ComposerPoolSize int
	Executor         executor.Config
	// EngagementLimiter throttles the counter endpoints when set
	EngagementLimiter ratelimit.Limiter
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	store      store.Store
	clock      adapter.Clock
	composer   *composer.Composer
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, store store.Store, clock adapter.Clock) *Server {
	return &Server{
		config: cfg,
		store:  store,
		clock:  clock,
	}
}

// Router builds the gin engine with middleware and every REST route
func (s *Server) Router() *gin.Engine {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS(s.config.AllowedOrigins))

	index := membership.NewIndex(s.store, s.clock)
	if s.composer == nil {
		s.composer = composer.New(s.store, index, s.config.ComposerPoolSize)
	}
	exec := executor.NewExecutor(s.store, index, s.composer, s.clock, s.config.Executor)

	var engagement []gin.HandlerFunc
	if s.config.EngagementLimiter != nil {
		engagement = append(engagement, middleware.Throttle(s.config.EngagementLimiter))
	}
	rest.SetupRoutes(router, rest.NewHandler(exec), engagement...)
	return router
}

// Start initializes and starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	logger.InfoCtx(ctx, "Starting API server",
		zap.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server and drains the composer pool
func (s *Server) Shutdown(ctx context.Context) error {
	logger.InfoCtx(ctx, "Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	if s.composer != nil {
		s.composer.Close()
	}
	if s.config.EngagementLimiter != nil {
		if err := s.config.EngagementLimiter.Close(); err != nil {
			logger.WarnCtx(ctx, "Failed to close engagement limiter", zap.Error(err))
		}
	}

	return nil
}
