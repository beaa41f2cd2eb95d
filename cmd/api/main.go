package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-stamp-market/internal/adapter"
	"github.com/feral-file/ff-stamp-market/internal/api/server"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/executor"
	"github.com/feral-file/ff-stamp-market/internal/config"
	"github.com/feral-file/ff-stamp-market/internal/logger"
	"github.com/feral-file/ff-stamp-market/internal/ratelimit"
	"github.com/feral-file/ff-stamp-market/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		Service:         "stamp-market-api",
		Environment:     cfg.Environment,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "stamp-market-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Feral File Stamp Market API")

	dataStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize store", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}

	clock := adapter.NewClock()

	var engagementLimiter ratelimit.Limiter
	if cfg.Engagement.ThrottleEnabled {
		var redisClient adapter.RedisClient
		if cfg.Redis.Addr != "" {
			redisClient = adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		}
		engagementLimiter, err = ratelimit.NewLimiter(ratelimit.Config{
			PerMinute:           cfg.Engagement.PerMinute,
			Burst:               cfg.Engagement.Burst,
			KeyPrefix:           cfg.Engagement.KeyPrefix,
			EnableLocalFallback: cfg.Engagement.EnableLocalFallback,
		}, redisClient, clock)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create engagement limiter", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Engagement throttle enabled",
			zap.Int("per_minute", cfg.Engagement.PerMinute),
			zap.Bool("distributed", redisClient != nil),
		)
	}

	serverConfig := server.Config{
		Debug:            cfg.Debug,
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		ReadTimeout:      time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:     time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:      time.Duration(cfg.Server.IdleTimeout) * time.Second,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		ComposerPoolSize: cfg.Composer.PoolSize,
		Executor: executor.Config{
			DefaultLimit: cfg.Query.DefaultLimit,
			MaxLimit:     cfg.Query.MaxLimit,
			TrendingSize: cfg.Trending.DefaultSize,
		},
		EngagementLimiter: engagementLimiter,
	}

	srv := server.New(serverConfig, dataStore, clock)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}

// openStore builds the configured store. Postgres connections are retried
// with exponential backoff until ConnectTimeout elapses.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.Driver == "memory" {
		logger.WarnCtx(ctx, "Using in-memory store, data will not survive a restart")
		return store.NewMemoryStore(), nil
	}

	var db *gorm.DB
	operation := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		return sqlDB.PingContext(ctx)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = cfg.ConnectTimeout

	notify := func(err error, wait time.Duration) {
		logger.WarnCtx(ctx, "Database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := store.ConfigureConnectionPool(db, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime); err != nil {
		return nil, fmt.Errorf("failed to configure connection pool: %w", err)
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	if len(cfg.ReplicaHosts) > 0 {
		if err := store.RegisterReplicas(db, cfg.ReplicaDSNs(), cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime); err != nil {
			return nil, err
		}
		logger.InfoCtx(ctx, "Routing reads to replicas", zap.Strings("replica_hosts", cfg.ReplicaHosts))
	}

	if cfg.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		logger.InfoCtx(ctx, "Database schema migrated")
	}

	return store.NewPGStore(db), nil
}
