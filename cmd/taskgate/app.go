package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/taskgate/taskgate/internal/auth"
	"github.com/taskgate/taskgate/internal/config"
	"github.com/taskgate/taskgate/internal/health"
	"github.com/taskgate/taskgate/internal/observability"
	"github.com/taskgate/taskgate/internal/ratelimit"
	"github.com/taskgate/taskgate/internal/ratelimit/store"
	"github.com/taskgate/taskgate/internal/server"
	"github.com/taskgate/taskgate/internal/task"
)

// application holds the wired components and their owned resources.
type application struct {
	cfg      *config.Config
	logger   *zap.Logger
	pool     *pgxpool.Pool
	limits   *ratelimit.Registry
	limStore store.Store
	server   *server.Server
}

// newApplication wires every component from the configuration.
func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	pool, err := newPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	limStore, err := newRateLimitStore(cfg.Redis, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	limits := ratelimit.NewRegistry(limStore, logger, buildTiers(cfg.RateLimit)...)

	provider := auth.NewHTTPProvider(&auth.HTTPConfig{
		BaseURL:          cfg.Provider.BaseURL,
		APIKey:           cfg.Provider.APIKey,
		Timeout:          cfg.Provider.Timeout.Duration(),
		BreakerThreshold: cfg.Provider.BreakerThreshold,
		BreakerTimeout:   cfg.Provider.BreakerTimeout.Duration(),
		Logger:           logger,
	})

	metrics := observability.NewMetrics("taskgate")

	healthHandler := health.NewHandler(version, logger)
	healthHandler.Register(health.PostgresCheck(pool))
	if redisStore, ok := limStore.(*store.RedisStore); ok {
		healthHandler.Register(health.RedisCheck(redisStore.Client()))
	}
	healthHandler.Register(health.ProviderCheck(cfg.Provider.BaseURL, nil))

	srv := server.New(&server.Config{
		Port:               cfg.Server.Port,
		Address:            cfg.Server.Address,
		ReadTimeout:        cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:       cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:        cfg.Server.IdleTimeout.Duration(),
		MaxHeaderBytes:     1 << 20,
		MaxRequestBodySize: cfg.Server.MaxRequestBodySize,
		Development:        cfg.Server.Development,
	}, server.Deps{
		Tasks:    task.NewPostgresStore(pool),
		Provider: provider,
		Limits:   limits,
		Metrics:  metrics,
		Health:   healthHandler,
	}, logger)

	return &application{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		limits:   limits,
		limStore: limStore,
		server:   srv,
	}, nil
}

// newPool builds and pings the task store connection pool.
func newPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout.Duration())
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to database", zap.Int32("maxConns", poolConfig.MaxConns))
	return pool, nil
}

// newRateLimitStore picks the counter backend. Without a redis address
// counters stay in process memory.
func newRateLimitStore(cfg config.RedisConfig, logger *zap.Logger) (store.Store, error) {
	if cfg.Address == "" {
		logger.Info("rate limit counters in process memory")
		return store.NewMemoryStore(), nil
	}

	redisStore, err := store.NewRedisStore(&store.RedisConfig{
		Address:      cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Prefix:       cfg.KeyPrefix,
		DialTimeout:  cfg.Timeout.Duration(),
		ReadTimeout:  cfg.Timeout.Duration(),
		WriteTimeout: cfg.Timeout.Duration(),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("rate limit counters in redis", zap.String("address", cfg.Address))
	return redisStore, nil
}

// buildTiers applies configuration overrides to the default tiers.
func buildTiers(cfg config.RateLimitConfig) []ratelimit.Tier {
	tiers := ratelimit.DefaultTiers()
	for i, tier := range tiers {
		if override, ok := cfg.Tiers[tier.Name]; ok {
			tiers[i].Requests = override.Requests
			tiers[i].Window = override.Window.Duration()
		}
	}
	return tiers
}
