package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/zerotrust/platform/internal/app"
	"github.com/zerotrust/platform/internal/handler"
	"github.com/zerotrust/platform/internal/infra"
	"github.com/zerotrust/platform/internal/policy"
	"github.com/zerotrust/platform/internal/repository"
	"github.com/zerotrust/platform/internal/service"
	zsignal "github.com/zerotrust/platform/internal/signal"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.ExposeOTP {
		logger.Warn("EXPOSE_OTP is on; one-time codes are returned in API responses")
	}

	// Policy rules
	rules, err := policy.LoadRules(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("load policy rules: %w", err)
	}
	logger.Info("policy rules loaded", "high_risk_countries", rules.HighRiskCountries)

	health := map[string]handler.HealthCheck{}

	// Redis (optional)
	var rdb *redis.Client
	if cfg.RedisEnabled {
		rdb, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		health["redis"] = func(ctx context.Context) error { return infra.RedisHealthCheck(ctx, rdb) }
		logger.Info("connected to redis")
	}

	// Stores
	var stores app.Stores
	var pool *pgxpool.Pool
	switch cfg.StoreDriver {
	case infra.StorePostgres:
		pool, err = infra.NewPostgresPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to postgres")

		if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		stores = app.NewPostgresStores(pool, rdb)
		health["postgres"] = func(ctx context.Context) error { return infra.PostgresHealthCheck(ctx, pool) }
	default:
		stores = app.NewMemoryStores()
		stores.UseRedis(rdb)
		logger.Warn("using in-memory stores; state is lost on restart")
	}

	if cfg.SeedDemoUsers {
		if err := service.SeedDemoUsers(ctx, stores.Users, logger); err != nil {
			return fmt.Errorf("seed demo users: %w", err)
		}
	}

	// Audit relay to Kafka
	if cfg.KafkaEnabled && pool != nil {
		producer := infra.NewKafkaProducer(cfg.Brokers(), cfg.KafkaEnabled, logger)
		defer producer.Close()
		relay := infra.NewAuditRelay(repository.NewPgAuditRepository(pool), producer, cfg.AuditTopic,
			cfg.RelayInterval, cfg.RelayBatch, logger)
		relay.Start(ctx)
	}

	// Origin resolution
	var origins zsignal.OriginResolver = zsignal.SimulatedResolver{}
	if cfg.OriginLookupEnabled {
		origins = zsignal.NewLookupResolver(cfg.OriginLookupURL, cfg.OriginLookupTimeout, cfg.OriginLookupCacheTTL, logger)
		logger.Info("origin lookup enabled", "url", cfg.OriginLookupURL)
	}

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}

	router := app.NewRouter(stores, app.RouterDeps{
		Logger:             logger,
		JWTSecret:          cfg.JWTSecret,
		SessionTTL:         cfg.SessionTTL,
		Evaluator:          policy.NewEvaluatorFromRules(rules),
		Origins:            origins,
		CORSOrigins:        cfg.CORSAllowedOrigins,
		TrustedProxies:     proxies,
		AuthRateLimit:      cfg.AuthRateLimit,
		AuthRateWindow:     cfg.AuthRateWindow,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		ServiceTokenSecret: cfg.ServiceTokenSecret,
		ExposeOTP:          cfg.ExposeOTP,
		HealthChecks:       health,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
