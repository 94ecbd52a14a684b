package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NomadCrew/nomad-crew-ledger/config"
	"github.com/NomadCrew/nomad-crew-ledger/db"
	"github.com/NomadCrew/nomad-crew-ledger/handlers"
	"github.com/NomadCrew/nomad-crew-ledger/internal/events"
	"github.com/NomadCrew/nomad-crew-ledger/internal/store/postgres"
	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/NomadCrew/nomad-crew-ledger/middleware"
	ledgerSvc "github.com/NomadCrew/nomad-crew-ledger/models/ledger/service"
	"github.com/NomadCrew/nomad-crew-ledger/models/policy"
	"github.com/NomadCrew/nomad-crew-ledger/router"
	"github.com/NomadCrew/nomad-crew-ledger/services"
	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolConfig, err := config.PostgresPoolConfig(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to build database config: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Nil interfaces keep Redis out of the service, the router and the health report.
	var cache ledgerSvc.BalanceCache
	var redisClient redis.Cmdable
	var limiter middleware.RateLimiter
	var publisher types.EventPublisher
	if cfg.Ledger.NeedsRedis() {
		client := redis.NewClient(config.RedisOptions(&cfg.Redis))
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warnw("Redis unreachable at startup, cache, events and rate limiting degrade until it recovers",
				"address", cfg.Redis.Address, "error", err)
		}
		redisClient = client
		if cfg.Ledger.CacheEnabled {
			cache = services.NewBalanceCache(client, time.Duration(cfg.Ledger.BalanceCacheTTLSeconds)*time.Second)
		}
		if cfg.Ledger.WriteRateLimitPerMinute > 0 {
			limiter = services.NewRateLimitService(client)
		}
		if cfg.Ledger.EventsEnabled {
			publisher = events.NewRedisPublisher(client)
		}
	}

	ledgerService := ledgerSvc.NewLedgerService(
		postgres.NewLedgerStore(pool),
		cache,
		policy.NewBiometricPolicy(cfg.Ledger.StrongAuthThreshold),
		cfg.Ledger.DefaultCurrency,
	)
	if publisher != nil {
		ledgerService.WithEventPublisher(publisher)
	}
	healthService := services.NewHealthService(pool, redisClient, cfg.Server.Version)

	r := router.SetupRouter(router.Dependencies{
		Config:        cfg,
		LedgerHandler: handlers.NewLedgerHandler(ledgerService),
		HealthHandler: handlers.NewHealthHandler(healthService),
		RateLimiter:   limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Infow("Starting ledger server",
			"port", cfg.Server.Port,
			"environment", cfg.Server.Environment,
			"cacheEnabled", cfg.Ledger.CacheEnabled,
			"writeRateLimit", cfg.Ledger.WriteRateLimitPerMinute,
			"strongAuthThreshold", ledgerService.StrongAuthThreshold())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Server stopped unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Graceful shutdown failed", "error", err)
	}
}
