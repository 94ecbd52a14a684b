package config

import (
	"crypto/tls"
	"fmt"
	"math"
	"time"

	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const defaultConnMaxLife = time.Hour

// PostgresPoolConfig builds a pgxpool.Config from cfg. TLS is enforced when
// SSL_MODE is require; pool sizes come from MAX_CONNECTIONS and MIN_CONNECTIONS.
func PostgresPoolConfig(cfg *DatabaseConfig) (*pgxpool.Config, error) {
	log := logger.GetLogger()

	connStr := cfg.URL()
	log.Infow("Connecting to database",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
		"sslmode", cfg.SSLMode,
		"connection_string", logger.MaskConnectionString(connStr))

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.SSLMode == "require" {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	connMaxLife := defaultConnMaxLife
	if cfg.ConnMaxLife != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLife); err == nil {
			connMaxLife = d
		} else {
			log.Warnw("Invalid connection max lifetime, using default", "value", cfg.ConnMaxLife, "error", err)
		}
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(math.Min(float64(cfg.MaxConnections), float64(math.MaxInt32)))
	}
	if cfg.MinConnections > 0 {
		poolConfig.MinConns = int32(math.Min(float64(cfg.MinConnections), float64(poolConfig.MaxConns)))
	}
	poolConfig.MaxConnLifetime = connMaxLife
	poolConfig.HealthCheckPeriod = 30 * time.Second
	poolConfig.ConnConfig.ConnectTimeout = 5 * time.Second

	log.Infow("Configured database connection pool",
		"max_conns", poolConfig.MaxConns,
		"min_conns", poolConfig.MinConns,
		"max_conn_lifetime", connMaxLife.String())

	return poolConfig, nil
}

// RedisOptions builds redis.Options from cfg with retry and timeout settings.
func RedisOptions(cfg *RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		ConnMaxLifetime: time.Hour,
		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 2 * time.Second,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
	}

	logger.GetLogger().Infow("Configuring Redis connection",
		"address", cfg.Address,
		"db", cfg.DB,
		"pool_size", cfg.PoolSize,
		"use_tls", cfg.UseTLS)

	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}
