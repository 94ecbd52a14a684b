// Package config handles loading and validation of application configuration
// from environment variables and an optional .env file.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/NomadCrew/nomad-crew-ledger/models/policy"
	"github.com/NomadCrew/nomad-crew-ledger/pkg/valueobjects"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	// Empty means the TCP peer address is the client IP.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Host           string `mapstructure:"HOST" yaml:"host"`
	Port           int    `mapstructure:"PORT" yaml:"port"`
	User           string `mapstructure:"USER" yaml:"user"`
	Password       string `mapstructure:"PASSWORD" yaml:"password"`
	Name           string `mapstructure:"NAME" yaml:"name"`
	SSLMode        string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxConnections int    `mapstructure:"MAX_CONNECTIONS" yaml:"max_connections"`
	MinConnections int    `mapstructure:"MIN_CONNECTIONS" yaml:"min_connections"`
	ConnMaxLife    string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate and other
// URL-based database tools.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// LedgerConfig holds settings for balance computation and settlement rules.
type LedgerConfig struct {
	// DefaultCurrency labels amounts in explanations when a request names none.
	DefaultCurrency string `mapstructure:"DEFAULT_CURRENCY" yaml:"default_currency"`
	// StrongAuthThreshold is the settlement amount, in minor units, from which
	// confirmation needs a strong authentication proof.
	StrongAuthThreshold int64 `mapstructure:"STRONG_AUTH_THRESHOLD" yaml:"strong_auth_threshold"`
	// BalanceCacheTTLSeconds bounds how long computed balances are served from Redis.
	BalanceCacheTTLSeconds int  `mapstructure:"BALANCE_CACHE_TTL_SECONDS" yaml:"balance_cache_ttl_seconds"`
	CacheEnabled           bool `mapstructure:"CACHE_ENABLED" yaml:"cache_enabled"`
	// WriteRateLimitPerMinute caps expense and settlement writes per group and
	// client. Zero disables the limiter.
	WriteRateLimitPerMinute int `mapstructure:"WRITE_RATE_LIMIT" yaml:"write_rate_limit"`
	// EventsEnabled publishes expense and settlement changes on Redis Pub/Sub.
	EventsEnabled bool `mapstructure:"EVENTS_ENABLED" yaml:"events_enabled"`
}

// NeedsRedis reports whether any ledger feature is backed by Redis.
func (c *LedgerConfig) NeedsRedis() bool {
	return c.CacheEnabled || c.EventsEnabled || c.WriteRateLimitPerMinute > 0
}

// Config aggregates all application configuration sections.
type Config struct {
	Server   ServerConfig   `mapstructure:"SERVER" yaml:"server"`
	Database DatabaseConfig `mapstructure:"DATABASE" yaml:"database"`
	Redis    RedisConfig    `mapstructure:"REDIS" yaml:"redis"`
	Ledger   LedgerConfig   `mapstructure:"LEDGER" yaml:"ledger"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{})
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "nomadcrew_ledger")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_CONNECTIONS", 5) // Conservative for free tier
	v.SetDefault("DATABASE.MIN_CONNECTIONS", 1)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("LEDGER.DEFAULT_CURRENCY", string(valueobjects.INR))
	v.SetDefault("LEDGER.STRONG_AUTH_THRESHOLD", policy.DefaultStrongAuthThreshold)
	v.SetDefault("LEDGER.BALANCE_CACHE_TTL_SECONDS", 300)
	v.SetDefault("LEDGER.CACHE_ENABLED", true)
	v.SetDefault("LEDGER.WRITE_RATE_LIMIT", 120)
	v.SetDefault("LEDGER.EVENTS_ENABLED", true)
}

var envBindings = [][2]string{
	// Server config
	{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
	{"SERVER.PORT", "PORT"},
	{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
	{"SERVER.VERSION", "VERSION"},
	{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
	// Database config
	{"DATABASE.HOST", "DB_HOST"},
	{"DATABASE.PORT", "DB_PORT"},
	{"DATABASE.USER", "DB_USER"},
	{"DATABASE.PASSWORD", "DB_PASSWORD"},
	{"DATABASE.NAME", "DB_NAME"},
	{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
	{"DATABASE.MAX_CONNECTIONS", "DB_MAX_CONNECTIONS"},
	// Redis config
	{"REDIS.ADDRESS", "REDIS_ADDRESS"},
	{"REDIS.PASSWORD", "REDIS_PASSWORD"},
	{"REDIS.DB", "REDIS_DB"},
	{"REDIS.USE_TLS", "REDIS_USE_TLS"},
	// Ledger config
	{"LEDGER.DEFAULT_CURRENCY", "LEDGER_DEFAULT_CURRENCY"},
	{"LEDGER.STRONG_AUTH_THRESHOLD", "LEDGER_STRONG_AUTH_THRESHOLD"},
	{"LEDGER.BALANCE_CACHE_TTL_SECONDS", "LEDGER_BALANCE_CACHE_TTL_SECONDS"},
	{"LEDGER.CACHE_ENABLED", "LEDGER_CACHE_ENABLED"},
	{"LEDGER.WRITE_RATE_LIMIT", "LEDGER_WRITE_RATE_LIMIT"},
	{"LEDGER.EVENTS_ENABLED", "LEDGER_EVENTS_ENABLED"},
}

// LoadConfig loads configuration from environment variables using Viper,
// after pre-loading a .env file when one is present. It sets default values,
// binds environment variables to config struct fields, unmarshals the
// configuration, and validates it.
func LoadConfig() (*Config, error) {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil {
		log.Debugw("No .env file loaded", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"db_host", v.GetString("DATABASE.HOST"),
		"allowed_origins", v.GetStringSlice("SERVER.ALLOWED_ORIGINS"),
		"trusted_proxies", v.GetStringSlice("SERVER.TRUSTED_PROXIES"),
		"default_currency", v.GetString("LEDGER.DEFAULT_CURRENCY"),
		"strong_auth_threshold", v.GetInt64("LEDGER.STRONG_AUTH_THRESHOLD"),
		"cache_enabled", v.GetBool("LEDGER.CACHE_ENABLED"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	for _, proxy := range cfg.Server.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("invalid trusted proxy '%s': %w", proxy, err)
		}
	}

	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if cfg.Database.Password == "" {
		log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	if cfg.Ledger.NeedsRedis() && cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required when the balance cache, events or write rate limit are enabled")
	}

	return validateLedgerConfig(&cfg.Ledger)
}

func validateLedgerConfig(cfg *LedgerConfig) error {
	if cfg.StrongAuthThreshold <= 0 {
		return fmt.Errorf("strong auth threshold must be positive")
	}
	if !valueobjects.IsSupportedCurrency(valueobjects.Currency(cfg.DefaultCurrency)) {
		return fmt.Errorf("unsupported default currency %q", cfg.DefaultCurrency)
	}
	if cfg.CacheEnabled && cfg.BalanceCacheTTLSeconds <= 0 {
		return fmt.Errorf("balance cache TTL must be positive")
	}
	if cfg.WriteRateLimitPerMinute < 0 {
		return fmt.Errorf("write rate limit cannot be negative")
	}
	return nil
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
