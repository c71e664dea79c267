package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port          string `env:"PORT,           default=8080"`
	Env           string `env:"ENV,            default=development"`
	LogLevel      string `env:"LOG_LEVEL,      default=info"`
	SessionSecret string `env:"SESSION_SECRET, required"`

	// HomePath is where a browser lands after a successful SSO redemption.
	HomePath string `env:"HOME_PATH, default=/dashboard"`

	// SweepInterval paces the purge of expired tokens and SSO codes.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL, default=15m"`

	// AuditRetention is how long auth audit events are kept. Zero keeps them
	// forever.
	AuditRetention time.Duration `env:"AUDIT_RETENTION, default=2160h"`

	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=reprint_hub"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type RateLimitConfig struct {
	// Backend is "redis" or "memory".
	Backend     string        `env:"RATE_LIMIT_BACKEND, default=redis"`
	LoginLimit  int           `env:"LOGIN_RATE_LIMIT,   default=5"`
	LoginWindow time.Duration `env:"LOGIN_RATE_WINDOW,  default=1m"`
}

type SessionConfig struct {
	// WebLifetime bounds browser sessions created by SSO redemption.
	WebLifetime time.Duration `env:"WEB_SESSION_LIFETIME,    default=120m"`
	// ClientLifetime is advertised to desktop clients for local expiry.
	ClientLifetime time.Duration `env:"CLIENT_SESSION_LIFETIME, default=720h"`
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from an arbitrary lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if cfg.RateLimit.Backend != "redis" && cfg.RateLimit.Backend != "memory" {
		return nil, fmt.Errorf("config: RATE_LIMIT_BACKEND must be redis or memory, got %q", cfg.RateLimit.Backend)
	}
	return &cfg, nil
}
