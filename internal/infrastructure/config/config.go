package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	// Redis (leave empty to run without idempotency and with log-only event publishing)
	RedisURL string `env:"REDIS_URL" envDefault:""`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT"     envDefault:"60s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Idempotency
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Event publishing
	EventPublisher string        `env:"EVENT_PUBLISHER"  envDefault:"log"`
	EventChannel   string        `env:"EVENT_CHANNEL"    envDefault:"lotledger:events"`
	EventBatchSize int           `env:"EVENT_BATCH_SIZE" envDefault:"100"`
	EventInterval  time.Duration `env:"EVENT_INTERVAL"   envDefault:"1s"`
	EventRetention time.Duration `env:"EVENT_RETENTION"  envDefault:"1h"`

	// Rate limiting (per client IP)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"100"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"200"`

	// Authentication (optional - leave empty to disable)
	JWTSecret     string        `env:"JWT_SECRET"       envDefault:""`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION"   envDefault:"24h"`
	AuthEnabled   bool          `env:"AUTH_ENABLED"     envDefault:"false"`
}

// Event publisher kinds.
const (
	PublisherLog   = "log"
	PublisherRedis = "redis"
)

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.EventPublisher {
	case PublisherLog:
	case PublisherRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("EVENT_PUBLISHER=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown EVENT_PUBLISHER %q", c.EventPublisher)
	}

	if c.AuthEnabled && c.JWTSecret == "" {
		return fmt.Errorf("AUTH_ENABLED requires JWT_SECRET")
	}

	if c.EventBatchSize <= 0 {
		return fmt.Errorf("EVENT_BATCH_SIZE must be positive")
	}

	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}

	return nil
}
