package config_test

import (
	"testing"
	"time"

	"github.com/iho/lotledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.RedisURL != "" {
		t.Fatalf("expected redis to be disabled by default, got %q", cfg.RedisURL)
	}

	if cfg.JWTSecret != "" {
		t.Fatalf("expected JWT secret default to be empty, got %q", cfg.JWTSecret)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.EventPublisher != config.PublisherLog {
		t.Fatalf("expected log publisher by default, got %s", cfg.EventPublisher)
	}

	if cfg.EventInterval != time.Second {
		t.Fatalf("expected 1s event interval, got %s", cfg.EventInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("EVENT_PUBLISHER", "redis")
	t.Setenv("EVENT_CHANNEL", "ledger")
	t.Setenv("EVENT_INTERVAL", "250ms")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.EventPublisher != config.PublisherRedis || cfg.EventChannel != "ledger" {
		t.Fatalf("expected redis publisher on ledger channel, got %s/%s", cfg.EventPublisher, cfg.EventChannel)
	}

	if cfg.EventInterval != 250*time.Millisecond {
		t.Fatalf("expected event interval override, got %s", cfg.EventInterval)
	}

	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRPS)
	}

	if cfg.JWTSecret != "top-secret" || !cfg.AuthEnabled {
		t.Fatalf("expected auth settings to be set, got secret=%s enabled=%v", cfg.JWTSecret, cfg.AuthEnabled)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsInconsistentSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "redis publisher without redis",
			env:  map[string]string{"EVENT_PUBLISHER": "redis", "REDIS_URL": ""},
		},
		{
			name: "unknown publisher",
			env:  map[string]string{"EVENT_PUBLISHER": "kafka"},
		},
		{
			name: "auth without secret",
			env:  map[string]string{"AUTH_ENABLED": "true", "JWT_SECRET": ""},
		},
		{
			name: "zero batch size",
			env:  map[string]string{"EVENT_BATCH_SIZE": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := config.Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
