package main

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	redisRepo "github.com/iho/lotledger/internal/adapter/repository/redis"
	"github.com/iho/lotledger/internal/infrastructure/config"
	"github.com/iho/lotledger/internal/infrastructure/eventpublisher"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPPort:            "0",
		HTTPReadTimeout:     time.Second,
		HTTPWriteTimeout:    time.Second,
		HTTPIdleTimeout:     time.Second,
		HTTPShutdownTimeout: time.Second,
		IdempotencyTTL:      time.Minute,
		EventPublisher:      config.PublisherLog,
		EventChannel:        redisRepo.DefaultEventChannel,
		EventBatchSize:      10,
		EventInterval:       10 * time.Millisecond,
		RateLimitRPS:        10,
		RateLimitBurst:      10,
	}
}

func TestNewPublisher(t *testing.T) {
	cfg := testConfig()

	pub, err := newPublisher(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("log publisher: %v", err)
	}
	if _, ok := pub.(*eventpublisher.LogPublisher); !ok {
		t.Fatalf("expected LogPublisher, got %T", pub)
	}

	cfg.EventPublisher = config.PublisherRedis
	if _, err := newPublisher(cfg, nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected redis publisher without client to fail")
	}

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub, err = newPublisher(cfg, client, zerolog.Nop())
	if err != nil {
		t.Fatalf("redis publisher: %v", err)
	}
	if _, ok := pub.(*redisRepo.EventPublisher); !ok {
		t.Fatalf("expected redis EventPublisher, got %T", pub)
	}

	cfg.EventPublisher = "kafka"
	if _, err := newPublisher(cfg, nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected unknown publisher to fail")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, testConfig(), zerolog.Nop(), prometheus.NewRegistry(), http.NotFoundHandler())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestRunWithRedisAndAuth(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.EventPublisher = config.PublisherRedis
	cfg.AuthEnabled = true
	cfg.JWTSecret = "test-secret"

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, zerolog.Nop(), prometheus.NewRegistry(), http.NotFoundHandler())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestRunReportsListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	cfg := testConfig()
	cfg.HTTPPort = strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	done := make(chan error, 1)
	go func() {
		done <- run(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry(), http.NotFoundHandler())
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected listen error")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return on listen failure")
	}
}

func TestRunFailsWhenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.RedisURL = "redis://" + addr

	err := run(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry(), http.NotFoundHandler())
	if err == nil {
		t.Fatalf("expected redis connection error")
	}
}
