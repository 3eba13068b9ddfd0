package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/lotledger/internal/adapter/http"
	"github.com/iho/lotledger/internal/adapter/http/handler"
	"github.com/iho/lotledger/internal/adapter/http/middleware"
	"github.com/iho/lotledger/internal/adapter/repository/memory"
	redisRepo "github.com/iho/lotledger/internal/adapter/repository/redis"
	"github.com/iho/lotledger/internal/infrastructure/auth"
	"github.com/iho/lotledger/internal/infrastructure/config"
	"github.com/iho/lotledger/internal/infrastructure/eventpublisher"
	"github.com/iho/lotledger/internal/infrastructure/logger"
	"github.com/iho/lotledger/internal/infrastructure/metrics"
	"github.com/iho/lotledger/internal/infrastructure/redis"
	"github.com/iho/lotledger/internal/usecase"
)

// limiterIdleTimeout is how long a client's rate limiter survives without requests.
const limiterIdleTimeout = time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	zerolog.SetGlobalLevel(appLogger.GetLevel())
	log.Logger = appLogger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger, prometheus.DefaultRegisterer, promhttp.Handler()); err != nil {
		appLogger.Error().Err(err).Msg("server failed")
		stop()
		os.Exit(1)
	}
}

// run wires the service and blocks until ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger, reg prometheus.Registerer, metricsHandler http.Handler) error {
	m := metrics.New(reg)

	// Connect to Redis
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		redisClient = client
		appLogger.Info().Msg("connected to redis")
	}

	// Ledger and outbox
	outbox := memory.NewOutboxRepository()
	idGen := memory.NewULIDGenerator()
	ledgerUC := usecase.NewLedgerUseCase(idGen, outbox, m, appLogger)

	publisher, err := newPublisher(cfg, redisClient, appLogger)
	if err != nil {
		return err
	}

	eventPublisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outbox,
		Publisher:  publisher,
		Logger:     appLogger,
		BatchSize:  cfg.EventBatchSize,
		Interval:   cfg.EventInterval,
		Retention:  cfg.EventRetention,
	})

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		_ = eventPublisher.Start(workerCtx)
	}()

	routerCfg := httpAdapter.RouterConfig{
		LedgerHandler:  handler.NewLedgerHandler(ledgerUC),
		HealthHandler:  handler.NewHealthHandler(redisClient),
		Logger:         appLogger,
		Metrics:        m,
		MetricsHandler: metricsHandler,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}

	if redisClient != nil {
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(redisClient, "")
	}

	if cfg.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		routerCfg.RateLimiter = limiter
		go sweepLimiters(workerCtx, limiter)
	}

	if cfg.AuthEnabled {
		routerCfg.TokenVerifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
		appLogger.Info().Msg("authentication enabled")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info().Str("port", cfg.HTTPPort).Str("publisher", cfg.EventPublisher).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		appLogger.Info().Msg("shutting down server...")
	case err := <-serverErr:
		runErr = fmt.Errorf("listen: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("server forced to shutdown: %w", err))
	}

	stopWorkers()
	<-publisherDone

	// Publish what the last requests produced
	if err := eventPublisher.Flush(shutdownCtx); err != nil {
		appLogger.Warn().Err(err).Msg("outbox not fully drained")
	}

	appLogger.Info().Msg("server stopped")

	return runErr
}

// newPublisher selects where outbox events go.
func newPublisher(cfg *config.Config, redisClient *goredis.Client, appLogger zerolog.Logger) (eventpublisher.Publisher, error) {
	switch cfg.EventPublisher {
	case config.PublisherRedis:
		if redisClient == nil {
			return nil, errors.New("redis event publisher requires REDIS_URL")
		}
		return redisRepo.NewEventPublisher(redisClient, cfg.EventChannel, redisRepo.NewRetrier(appLogger)), nil
	case config.PublisherLog, "":
		return eventpublisher.NewLogPublisher(appLogger), nil
	default:
		return nil, fmt.Errorf("unknown event publisher %q", cfg.EventPublisher)
	}
}

func sweepLimiters(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.CleanupLimiters(limiterIdleTimeout)
		}
	}
}
