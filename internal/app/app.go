package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Lnando2k21/projetofinal/internal/auth"
	"github.com/Lnando2k21/projetofinal/internal/config"
	"github.com/Lnando2k21/projetofinal/internal/event"
	handler "github.com/Lnando2k21/projetofinal/internal/handler/http"
	"github.com/Lnando2k21/projetofinal/internal/lock"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	"github.com/Lnando2k21/projetofinal/internal/repository/memory"
	"github.com/Lnando2k21/projetofinal/internal/repository/postgres"
	"github.com/Lnando2k21/projetofinal/internal/service"
	"github.com/Lnando2k21/projetofinal/migrations"
	"github.com/Lnando2k21/projetofinal/pkg/database"
	"github.com/Lnando2k21/projetofinal/pkg/health"
	pkgkafka "github.com/Lnando2k21/projetofinal/pkg/kafka"
	"github.com/Lnando2k21/projetofinal/pkg/middleware"
	"github.com/Lnando2k21/projetofinal/pkg/tracing"
)

// ServiceName identifies this process in logs, metrics and traces.
const ServiceName = "marketplace"

const (
	idempotencyTTL    = 24 * time.Hour
	idempotencyPrefix = "marketplace:events:"
	kafkaPingAttempts = 3
)

// App wires together all dependencies and runs the marketplace service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	store, err := a.openStore(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	locker, err := a.newLocker(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	publisher := a.newPublisher(ctx, healthHandler)

	// Build the dependency graph.
	aggregator := service.NewRatingAggregator(cfg.RatingStrategy(), logger)
	userService := service.NewUserService(store, logger)
	svcs := handler.Services{
		Catalog:  service.NewCatalogService(store, logger),
		Requests: service.NewRequestService(store, publisher, logger),
		Reviews:  service.NewReviewService(store, locker, aggregator, publisher, logger),
		Users:    userService,
	}

	a.consumers = a.newUserConsumers(userService)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)

	router := handler.NewRouter(svcs, jwtManager.Validator(), healthHandler, handler.RouterConfig{
		ServiceName: ServiceName,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
		PublicCacheMaxAge: cfg.PublicCacheMaxAge,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("marketplace wired",
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("lock_driver", cfg.LockDriver),
		slog.String("provider_rating_strategy", string(cfg.RatingStrategy())),
		slog.Bool("kafka_enabled", cfg.KafkaEnabled),
	)

	return a, nil
}

// openStore connects the configured entity store.
func (a *App) openStore(ctx context.Context, healthHandler *health.Handler) (repository.Store, error) {
	if a.cfg.StoreDriver == config.StoreDriverMemory {
		a.logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	}

	pool, err := connectPostgres(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.pool = pool

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	applied, err := database.RunMigrations(ctx, pool, migrations.FS, a.logger)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed", slog.Int("applied", len(applied)))

	if a.cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(a.cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
	}

	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	return postgres.NewStore(pool), nil
}

// newLocker builds the per-service rating lock.
func (a *App) newLocker(ctx context.Context, healthHandler *health.Handler) (lock.Locker, error) {
	var base lock.Locker
	switch a.cfg.LockDriver {
	case config.LockDriverRedis:
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:      a.cfg.RedisHost,
			Port:      a.cfg.RedisPort,
			Password:  a.cfg.RedisPassword,
			DB:        a.cfg.RedisDB,
			OpTimeout: a.cfg.LockTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		a.logger.Info("connected to Redis", slog.String("addr", client.Options().Addr))

		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		base = lock.NewRedisLocker(client, a.cfg.LockTTL, a.logger)
	default:
		base = lock.NewKeyedMutex()
	}
	return lock.WithTimeout(base, a.cfg.LockTimeout), nil
}

// newPublisher returns the Kafka event producer, or a no-op publisher when
// Kafka is disabled.
func (a *App) newPublisher(ctx context.Context, healthHandler *health.Handler) service.EventPublisher {
	if !a.cfg.KafkaEnabled {
		a.logger.Info("kafka disabled, domain events are not published")
		return event.NopPublisher{}
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
	if err := pingKafkaWithRetry(ctx, producer, a.logger); err != nil {
		a.logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))
	}
	a.producer = producer
	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)

	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	return event.NewProducer(producer, a.logger)
}

// newUserConsumers subscribes the user mirror to identity events.
func (a *App) newUserConsumers(syncer event.UserSyncer) []*pkgkafka.Consumer {
	if !a.cfg.KafkaEnabled {
		return nil
	}

	var store pkgkafka.IdempotencyStore
	if a.redis != nil {
		store = pkgkafka.NewRedisIdempotencyStore(a.redis, idempotencyPrefix, idempotencyTTL)
	} else {
		store = pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	}
	h := pkgkafka.IdempotentHandler(store, event.NewUserHandler(syncer, a.logger), a.logger)

	consumers := make([]*pkgkafka.Consumer, 0, 2)
	for _, topic := range []string{event.TopicUserRegistered, event.TopicUserUpdated} {
		consumers = append(consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  a.cfg.KafkaBrokers,
			GroupID:  a.cfg.KafkaConsumerGroup,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, h, a.logger, pkgkafka.WithDLQ(a.dlq)))
	}
	return consumers
}

// Run starts the HTTP server and Kafka consumers, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("user consumer: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("component failed", slog.String("error", err.Error()))
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: the HTTP server first so
// in-flight requests drain, then the tracer, consumers, producers and stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp may have opened. Fields left nil
// by a partial initialisation are skipped.
func (a *App) closeResources() error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("user consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}

// pingKafkaWithRetry pings the producer with exponential backoff.
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < kafkaPingAttempts; attempt++ {
		lastErr = producer.Ping(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == kafkaPingAttempts-1 {
			break
		}
		wait := database.RetryBackoff(attempt)
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", kafkaPingAttempts),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after %d attempts: %w", kafkaPingAttempts, lastErr)
}
