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

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/estatehub/marketplace/services/api/internal/app"
	redisstore "github.com/estatehub/marketplace/services/api/internal/cache/redis"
	"github.com/estatehub/marketplace/services/api/internal/clock"
	"github.com/estatehub/marketplace/services/api/internal/config"
	"github.com/estatehub/marketplace/services/api/internal/events"
	"github.com/estatehub/marketplace/services/api/internal/logger"
	"github.com/estatehub/marketplace/services/api/internal/metrics"
	"github.com/estatehub/marketplace/services/api/internal/storage/postgres"
	"github.com/estatehub/marketplace/services/api/internal/tracing"
	transporthttp "github.com/estatehub/marketplace/services/api/internal/transport/http"
	"github.com/estatehub/marketplace/services/api/internal/worker"
	"github.com/estatehub/marketplace/services/api/migrations"
)

const (
	startupTimeout   = 10 * time.Second
	metricsNamespace = "estatehub"
)

func main() {
	cfg, envFile, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding}).
		With(zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))
	defer func() { _ = log.Sync() }()

	if envFile != "" {
		log.Info("loaded env file", zap.String("path", envFile))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	shutdownTracing, err := tracing.Init(startupCtx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	pool, err := openPool(startupCtx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.Apply(startupCtx, pool, log); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	listingRepo := postgres.NewListingRepository(pool)
	reviewerRepo := postgres.NewReviewerRepository(pool)
	for _, id := range cfg.Auth.Reviewers {
		if err := reviewerRepo.AddReviewer(startupCtx, id); err != nil {
			return fmt.Errorf("bootstrap reviewers: %w", err)
		}
	}
	if len(cfg.Auth.Reviewers) > 0 {
		log.Info("reviewers bootstrapped", zap.Int("count", len(cfg.Auth.Reviewers)))
	}

	var activeCache app.ActiveListingsCache
	if cfg.Redis.Enabled {
		client, err := redisstore.NewClient(startupCtx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = client.Close() }()
		activeCache = redisstore.NewActiveListingsCache(client, cfg.Redis.TTL)
		log.Info("redis active listings cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	m := metrics.New(metricsNamespace)
	clk := clock.NewSystem()

	opts := []app.ListingStatusOption{
		app.WithLogger(log.Named("status")),
		app.WithMetrics(m),
	}
	if activeCache != nil {
		opts = append(opts, app.WithActiveCache(activeCache))
	}
	publisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn("close event publisher", zap.Error(err))
			}
		}()
		opts = append(opts, app.WithPublisher(publisher))
	}

	statusSvc := app.NewListingStatusService(listingRepo, reviewerRepo, clk, opts...)
	listingSvc := app.NewListingService(listingRepo, activeCache, clk, log.Named("listings"))

	if cfg.Expiry.Enabled {
		w := worker.NewExpiryWorker(statusSvc, clk, cfg.Expiry.Interval, log.Named("expiry"))
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("expiry worker stopped", zap.Error(err))
			}
		}()
	}

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Listings:          listingSvc,
		Status:            statusSvc,
		Expiry:            statusSvc,
		Reviewers:         reviewerRepo,
		Clock:             clk,
		DB:                pool,
		JWTSecret:         []byte(cfg.Auth.JWTSecret),
		CORSOrigins:       cfg.HTTP.CORSOrigins,
		Logger:            log.Named("http"),
		MetricsHandler:    m.Handler(),
		MetricsMiddleware: m.Middleware,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	log.Info("api listening", zap.String("addr", server.Addr))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func openPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

type eventPublisher interface {
	app.StatusPublisher
	Close() error
}

func newPublisher(cfg *config.Config, log *zap.Logger) (eventPublisher, error) {
	switch cfg.Events.Driver {
	case config.EventsDriverNATS:
		p, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject, cfg.ServiceName, log.Named("nats"))
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		log.Info("publishing status events to nats", zap.String("subject", cfg.Events.Subject))
		return p, nil
	case config.EventsDriverKafka:
		p, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Subject)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		log.Info("publishing status events to kafka", zap.Strings("brokers", cfg.Events.KafkaBrokers))
		return p, nil
	default:
		return nil, nil
	}
}
