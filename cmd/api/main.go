package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dejobratic/orderflow/internal/config"
	"github.com/dejobratic/orderflow/internal/database"
	"github.com/dejobratic/orderflow/internal/eventbus"
	idemmemory "github.com/dejobratic/orderflow/internal/idempotency/memory"
	idempostgres "github.com/dejobratic/orderflow/internal/idempotency/postgres"
	"github.com/dejobratic/orderflow/internal/kafka"
	"github.com/dejobratic/orderflow/internal/orders/adapters"
	"github.com/dejobratic/orderflow/internal/orders/adapters/carrier"
	httpadapter "github.com/dejobratic/orderflow/internal/orders/adapters/http"
	ordersmemory "github.com/dejobratic/orderflow/internal/orders/adapters/memory"
	orderspostgres "github.com/dejobratic/orderflow/internal/orders/adapters/postgres"
	ordersapp "github.com/dejobratic/orderflow/internal/orders/app"
	"github.com/dejobratic/orderflow/internal/orders/app/listeners"
	ordersmetrics "github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/dejobratic/orderflow/internal/telemetry"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const meterName = "github.com/dejobratic/orderflow"

func main() {
	if err := run(); err != nil {
		slog.Error("orderflow api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := telemetry.ParseLevel(cfg.Telemetry.LogLevel)
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger(os.Stdout, level).With("service", cfg.Service.Name)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	meter := tel.Meter(meterName)
	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return err
	}
	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return err
	}
	busMetrics, err := eventbus.NewMetrics(meter)
	if err != nil {
		return err
	}
	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		return err
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg, meter, logger)
	if err != nil {
		return err
	}
	defer store.close()

	repo := adapters.NewObservableRepository(store.repo, dbMetrics)

	bus := eventbus.New(logger, busMetrics)
	publisher := adapters.NewObservableEventPublisher(bus, busMetrics)

	var carrierClient ports.CarrierClient = carrier.NewLoggingClient(logger)
	if cfg.Carrier.BaseURL != "" {
		carrierClient = carrier.NewClient(cfg.Carrier.BaseURL, cfg.Carrier.Timeout)
	}

	sender := newNotificationSender(cfg.Kafka, kafkaMetrics, logger)
	defer func() {
		if err := sender.Close(); err != nil {
			logger.Error("notification sender close failed", "error", err)
		}
	}()

	err = bus.Subscribe(listeners.Subscriptions(
		listeners.NewNotificationDispatcher(repo, publisher, logger, orderMetrics),
		listeners.NewCarrierSubmissionListener(carrierClient, logger, orderMetrics),
		listeners.NewNotificationRelay(sender, logger, orderMetrics),
	)...)
	if err != nil {
		return fmt.Errorf("subscribe listeners: %w", err)
	}
	if err := bus.Start(); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}

	service := ordersapp.NewService(repo, publisher, store.idempotency, logger, orderMetrics)

	mux := http.NewServeMux()
	httpadapter.NewHandler(service, logger).Register(mux)
	httpadapter.RegisterHealth(mux, store.checks)

	handler := httpadapter.WithRecovery(
		httpadapter.WithLogging(
			httpadapter.WithTracing(httpadapter.WithMetrics(mux, httpMetrics)),
			logger,
		),
		logger,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server starting", "port", cfg.HTTP.Port, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		purgeIdempotencyKeys(gctx, store.purge, cfg.Idempotency.TTL, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		httpCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(httpCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		} else {
			logger.Info("http server stopped")
		}

		// Requests are finished, so nothing publishes from outside the bus any more.
		busCtx, cancelBus := context.WithTimeout(context.Background(), cfg.EventBus.ShutdownTimeout)
		defer cancelBus()
		return bus.Close(busCtx)
	})

	return g.Wait()
}

func newNotificationSender(cfg config.KafkaConfig, metrics *kafka.Metrics, logger *slog.Logger) interface {
	ports.NotificationSender
	Close() error
} {
	if !cfg.Enabled() {
		logger.Warn("no kafka brokers configured, notifications are only logged")
		return kafka.NewLoggingSender(logger)
	}
	return kafka.NewNotificationWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.NotificationTopic,
	}, metrics, logger)
}

func purgeIdempotencyKeys(ctx context.Context, purge func(context.Context) (int64, error), ttl time.Duration, logger *slog.Logger) {
	if ttl <= 0 {
		return
	}

	interval := max(ttl/4, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := purge(ctx)
			if err != nil {
				logger.Error("idempotency purge failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("idempotency keys purged", "removed", removed)
			}
		}
	}
}

// storage groups the backend-specific pieces selected by ORDERS_STORAGE.
type storage struct {
	repo        ports.OrderRepository
	idempotency ports.IdempotencyStore
	purge       func(context.Context) (int64, error)
	checks      map[string]httpadapter.ReadinessCheck
	close       func()
}

func openStorage(ctx context.Context, cfg *config.Config, meter metric.Meter, logger *slog.Logger) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		repo := ordersmemory.NewRepository()
		if err := seedMemory(ctx, repo); err != nil {
			return nil, fmt.Errorf("seed memory storage: %w", err)
		}
		idem := idemmemory.NewStore(cfg.Idempotency.TTL)
		logger.Info("using in-memory storage with seed data")

		return &storage{
			repo:        repo,
			idempotency: idem,
			purge: func(context.Context) (int64, error) {
				return int64(idem.Purge()), nil
			},
			checks: map[string]httpadapter.ReadinessCheck{},
			close:  func() {},
		}, nil
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL, cfg.Service.Name)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		version, err := database.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations completed successfully", "schema_version", version)
	}

	poolMetrics, err := database.ObservePool(meter, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	idem := idempostgres.NewStore(pool, cfg.Idempotency.TTL)

	return &storage{
		repo:        orderspostgres.NewRepository(pool),
		idempotency: idem,
		purge:       idem.Purge,
		checks: map[string]httpadapter.ReadinessCheck{
			"database": func(ctx context.Context) error {
				return database.Ping(ctx, pool)
			},
		},
		close: func() {
			if err := poolMetrics.Unregister(); err != nil {
				logger.Warn("failed to unregister pool metrics", "error", err)
			}
			pool.Close()
		},
	}, nil
}
