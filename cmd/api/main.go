package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/PratikDhanave/event-scheduling-service/internal/clock"
	"github.com/PratikDhanave/event-scheduling-service/internal/config"
	"github.com/PratikDhanave/event-scheduling-service/internal/httpserver"
	"github.com/PratikDhanave/event-scheduling-service/internal/logger"
	"github.com/PratikDhanave/event-scheduling-service/internal/notify"
	"github.com/PratikDhanave/event-scheduling-service/internal/schedule"
	"github.com/PratikDhanave/event-scheduling-service/internal/store"
	"github.com/PratikDhanave/event-scheduling-service/internal/telemetry"
	"github.com/PratikDhanave/event-scheduling-service/internal/timezone"
)

// main boots the service: config → logger → tracing → DB → schema → HTTP server.
func main() {
	// Load runtime config from .env and environment (DB_URL, SERVER_PORT, ...).
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.Init(cfg.App.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Error("service stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:       cfg.OTel.Enabled,
		ServiceName:   cfg.App.Name,
		Environment:   cfg.App.Environment,
		CollectorAddr: cfg.OTel.CollectorAddr,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	// Fails fast if a catalog zone is missing from the embedded tz database.
	catalog, err := timezone.Default()
	if err != nil {
		return err
	}

	// Connect to durable storage (Postgres) using a connection pool.
	db, err := store.NewPostgresStore(cfg.DBURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// Ensure required tables/indexes exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	publisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	events := schedule.NewEventService(db, db, catalog, clock.NewSystem(),
		schedule.WithPublisher(publisher),
		schedule.WithLogger(log.Named("schedule")),
	)
	users := schedule.NewUserService(db, log.Named("users"))

	router := httpserver.NewRouter(httpserver.Deps{
		Events:      events,
		Users:       users,
		Timezones:   catalog,
		DB:          db,
		Logger:      log.Named("http"),
		CORSOrigins: cfg.CORS.AllowOrigins,
		Tracing:     cfg.OTel.Enabled,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// newPublisher returns a Kafka publisher when brokers are configured, otherwise a no-op.
func newPublisher(ctx context.Context, cfg config.Config, log *zap.Logger) (notify.Publisher, error) {
	if !cfg.Kafka.Enabled() {
		log.Info("change notifications disabled")
		return notify.NewNoOpPublisher(), nil
	}
	p, err := notify.NewKafkaPublisher(ctx, notify.KafkaConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		ClientID: cfg.Kafka.ClientID,
		Source:   cfg.App.Name,
	})
	if err != nil {
		return nil, err
	}
	log.Info("change notifications enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return p, nil
}
