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

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/stockroom/internal/config"
	"github.com/MrJamesThe3rd/stockroom/internal/database"
	"github.com/MrJamesThe3rd/stockroom/internal/events"
	stockroomHttp "github.com/MrJamesThe3rd/stockroom/internal/http"
	importHandler "github.com/MrJamesThe3rd/stockroom/internal/http/importcsv"
	productHandler "github.com/MrJamesThe3rd/stockroom/internal/http/product"
	purchaseHandler "github.com/MrJamesThe3rd/stockroom/internal/http/purchase"
	"github.com/MrJamesThe3rd/stockroom/internal/importer"
	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
	purchaseStore "github.com/MrJamesThe3rd/stockroom/internal/purchase/store"
	"github.com/MrJamesThe3rd/stockroom/internal/telemetry"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.Otel.Endpoint,
		ServiceName:    cfg.Otel.ServiceName,
		ServiceVersion: version,
		Insecure:       true,
	})
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := shutdownTelemetry(ctx); err != nil {
			slog.Error("failed to flush telemetry", "error", err)
		}
	}()

	db, err := database.New(cfg.ConnectionString(), database.PoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	publisher := newPublisher(cfg)
	defer publisher.Close()

	var (
		purchaseService = purchase.NewService(purchaseStore.New(db, cfg.DB.LockTimeout), purchase.WithPublisher(publisher))
		sheetParser     = importer.NewParser()
	)

	router := stockroomHttp.New(
		stockroomHttp.Options{AllowedOrigins: cfg.CORS.AllowedOrigins},
		purchaseHandler.NewHandler(purchaseService),
		productHandler.NewHandler(purchaseService),
		importHandler.NewHandler(sheetParser, purchaseService),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      http.TimeoutHandler(router, cfg.Server.Timeout, "request timed out"),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout + cfg.Server.Timeout/2,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", srv.Addr, "app", cfg.App.Name)

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

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}

type publisher interface {
	purchase.Publisher
	Close() error
}

func newPublisher(cfg *config.Config) publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		slog.Info("kafka brokers not configured, purchase events disabled")
		return events.Nop{}
	}

	slog.Info("publishing purchase events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)

	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}
