package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/spendwise/internal/config"
	"github.com/cuongbtq/spendwise/internal/report"
	"github.com/cuongbtq/spendwise/internal/worker"
	"github.com/cuongbtq/spendwise/internal/worker/storage"
	"github.com/cuongbtq/spendwise/shared/logger"
	"github.com/cuongbtq/spendwise/shared/postgresql"
	"github.com/cuongbtq/spendwise/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	bootLogger := logger.NewDefault()

	if err := godotenv.Load(); err != nil {
		bootLogger.Debug("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger = appLogger.With(slog.String("service", cfg.App.Name))

	appLogger.Info("Starting worker service",
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := postgresql.NewClient(cfg.Database.ClientConfig(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	if cfg.Database.AutoMigrate {
		if err := dbClient.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQ.ClientConfig(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	renderer := report.NewRenderer(cfg.Reports.Dir, cfg.Reports.Brand, appLogger.Logger)
	appLogger.Info("Statements will be published",
		slog.String("reports_dir", renderer.Dir()),
	)

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:       appLogger.Logger,
		Consumer:     rabbitClient,
		Publisher:    rabbitClient,
		Transactions: storage.NewStorage(dbClient.GetDB(), appLogger.Logger),
		Renderer:     renderer,
		Concurrency:  cfg.Worker.Concurrency,
		Prefetch:     cfg.RabbitMQ.Consumer.PrefetchCount,
		MaxAttempts:  cfg.Worker.MaxAttempts,
		JobTimeout:   cfg.Worker.JobTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- workerInstance.Start(ctx)
	}()

	appLogger.Info("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil {
			appLogger.Error("Worker error",
				slog.Any("error", err),
			)
		}
		return err
	}

	cancel()

	shutdownTimeout := cfg.Worker.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, worker.ErrDeliveriesClosed) {
			return err
		}
		appLogger.Info("Worker stopped gracefully")
	case <-time.After(shutdownTimeout):
		// unacked deliveries are redelivered once the connection closes
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit",
			slog.Duration("shutdown_timeout", shutdownTimeout),
		)
	}

	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}
