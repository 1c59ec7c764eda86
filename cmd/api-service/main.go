package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/spendwise/internal/api/handler"
	"github.com/cuongbtq/spendwise/internal/api/producer"
	"github.com/cuongbtq/spendwise/internal/api/router"
	"github.com/cuongbtq/spendwise/internal/config"
	"github.com/cuongbtq/spendwise/internal/report"
	"github.com/cuongbtq/spendwise/shared/logger"
	"github.com/cuongbtq/spendwise/shared/rabbitmq"
	"github.com/cuongbtq/spendwise/shared/redis"
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

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger = appLogger.With(slog.String("service", cfg.App.Name))

	appLogger.Info("Starting API service",
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("reports_dir", cfg.Reports.Dir),
	)

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	healthChecks := map[string]handler.HealthCheck{
		"rabbitmq": func(context.Context) error {
			if !rabbitClient.IsConnected() {
				return rabbitmq.ErrNotConnected
			}
			return nil
		},
	}

	// the marker store is only needed when duplicate requests are suppressed
	var locker producer.Locker
	if cfg.Reports.DedupeTTL > 0 {
		redisClient, err := initRedis(&cfg.Redis, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer redisClient.Close()

		locker = redisClient
		healthChecks["redis"] = redisClient.Ping
	}

	reportProducer := producer.New(rabbitClient, locker, producer.Config{
		PublishTimeout: cfg.RabbitMQ.Publish.Timeout,
		DedupeTTL:      cfg.Reports.DedupeTTL,
	}, appLogger.Logger)

	r := initRouter(cfg.App, appLogger.Logger, &handler.Dependencies{
		Logger:       appLogger.Logger,
		Reports:      reportProducer,
		Catalog:      report.NewCatalog(cfg.Reports.Dir, appLogger.Logger),
		HealthChecks: healthChecks,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...",
			slog.String("signal", sig.String()),
		)
	case err := <-serverErr:
		appLogger.Error("Server failed",
			slog.Any("error", err),
		)
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
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

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(cfg.ClientConfig(), logger)
}

// initRedis initializes the Redis client holding report request markers
func initRedis(cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	return redis.NewClient(&redis.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	}, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(app config.AppConfig, logger *slog.Logger, deps *handler.Dependencies) *gin.Engine {
	if app.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	deps.ServiceName = app.Name
	logger.Debug("Router initialized", slog.String("gin_mode", gin.Mode()))

	return router.SetupRouter(deps)
}
