package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch"
	"github.com/dpalacios/newsdesk-be/internal/batchfetch/storage"
	"github.com/dpalacios/newsdesk-be/internal/config"
	"github.com/dpalacios/newsdesk-be/internal/fetch"
	"github.com/dpalacios/newsdesk-be/internal/scheduler"
	"github.com/dpalacios/newsdesk-be/internal/sources"
	"github.com/dpalacios/newsdesk-be/internal/worker"
	"github.com/dpalacios/newsdesk-be/shared/logger"
	"github.com/dpalacios/newsdesk-be/shared/postgresql"
	"github.com/dpalacios/newsdesk-be/shared/rabbitmq"
	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Wire the batch fetch runner and its source fetch adapters
	jobStore := storage.NewStorage(dbClient.GetDB())
	registry := sources.NewRegistry(dbClient.GetDB(), appLogger.Logger)

	httpClient := resty.New().SetTimeout(cfg.Sources.HTTPTimeout)
	fetchers := &fetch.FetcherSet{
		RSS: fetch.NewRSSFetcher(registry, httpClient, appLogger.Logger),
		Instagram: fetch.NewInstagramFetcher(registry, httpClient, fetch.InstagramConfig{
			APIBaseURL:  cfg.Sources.Instagram.APIBaseURL,
			AccessToken: cfg.Sources.Instagram.AccessToken,
		}, appLogger.Logger),
		YouTube: fetch.NewYouTubeFetcher(registry, httpClient, fetch.YouTubeConfig{
			APIBaseURL: cfg.Sources.YouTube.APIBaseURL,
			APIKey:     cfg.Sources.YouTube.APIKey,
			MaxResults: cfg.Sources.YouTube.MaxResults,
		}, appLogger.Logger),
		ElComercio:   fetch.NewElComercioFetcher(registry, httpClient, appLogger.Logger),
		DiarioCorreo: fetch.NewDiarioCorreoFetcher(registry, httpClient, appLogger.Logger),
	}

	runner := batchfetch.NewRunner(jobStore, registry, fetchers, appLogger.Logger)

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:       appLogger.Logger,
		RabbitClient: rabbitClient,
		Runner:       runner,
		ConsumerTag:  cfg.Worker.ConsumerTag,
	})

	// Optional cron trigger
	var cronScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		service := batchfetch.NewService(jobStore, registry, rabbitClient, batchfetch.PolicyDefaults{
			SkipHours:         cfg.BatchFetch.SkipHours,
			InstagramDelayMin: cfg.BatchFetch.InstagramDelayMinSeconds,
			InstagramDelayMax: cfg.BatchFetch.InstagramDelayMaxSeconds,
		}, appLogger.Logger)

		cronScheduler = scheduler.New(service, cfg.Scheduler.Cron, appLogger.Logger)
		if err := cronScheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop worker
	cancel()

	if cronScheduler != nil {
		cronScheduler.Stop()
	}

	// Give worker time to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(context.Background(), dbConfig)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
