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

	"github.com/joho/godotenv"

	"github.com/cuongbtq/zeebe-docling-worker/internal/config"
	"github.com/cuongbtq/zeebe-docling-worker/internal/converter"
	"github.com/cuongbtq/zeebe-docling-worker/internal/worker"
	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/documents"
	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/storage"
	"github.com/cuongbtq/zeebe-docling-worker/migrations"
	"github.com/cuongbtq/zeebe-docling-worker/shared/logger"
	"github.com/cuongbtq/zeebe-docling-worker/shared/oauth"
	"github.com/cuongbtq/zeebe-docling-worker/shared/postgresql"
	"github.com/cuongbtq/zeebe-docling-worker/shared/rabbitmq"
	"github.com/cuongbtq/zeebe-docling-worker/shared/tracing"
	"github.com/cuongbtq/zeebe-docling-worker/shared/zeebe"
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
	appLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("worker", cfg.Worker.Name),
	)

	shutdownTracer, err := tracing.InitTracer(&tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// Credentials are required before anything else can talk to the cluster
	tokens := oauth.NewProvider(&oauth.Config{
		TokenURL:     cfg.Camunda.TokenURL,
		Audience:     cfg.Camunda.Audience,
		ClientID:     cfg.Camunda.ClientID,
		ClientSecret: cfg.Camunda.ClientSecret,
		RefreshSkew:  cfg.Camunda.TokenRefreshSkew,
	}, appLogger.Logger)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	cred, err := tokens.Acquire(startupCtx)
	startupCancel()
	if err != nil {
		return fmt.Errorf("failed to acquire access token: %w", err)
	}

	appLogger.Info("Access token acquired",
		slog.Duration("expires_in", cred.ExpiresIn(time.Now()).Round(time.Second)),
	)

	gatewayClient, err := zeebe.NewClient(&zeebe.Config{
		Address:     cfg.Camunda.GatewayAddress,
		ClusterID:   cfg.Camunda.ClusterID,
		Region:      cfg.Camunda.Region,
		ServiceHost: cfg.Camunda.ServiceHost,
		Insecure:    cfg.Camunda.Insecure,
	}, tokens, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway client: %w", err)
	}

	fetcher, err := documents.NewFetcher(&documents.Config{
		BaseURL:    cfg.Camunda.DocumentsURL(),
		ClusterID:  cfg.Camunda.ClusterID,
		StagingDir: cfg.Worker.StagingDir,
		Timeout:    cfg.Worker.DownloadTimeout,
	}, tokens, appLogger.Logger)
	if err != nil {
		gatewayClient.Close()
		return fmt.Errorf("failed to initialize document fetcher: %w", err)
	}

	docling := converter.NewDoclingClient(&converter.DoclingConfig{
		BaseURL:  cfg.Docling.BaseURL,
		Endpoint: cfg.Docling.Endpoint,
		ToFormat: cfg.Docling.ToFormat,
		APIKey:   cfg.Docling.APIKey,
		Timeout:  cfg.Docling.Timeout,
	}, appLogger.Logger)

	var recorders []worker.Recorder

	// Optional iteration journal
	var dbClient *postgresql.Client
	if cfg.Database.Enabled {
		dbClient, err = initPostgreSQL(&cfg.Database, appLogger.Logger)
		if err != nil {
			gatewayClient.Close()
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		if cfg.Database.AutoMigrate {
			if err := dbClient.Migrate(migrations.FS, "."); err != nil {
				dbClient.Close()
				gatewayClient.Close()
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		recorders = append(recorders, storage.NewStorage(dbClient.GetDB(), appLogger.Logger))
		appLogger.Info("Job journal enabled")
	}

	// Optional outcome events
	var rabbitClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = initRabbitMQ(&cfg.RabbitMQ, cfg.App.Name, appLogger.Logger)
		if err != nil {
			if dbClient != nil {
				dbClient.Close()
			}
			gatewayClient.Close()
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}

		recorders = append(recorders, worker.NewEventRecorder(rabbitClient))
		appLogger.Info("Outcome events enabled", slog.String("exchange", cfg.RabbitMQ.Exchange.Name))
	}

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		Logger: appLogger.Logger,
		Queue: worker.NewZeebeQueue(gatewayClient, worker.QueueConfig{
			WorkerName:     cfg.Worker.Name,
			JobTimeout:     cfg.Worker.JobTimeout,
			RequestTimeout: cfg.Worker.RequestTimeout,
			RetryBackoff:   cfg.Worker.FailureRetryBackoff,
		}, appLogger.Logger),
		Fetcher:        fetcher,
		Converter:      docling,
		Recorders:      recorders,
		JobType:        cfg.Worker.JobType,
		WorkerName:     cfg.Worker.Name,
		ReportFailures: cfg.Worker.ReportFailures,
		ErrorBackoff:   cfg.Worker.ErrorBackoff,
		CleanupStaged:  cfg.Worker.CleanupStagedFiles,
	})

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

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		runErr = err
	}

	// Cancel context to stop worker
	cancel()

	// Give worker time to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop worker
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
		gatewayClient.Close()
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if err := shutdownTracer(shutdownCtx); err != nil {
			appLogger.Warn("Failed to flush traces", slog.Any("error", err))
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
	return runErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.Config) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
		Service:      cfg.App.Name,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
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

		ConnectRetries:       cfg.ConnectRetries,
		ConnectRetryInterval: cfg.ConnectRetryInterval,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ publisher
func initRabbitMQ(cfg *config.RabbitMQConfig, appName string, logger *slog.Logger) (*rabbitmq.Client, error) {
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
		BindingKey:         cfg.Queue.BindingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
		ConfirmTimeout:     cfg.Publish.ConfirmTimeout,
		AppID:              appName,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
