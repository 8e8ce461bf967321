package main

import (
	"context"
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

	"github.com/cuongbtq/job-tracker/internal/api/auth"
	"github.com/cuongbtq/job-tracker/internal/api/events"
	"github.com/cuongbtq/job-tracker/internal/api/handler"
	"github.com/cuongbtq/job-tracker/internal/api/parser"
	"github.com/cuongbtq/job-tracker/internal/api/router"
	"github.com/cuongbtq/job-tracker/internal/api/session"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
	"github.com/cuongbtq/job-tracker/internal/api/storage/hosted"
	"github.com/cuongbtq/job-tracker/internal/api/storage/mock"
	"github.com/cuongbtq/job-tracker/internal/api/storage/relational"
	"github.com/cuongbtq/job-tracker/internal/config"
	"github.com/cuongbtq/job-tracker/shared/database"
	"github.com/cuongbtq/job-tracker/shared/logger"
	"github.com/cuongbtq/job-tracker/shared/rabbitmq"
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

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage_mode", cfg.Storage.Mode),
	)

	loc, err := cfg.Storage.Location()
	if err != nil {
		return err
	}

	ctx := context.Background()
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				appLogger.Warn("Failed to release resource", slog.Any("error", err))
			}
		}
	}()

	// Events go to RabbitMQ when enabled, otherwise they are dropped
	var publisher events.Publisher = events.NopPublisher{}
	var brokerConnected func() bool
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		closers = append(closers, rabbitClient.Close)
		publisher = events.NewRabbitPublisher(rabbitClient)
		brokerConnected = rabbitClient.IsConnected
		appLogger.Info("RabbitMQ connection established")
	}
	notifier := events.NewNotifier(publisher, appLogger.Logger)

	registry := storage.NewRegistry()

	demo := mock.New(appLogger.Logger)
	if cfg.Storage.SeedDemoData {
		demo.Seed(loc)
	}
	registry.Register(storage.NameMock, storage.Shared(demo))

	if cfg.Database.Enabled {
		dbClient, err := initDatabase(&cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		closers = append(closers, dbClient.Close)

		provider := relational.New(dbClient, appLogger.Logger, notifier)
		if cfg.Database.AutoMigrate {
			if err := provider.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		registry.Register(storage.NameRelational, storage.Shared(provider))
		appLogger.Info("Relational provider ready", slog.String("driver", dbClient.Driver()))
	}

	var identity auth.IdentityProvider
	if cfg.Hosted.Enabled {
		store, err := initHosted(ctx, &cfg.Hosted, appLogger.Logger, notifier)
		if err != nil {
			return fmt.Errorf("failed to initialize hosted backend: %w", err)
		}
		closers = append(closers, store.Close)
		registry.Register(storage.NameHosted, store.Factory())
		identity = auth.NewJWTVerifier(cfg.Hosted.JWTSecret)
		appLogger.Info("Hosted provider ready")
	}

	stats := handler.NewStatsCache(cfg.Cache.StatsTTL)

	sessions, err := initSessions(&cfg.Storage, registry, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}
	watchProviderChanges(sessions, stats, publisher, appLogger.Logger)

	jobParser, err := parser.New(ctx, parser.Config{APIKey: cfg.Parser.APIKey, Model: cfg.Parser.Model}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize job parser: %w", err)
	}

	r := initRouter(cfg, &handler.Dependencies{
		Logger:    appLogger.Logger,
		Sessions:  sessions,
		Publisher: publisher,
		Parser:    jobParser,
		Stats:     stats,
		Location:  loc,
	}, identity, brokerConnected)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
		slog.Any("providers", registry.Names()),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
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
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		MaxSizeMB:    cfg.MaxSizeMB,
		MaxBackups:   cfg.MaxBackups,
		MaxAgeDays:   cfg.MaxAgeDays,
		Compress:     cfg.Compress,
	}

	return logger.New(loggerCfg)
}

// initDatabase initializes the relational database client
func initDatabase(cfg *config.DatabaseConfig, logger *slog.Logger) (*database.Client, error) {
	dbConfig := &database.Config{
		Driver:          cfg.Driver,
		URL:             cfg.URL,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return database.NewClient(dbConfig, logger)
}

// initHosted connects the hosted backend and prepares its schema
func initHosted(ctx context.Context, cfg *config.HostedConfig, logger *slog.Logger, notifier storage.StatusFailureNotifier) (*hosted.Store, error) {
	db, err := hosted.Open(cfg.DSN, logger)
	if err != nil {
		return nil, err
	}
	store := hosted.NewStore(db, logger, notifier)
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to migrate hosted database: %w", err)
		}
	}
	return store, nil
}

// initRabbitMQ initializes the RabbitMQ client used for publishing
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
		BindingKeys:        cfg.BindingKeys,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initSessions builds the provider selection manager
func initSessions(cfg *config.StorageConfig, registry *storage.Registry, logger *slog.Logger) (*session.Manager, error) {
	policy := session.Policy{Mode: cfg.Mode, Default: storage.Name(cfg.DefaultProvider)}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	var prefs session.PreferenceStore = session.NewMemoryStore()
	if cfg.PreferencePath != "" {
		prefs = session.NewFileStore(cfg.PreferencePath)
	}
	return session.NewManager(policy, prefs, registry, logger), nil
}

// watchProviderChanges drops cached stats and announces every provider switch
func watchProviderChanges(sessions *session.Manager, stats *handler.StatsCache, publisher events.Publisher, logger *slog.Logger) {
	sessions.OnChange(func(_ context.Context, change session.Change) {
		stats.InvalidateProvider(change.From)
		stats.InvalidateProvider(change.To)
	})
	sessions.OnChange(func(ctx context.Context, change session.Change) {
		logger.Info("Storage provider changed",
			slog.String("client", change.Client),
			slog.String("from", string(change.From)),
			slog.String("to", string(change.To)),
			slog.String("reason", change.Reason),
		)
		err := publisher.Publish(ctx, events.KeyProviderChanged, events.ProviderChanged{
			From:          change.From,
			To:            change.To,
			Authenticated: change.Authenticated,
			Reason:        change.Reason,
		})
		if err != nil {
			logger.Warn("Failed to publish provider change", slog.Any("error", err))
		}
	})
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, deps *handler.Dependencies, identity auth.IdentityProvider, brokerConnected func() bool) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps, router.Options{
		ServiceName:     cfg.App.Name,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Identity:        identity,
		ParseRateLimit:  cfg.Parser.RateLimit,
		ParseBurst:      cfg.Parser.Burst,
		BrokerConnected: brokerConnected,
	})
}
