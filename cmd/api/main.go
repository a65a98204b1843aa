package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/centauromax/prep-center-sub000/pkg/cloudevents"
	"github.com/centauromax/prep-center-sub000/pkg/kafka"
	"github.com/centauromax/prep-center-sub000/pkg/logging"
	"github.com/centauromax/prep-center-sub000/pkg/metrics"
	"github.com/centauromax/prep-center-sub000/pkg/middleware"
	"github.com/centauromax/prep-center-sub000/pkg/mongodb"
	"github.com/centauromax/prep-center-sub000/pkg/outbox"
	outboxMongo "github.com/centauromax/prep-center-sub000/pkg/outbox/mongodb"

	"github.com/centauromax/prep-center-sub000/internal/api"
	"github.com/centauromax/prep-center-sub000/internal/application"
	mongoRepo "github.com/centauromax/prep-center-sub000/internal/infrastructure/mongodb"
	"github.com/centauromax/prep-center-sub000/internal/infrastructure/prepapi"
	"github.com/centauromax/prep-center-sub000/internal/notify"
)

const serviceName = "events-service"

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting events-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceEventsService)

	// Initialize repositories
	db := mongoClient.Database()
	eventRepo := mongoRepo.NewEventRepository(db)
	dedupStore := mongoRepo.NewDedupStore(db)
	notificationRepo := mongoRepo.NewNotificationRepository(db)
	searchRepo := mongoRepo.NewSearchResultRepository(db)
	flagStore := mongoRepo.NewJobFlagStore(db)

	outboxRepo := outboxMongo.NewOutboxRepository(db)
	if err := outboxRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Error("Failed to ensure outbox indexes")
		os.Exit(1)
	}

	// Initialize and start outbox publisher
	outboxPublisher := outbox.NewPublisher(
		outboxRepo,
		kafkaProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize the remote prep service client
	prepClient := prepapi.NewClient(config.PrepAPI, logger)

	// Initialize the notification pipeline
	gateway := notify.NewGateway(prepClient, notificationRepo, logger, m, nil)

	var provider notify.Provider
	if config.NotifyWebhookURL != "" {
		provider = notify.NewWebhookProvider(config.NotifyWebhookURL, 10*time.Second)
		logger.Info("Notification provider: webhook", "endpoint", config.NotifyWebhookURL)
	} else {
		provider = notify.NewLogProvider(logger)
		logger.Info("Notification provider: log")
	}

	notifyWorker := notify.NewWorker(notificationRepo, provider, logger, m, &notify.WorkerConfig{
		Workers:      config.NotifyWorkers,
		PollInterval: 2 * time.Second,
		BatchSize:    50,
	})
	if err := notifyWorker.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start notification worker")
		os.Exit(1)
	}
	defer notifyWorker.Stop()
	logger.Info("Notification worker started", "workers", config.NotifyWorkers)

	// Initialize application services
	reconciliation := application.NewReconciliationEngine(prepClient, outboxRepo, eventFactory, logger, m)
	dispatcher := application.NewEventDispatcher(eventRepo, gateway, outboxRepo, eventFactory, reconciliation, logger, m, nil)
	guard := application.NewDedupGuard(dedupStore, config.DedupWindow, nil)
	eventService := application.NewEventService(eventRepo, guard, dispatcher, logger, m, nil)
	searchService := application.NewSearchService(prepClient, searchRepo, flagStore, logger, m, config.SearchConcurrency)

	// Setup Gin router with middleware
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes
	handlers := api.NewHandlers(eventService, searchService, logger, config.WebhookSecret)
	handlers.Register(router)

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr        string
	WebhookSecret     string
	DedupWindow       time.Duration
	NotifyWorkers     int
	NotifyWebhookURL  string
	SearchConcurrency int
	MongoDB           *mongodb.Config
	Kafka             *kafka.Config
	PrepAPI           *prepapi.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:        getEnv("SERVER_ADDR", ":8020"),
		WebhookSecret:     getEnv("WEBHOOK_SECRET", ""),
		DedupWindow:       getDurationEnv("DEDUP_WINDOW", 5*time.Minute),
		NotifyWorkers:     getIntEnv("NOTIFY_WORKERS", 2),
		NotifyWebhookURL:  getEnv("NOTIFY_WEBHOOK_URL", ""),
		SearchConcurrency: getIntEnv("SEARCH_CONCURRENCY", 4),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "prepcenter"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
		PrepAPI: &prepapi.Config{
			BaseURL: getEnv("PREP_API_BASE_URL", "http://localhost:8000"),
			APIKey:  getEnv("PREP_API_KEY", ""),
			Timeout: 15 * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
