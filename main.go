package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/placement-portal/daily-quiz-service/internal/cache"
	"github.com/placement-portal/daily-quiz-service/internal/config"
	"github.com/placement-portal/daily-quiz-service/internal/events"
	"github.com/placement-portal/daily-quiz-service/internal/generator"
	"github.com/placement-portal/daily-quiz-service/internal/handlers"
	"github.com/placement-portal/daily-quiz-service/internal/llm"
	"github.com/placement-portal/daily-quiz-service/internal/mailer"
	"github.com/placement-portal/daily-quiz-service/internal/repositories/postgres"
	"github.com/placement-portal/daily-quiz-service/internal/services"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
	"github.com/placement-portal/daily-quiz-service/internal/validator"
	"github.com/placement-portal/daily-quiz-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis: %v", err)
		}
	}

	// Initialize repositories
	repo := postgres.NewPostgreSQLRepository(db)

	// The clock decides which civil date "today's quiz" belongs to.
	clock, err := utils.NewCivilClock(cfg.Timezone)
	if err != nil {
		log.Fatalf("Failed to initialize clock: %v", err)
	}

	// Initialize the question generation provider
	provider, err := llm.NewGeminiProvider(context.Background(), llm.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		log.Fatalf("Failed to initialize generation provider: %v", err)
	}
	gen := generator.New(provider, cfg.GenerationTimeout, slogLogger)

	// Initialize the event publisher; without brokers events stay in-process
	var publisher events.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaEventPublisher(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize kafka publisher: %v", err)
		}
	} else {
		publisher = events.NewMockEventPublisher(slogLogger)
	}

	// Initialize the mailer; without SMTP settings mail is logged, not sent
	var mail mailer.Mailer
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		mail = mailer.NewNoopMailer(slogLogger)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(services.ServiceManagerDeps{
		DB:        db,
		Repo:      repo,
		Logger:    slogLogger,
		Validator: validator.New(),
		Clock:     clock,
		Generator: gen,
		Publisher: publisher,
		Cache:     cache.NewCacheManager(redisClient),
		Mailer:    mail,
	}, services.ServiceManagerConfig{
		Auth: services.AuthConfig{
			JWTSecret: []byte(cfg.JWTSecret),
			TokenTTL:  cfg.TokenTTL,
		},
		GenerationTimeout: cfg.GenerationTimeout,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, logger, []byte(cfg.JWTSecret))

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	handlers.SetupMiddleware(router, logger)

	// Setup routes
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Shutdown services
	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	// Close database connection
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
