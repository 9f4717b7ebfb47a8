package main

// @title           North Backend API
// @version         1.0
// @description     Google OAuth2 login, multi-room chat and a Google Drive proxy
// @host            localhost:8000
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	"north-backend/internal/adapters/kafka"
	"north-backend/internal/adapters/storage"
	"north-backend/internal/api/routes"
	"north-backend/internal/config"
	"north-backend/internal/database"
	"north-backend/internal/relay"
	"north-backend/internal/repositories/postgres"
	"north-backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("Starting north backend")

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisService := services.NewRedisService(redisClient)

	// Kafka is optional; without brokers, message events stay local.
	var events relay.EventSink
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("Failed to connect to Kafka", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		events = kafka.NewEventProducer(producer, cfg.Kafka.Topic)
		slog.Info("Kafka event stream enabled", "topic", cfg.Kafka.Topic)
	}

	// MinIO staging is optional; without it uploads stream straight to Drive.
	var staging *storage.StagingStore
	if cfg.MinIO.Endpoint != "" {
		staging, err = storage.NewStagingStore(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL)
		if err != nil {
			slog.Error("Failed to connect to MinIO", "error", err)
			os.Exit(1)
		}
		slog.Info("MinIO staging enabled", "bucket", cfg.MinIO.Bucket)
	}

	// Initialize the chat relay
	chatStore := services.NewChatStore(
		postgres.NewMessageRepository(db),
		postgres.NewUserRepository(db),
	)
	chatRelay := relay.New(chatStore, chatStore, events, logger)

	// Initialize router with all dependencies
	router := routes.NewRouter(cfg, db, chatRelay, redisService, staging, logger)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Disconnect every live chat client before closing the listener
	chatRelay.Shutdown()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
