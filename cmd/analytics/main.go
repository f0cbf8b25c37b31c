package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/howshous/analytics/internal/analytics"
	"github.com/howshous/analytics/internal/common/config"
	"github.com/howshous/analytics/internal/common/db"
	"github.com/howshous/analytics/internal/common/kafka"
	"github.com/howshous/analytics/internal/common/logger"
	"github.com/howshous/analytics/internal/common/metrics"
	"github.com/howshous/analytics/internal/common/middleware"
	"github.com/howshous/analytics/internal/common/redis"
	"github.com/howshous/analytics/internal/insights"
	"github.com/howshous/analytics/internal/listings"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.Load("analytics")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("analytics-service")
	defer log.Sync()

	// Connect to database
	database, err := db.Connect(cfg.Database, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Connect to Redis
	redisClient, err := redis.Connect(cfg.Redis, log)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Kafka producer and consumer
	producer := kafka.NewProducer(cfg.Kafka, log)
	defer producer.Close()

	consumer := kafka.NewConsumer(cfg.Kafka, analytics.EventsTopic, log)
	defer consumer.Close()
	log.Infof("Kafka consumer initialized for topic %s (group %s)", analytics.EventsTopic, cfg.Kafka.GroupID)

	// Initialize repositories
	listingRepo := listings.NewRepository(database)
	analyticsRepo := analytics.NewRepository(database, log)

	// Initialize analytics pipeline
	analyticsService := analytics.NewService(analyticsRepo, listingRepo, redisClient, log)
	analyticsHandler := analytics.NewHandler(analyticsService, producer, log)

	// Initialize AI insight gateway. A missing API key leaves the model client
	// nil; the gateway then serves cached replies or reports itself
	// unconfigured instead of failing closed.
	var modelClient insights.ModelClient
	if cfg.AI.APIKey != "" {
		modelClient = insights.NewGroqClient(cfg.AI)
		log.Infof("AI gateway configured with model %s", cfg.AI.Model)
	} else {
		log.Warn("GROQ_API_KEY not set, insight chat will serve cached replies only")
	}
	insightStore := insights.NewRedisStore(redisClient, cfg.AI.CacheTTL)
	insightService := insights.NewService(analyticsService, listingRepo, insightStore, modelClient, cfg.AI, log)
	insightHandler := insights.NewHandler(insightService, log)

	// HTTP server
	mux := http.NewServeMux()
	analytics.SetupRoutes(mux, analyticsHandler, cfg.JWT.Secret)
	insights.SetupRoutes(mux, insightHandler, cfg.JWT.Secret)
	mux.Handle("GET /metrics", metrics.Handler())

	var handler http.Handler = mux
	handler = middleware.CORS(handler)
	handler = middleware.Logging(log)(handler)
	handler = middleware.Recovery(log)(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Service.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Analytics API starting on port %s", cfg.Service.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Start Kafka consumer worker
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()

	go func() {
		log.Infof("Kafka consumer started on topic: %s", analytics.EventsTopic)

		for {
			select {
			case <-consumerCtx.Done():
				log.Info("Kafka consumer stopped")
				return
			default:
				err := consumer.Consume(consumerCtx, func(ctx context.Context, key, value []byte) error {
					return analyticsService.ProcessKafkaEvent(ctx, value)
				})
				if err != nil {
					if consumerCtx.Err() != nil {
						return
					}
					log.Errorf("Error consuming Kafka message: %v", err)
					time.Sleep(5 * time.Second)
				}
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	cancelConsumer()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited gracefully")
}
