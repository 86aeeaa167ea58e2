package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	httpapi "github.com/wxcache/weather-service/internal/api/http"
	"github.com/wxcache/weather-service/internal/config"
	"github.com/wxcache/weather-service/internal/eventlog"
	"github.com/wxcache/weather-service/internal/scheduler"
	"github.com/wxcache/weather-service/internal/stats"
	"github.com/wxcache/weather-service/internal/store"
	"github.com/wxcache/weather-service/internal/weather"
	"github.com/wxcache/weather-service/internal/weather/providers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	setupCtx, setupCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer setupCancel()

	// S3-backed reading store.
	readingStore, err := store.NewS3Store(setupCtx, store.Config{
		Bucket:   cfg.S3Bucket,
		Region:   cfg.AWSRegion,
		Endpoint: cfg.S3Endpoint,
	})
	if err != nil {
		log.Fatalf("failed to create reading store: %v", err)
	}
	if err := readingStore.EnsureBucket(setupCtx); err != nil {
		log.Fatalf("failed to ensure bucket exists: %v", err)
	}

	// DynamoDB-backed event log.
	events, err := eventlog.NewDynamoLog(setupCtx, eventlog.Config{
		Table:    cfg.DynamoDBTable,
		Region:   cfg.AWSRegion,
		Endpoint: cfg.DynamoDBEndpoint,
	})
	if err != nil {
		log.Fatalf("failed to create event log: %v", err)
	}
	if err := events.EnsureTable(setupCtx); err != nil {
		log.Fatalf("failed to ensure table exists: %v", err)
	}

	// Upstream provider with resilience (backoff + circuit breaker).
	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL)
	defer provider.Close()

	// Core service orchestrating cache-aside retrieval.
	service := weather.NewService(provider, readingStore, events, cfg.CacheTTL)

	// Aggregate counters for the stats endpoint.
	aggregator := stats.New(events, readingStore)

	// Optional cache warmer for configured cities.
	warmer := scheduler.New(cfg.WarmCities, cfg.WarmInterval, service)
	if err := warmer.Start(); err != nil {
		log.Fatalf("failed to start cache warmer: %v", err)
	}
	defer warmer.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-service",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"detail": "Internal server error",
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// API routes.
	httpapi.RegisterRoutes(app, service, aggregator)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
