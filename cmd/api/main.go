package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/verdantlabs/verdant/internal/adapters/http"
	"github.com/verdantlabs/verdant/internal/adapters/imagery"
	natsadapter "github.com/verdantlabs/verdant/internal/adapters/nats"
	"github.com/verdantlabs/verdant/internal/adapters/postgres"
	"github.com/verdantlabs/verdant/internal/adapters/valkey"
	"github.com/verdantlabs/verdant/internal/core/ports"
	"github.com/verdantlabs/verdant/internal/core/usecases"
	"github.com/verdantlabs/verdant/internal/pkg/config"
	"github.com/verdantlabs/verdant/internal/pkg/logging"
	"github.com/verdantlabs/verdant/internal/pkg/metrics"
	"github.com/verdantlabs/verdant/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("verdant-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache. The interface variable stays nil unless the connection
	// succeeded, so the services skip caching rather than hit a dead
	// client.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
	if err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS. Same pattern: events are skipped entirely when the broker
	// is down, keeping quotes and measurements serviceable.
	var events ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer publisher.Close()
		events = publisher
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	ruleRepo := postgres.NewPricingRuleRepo(db)
	measurementRepo := postgres.NewMeasurementRepo(db)
	applicationRepo := postgres.NewRuleApplicationRepo(db)

	// Use cases
	detector := usecases.NewProportionalDetector(usecases.DefaultSplitFractions())
	edgeDetector := imagery.NewSimulatedDetector()

	measurementSvc := usecases.NewMeasurementService(detector, measurementRepo, cacheSvc, events)
	snappingSvc := usecases.NewSnappingService(edgeDetector)
	pricingSvc := usecases.NewPricingService(ruleRepo, events)

	deps := &http.Dependencies{
		Measurements: measurementSvc,
		Snapping:     snappingSvc,
		Pricing:      pricingSvc,
		Rules:        ruleRepo,
		Applications: applicationRepo,
		NATS:         natsConn,
		DB:           db,
		Cache:        cache,
	}

	// Periodic DB pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Verdant API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.verdantlabs.io",
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
