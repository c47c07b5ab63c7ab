package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/telemetry"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()
	appLog := logger.GetLogger("main")

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provOpts := providers.Options{
		Client:     httpClient,
		MaxRetries: cfg.UpstreamMaxRetries,
		RPS:        cfg.UpstreamRPS,
		Burst:      cfg.UpstreamBurst,
	}
	var provider weather.Provider
	switch cfg.Provider {
	case config.ProviderWeatherAPI:
		provOpts.APIKey = cfg.WeatherAPIKey
		provider = providers.NewWeatherAPIProvider(provOpts)
	default:
		provOpts.APIKey = cfg.OpenWeatherAPIKey
		provider = providers.NewOpenWeatherProvider(provOpts)
	}

	// Cache store: transient by default, SQLite when a durable cache is wanted.
	var cacheStore weather.Store
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		sqliteStore, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			appLog.Fatalw("failed to open sqlite cache", "path", cfg.SQLitePath, "error", err)
		}
		defer sqliteStore.Close()
		cacheStore = sqliteStore
	default:
		cacheStore = store.NewMemoryStore()
	}

	// Core orchestrator.
	service := weather.NewService(cacheStore, provider,
		weather.WithFreshness(cfg.Freshness),
		weather.WithForecastDays(cfg.ForecastDays),
		weather.WithRefreshTimeout(cfg.RequestTimeout),
	)

	// Cache warmer for configured cities.
	sched := scheduler.New(cfg.WarmCities, cfg.WarmInterval, cfg.RequestTimeout, service)
	if err := sched.Start(); err != nil {
		appLog.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RequestTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: "GET, POST, OPTIONS",
		AllowHeaders: "Accept, Content-Type, Origin",
	}))
	app.Use(telemetry.PrometheusMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-lookup",
		})
	})
	app.Get("/metrics", telemetry.PrometheusHandler())

	// API routes.
	httpapi.RegisterRoutes(app, service, cfg.RequestTimeout)

	go func() {
		appLog.Infow("listening", "port", cfg.Port, "provider", provider.Name(), "store", cfg.StoreBackend)
		if err := app.Listen(":" + cfg.Port); err != nil {
			appLog.Errorw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLog.Errorw("error during shutdown", "error", err)
	}
}
