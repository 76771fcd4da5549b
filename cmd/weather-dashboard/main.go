package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/city"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	// Cancelled on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Shared HTTP client for outbound Open-Meteo calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	source := providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoBaseURL, clock, cfg.Location)

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge, clock)

	service := weather.NewService(memStore, source, weather.NewMerger(clock, cfg.Location), weather.ServiceOptions{
		CacheTTL: cfg.CacheTTL,
		Clock:    clock,
		Logger:   lg,
		Metrics:  metrics,
	})

	resolverOpts := city.ResolverOptions{
		GeolocationTimeout: cfg.GeolocationTimeout,
		Metrics:            metrics,
	}
	if cfg.GeocoderAPIKey != "" {
		resolverOpts.Geocoder = city.NewGoogleGeocoder(cfg.GeocoderAPIKey)
	}
	catalog := city.DefaultCatalog()
	resolver := city.NewResolver(catalog, lg, resolverOpts)

	sessions := session.NewManager(resolver, service, session.ManagerOptions{
		Clock:       clock,
		IdleTTL:     cfg.SessionIdleTTL,
		MaxSessions: cfg.SessionMax,
		Logger:      lg,
		Metrics:     metrics,
	})
	defer sessions.Close()
	go sessions.Run(ctx)

	// Scheduler that keeps the configured cities warm.
	var warm []city.City
	for _, name := range cfg.WarmCities {
		c, ok := catalog.Lookup(name)
		if !ok {
			lg.Warn("unknown warm city; skipping", zap.String("city", name))
			continue
		}
		warm = append(warm, c)
	}
	sched := scheduler.New(warm, cfg.FetchInterval, service, lg)
	if err := sched.Start(); err != nil {
		lg.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler(lg),
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Resolver: resolver,
		Service:  service,
		Sessions: sessions,
		Logger:   lg,
	})

	go func() {
		lg.Info("server starting", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error("error during shutdown", zap.Error(err))
	}
}
