// Package app assembles the store, provider and service from configuration.
// Both the server and envctl build on it.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/env-timeseries/internal/api/http"
	"github.com/i474232898/env-timeseries/internal/config"
	"github.com/i474232898/env-timeseries/internal/logging"
	"github.com/i474232898/env-timeseries/internal/metrics"
	"github.com/i474232898/env-timeseries/internal/scheduler"
	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/store"
	"github.com/i474232898/env-timeseries/internal/weather"
	"github.com/i474232898/env-timeseries/internal/weather/providers"
)

const name = "env-timeseries"

// App holds the wired components of one process.
type App struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Store    store.Store
	Provider weather.Provider
	Service  *weather.Service
}

// Option overrides a component before the service is built.
type Option func(*App)

// WithProvider replaces the Open-Meteo provider.
func WithProvider(p weather.Provider) Option {
	return func(a *App) { a.Provider = p }
}

// WithLogger replaces the logger built from configuration.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.Logger = l }
}

// New builds every component described by cfg. The caller owns Close.
func New(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*App, error) {
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.Logger == nil {
		logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
		if err != nil {
			return nil, err
		}
		a.Logger = logger
	}
	if cfg.MetricsEnabled {
		a.Metrics = metrics.NewCollector("env_timeseries")
	}

	st, err := store.Open(ctx, cfg.StoreBackend, cfg.StoreDSN, store.Options{
		MaxHistory: cfg.StoreMaxHistory,
		MaxAge:     cfg.StoreMaxAge,
		Logger:     a.Logger,
		Metrics:    a.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	a.Store = st

	if a.Provider == nil {
		a.Provider = providers.NewOpenMeteoProvider(providers.OpenMeteoConfig{
			Client:  &http.Client{Timeout: cfg.HTTPTimeout},
			Backoff: providers.BackoffConfig{MaxRetries: cfg.ProviderMaxRetries},
			RPS:     cfg.ProviderRPS,
			Burst:   cfg.ProviderBurst,
			Metrics: a.Metrics,
		})
	}

	a.Service = weather.NewService(st, st, a.Provider,
		weather.WithLogger(a.Logger),
		weather.WithMetrics(a.Metrics),
		weather.WithPlanner(series.NewPlanner(cfg.RecentDays)),
		weather.WithChunkConcurrency(cfg.ChunkConcurrency),
	)

	a.Logger.Info("application wired",
		zap.String("store", string(cfg.StoreBackend)),
		zap.String("provider", a.Provider.Name()),
		zap.Bool("metrics", cfg.MetricsEnabled))
	return a, nil
}

// Health pings the store when it supports it.
func (a *App) Health(ctx context.Context) error {
	if p, ok := a.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// HTTP returns the Fiber app serving the API, /health and /metrics.
func (a *App) HTTP() *fiber.App {
	app := httpapi.NewApp(httpapi.Options{
		Name:    name,
		Logger:  a.Logger,
		Metrics: a.Metrics,
		Health:  a.Health,
	})
	httpapi.RegisterRoutes(app, a.Service)
	return app
}

// Scheduler resolves the configured place names and returns a scheduler
// refreshing them. Unresolvable names are logged and skipped.
func (a *App) Scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	locs, err := a.Service.ResolveLocations(ctx, a.Config.Locations)
	if err != nil {
		return nil, err
	}
	return scheduler.New(locs, a.Config.FetchInterval, a.Service, a.Logger), nil
}

// Close releases the store and flushes the logger.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
