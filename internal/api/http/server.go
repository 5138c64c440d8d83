package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/i474232898/env-timeseries/internal/metrics"
)

// Options configures NewApp.
type Options struct {
	Name    string
	Logger  *zap.Logger
	Metrics *metrics.Collector

	// Health reports dependency status for /health; nil means always healthy.
	Health func(ctx context.Context) error
}

// NewApp builds the Fiber app with the shared error handler, middleware,
// /health and, when a collector is given, /metrics.
func NewApp(opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "env-timeseries"
	}

	app := fiber.New(fiber.Config{
		AppName:               opts.Name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(requestLogger(opts.Logger, opts.Metrics))

	app.Get("/health", func(c *fiber.Ctx) error {
		if opts.Health != nil {
			if err := opts.Health(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":  "degraded",
					"service": opts.Name,
					"error":   err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": opts.Name,
		})
	})

	if reg := opts.Metrics.Registry(); reg != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	return app
}

// requestLogger logs each request and records its latency per route.
func requestLogger(logger *zap.Logger, m *metrics.Collector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		took := time.Since(start)

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		route := c.Route().Path
		m.RecordAPIRequest(route, c.Method(), strconv.Itoa(status), took)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("took", took),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Info("request", fields...)
		}
		return err
	}
}
