package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/env-timeseries/internal/app"
	"github.com/i474232898/env-timeseries/internal/config"
)

func main() {
	// Load configuration (.env, environment, optional config file).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// run serves until SIGINT/SIGTERM. Every deferred cleanup runs before it returns.
func run(cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store, provider and service.
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	logger := a.Logger

	// Scheduler that periodically refreshes current weather for tracked locations.
	sched, err := a.Scheduler(ctx)
	if err != nil {
		logger.Error("failed to resolve tracked locations", zap.Error(err))
		return err
	}
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", zap.Error(err))
		return err
	}
	defer sched.Stop()

	server := a.HTTP()

	// Start server with graceful shutdown
	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		if err := server.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
			stop()
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	return nil
}
