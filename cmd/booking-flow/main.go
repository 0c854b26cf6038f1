// cmd/booking-flow/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"inkbook/internal/app"
	"inkbook/internal/common/config"
	"inkbook/internal/common/logger"
	"inkbook/internal/common/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	zapLog.Info("Starting booking flow service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, zapLog)
	defer obs.Shutdown()

	svc, err := app.Build(context.Background(), cfg, zapLog, obs, app.DefaultRetry)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}

	go func() {
		if err := svc.Server.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, saving open flows...")
	if err := svc.Shutdown(context.Background()); err != nil {
		zapLog.Error("Error during shutdown", zap.Error(err))
	}

	zapLog.Info("Booking flow service stopped gracefully")
}
