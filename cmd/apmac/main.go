package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lcalzada-xor/apmac/internal/app"
	"github.com/lcalzada-xor/apmac/internal/config"
	"github.com/lcalzada-xor/apmac/internal/telemetry"
)

func main() {
	// load config
	cfg := config.Load()

	// Setup Structured Logging
	opts := &slog.HandlerOptions{}
	if cfg.Debug {
		opts.Level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(logger)

	// Initialize Tracing. Spans go to stderr to keep the log stream clean.
	if cfg.TraceRatio > 0 {
		shutdownTracer, err := telemetry.InitTracer(telemetry.TracerOptions{
			Writer:      os.Stderr,
			SampleRatio: cfg.TraceRatio,
		})
		if err != nil {
			slog.Error("Failed to init tracer", "error", err)
		} else {
			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					slog.Error("Failed to shutdown tracer", "error", err)
				}
			}()
		}
	}

	// Initialize Application
	application, err := app.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Root Context with cancellation on Interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("APMAC Starting...", "ssid", cfg.SSID, "bssid", cfg.BSSID, "mock", cfg.MockMode)

	// Restore network on exit
	defer application.RestoreNetwork()

	// Run Application
	if err := application.Run(ctx); err != nil {
		slog.Error("Application error", "error", err)
		cancel()
	}
}
