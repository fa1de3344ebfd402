// Command marketsync scans prediction-market venues for matching markets,
// sizes mirrored liquidity, and runs autopilot and mirror strategies. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and runs the configured mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/marketsync/internal/app"
	"github.com/alanyoungcy/marketsync/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file (empty for defaults only)")
	mode := flag.String("mode", "", "override the configured mode (scan, size, autopilot, mirror, run)")
	flag.Parse()

	// Setup structured JSON logger. Results go to stdout, so logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("marketsync starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)
	logger.Debug("effective configuration", slog.Any("config", config.RedactedConfig(cfg)))

	application := app.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	runErr := application.Run(ctx)
	stop()
	application.Close()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", runErr.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", runErr)
		os.Exit(1)
	}

	logger.Info("marketsync stopped")
}
