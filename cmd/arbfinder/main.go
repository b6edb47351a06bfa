// Command arbfinder scans English football odds for surebets and sends a
// digest of new ones to Telegram or Discord. It loads configuration, wires
// dependencies and runs in the configured mode until signalled.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/Domadoni/Epl-arb-finder/internal/app"
	"github.com/Domadoni/Epl-arb-finder/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "override mode: scan, daemon, server or notify-test")
	force := flag.Bool("force", false, "scan now even when the schedule gate is closed")
	flag.Parse()

	logger := newLogger("info")
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

	logger = newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("arbfinder starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, app.Options{Force: *force}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = application.Run(ctx)
	stop()
	application.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	logger.Info("arbfinder stopped")
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
