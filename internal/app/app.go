// Package app wires the arb finder together (odds client, detector, state
// backends, notifiers, exporter, HTTP API) and runs the configured mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Domadoni/Epl-arb-finder/internal/config"
)

// Options are run-time switches that come from the command line rather than
// the config file.
type Options struct {
	// Force bypasses the schedule gate in scan mode.
	Force bool
}

// App owns the configuration, logger and cleanup functions, which run in
// reverse registration order.
type App struct {
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	closers []func()
}

func New(cfg *config.Config, opts Options, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		opts:   opts,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies and blocks in the selected mode.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "scan":
		return a.ScanMode(ctx, deps)
	case "daemon":
		return a.DaemonMode(ctx, deps)
	case "server":
		return a.ServerMode(ctx, deps)
	case "notify-test":
		return a.NotifyTestMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close is safe to call more than once.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
