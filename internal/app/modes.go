package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
	"github.com/Domadoni/Epl-arb-finder/internal/schedule"
	"github.com/Domadoni/Epl-arb-finder/internal/server"
	"github.com/Domadoni/Epl-arb-finder/internal/server/handler"
	"github.com/Domadoni/Epl-arb-finder/internal/server/ws"
	"github.com/Domadoni/Epl-arb-finder/internal/service"
)

const shutdownTimeout = 10 * time.Second

// ScanMode runs a single cycle. Without -force it exits quietly when the
// schedule gate declines the current minute.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	res, err := deps.Cycle.Run(ctx, a.opts.Force)
	a.recordQuota(deps)
	if err != nil {
		return err
	}
	a.logCycle(ctx, res)
	return nil
}

// DaemonMode evaluates the gate every tick (every minute by default) and runs
// a cycle when it opens. The HTTP API is served alongside when enabled.
func (a *App) DaemonMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting daemon mode",
		slog.String("tick", a.cfg.Schedule.Tick),
		slog.String("timezone", deps.Gate.Location().String()),
	)

	g, ctx := errgroup.WithContext(ctx)

	runner := schedule.NewRunner(ctx, deps.Gate.Location(), a.logger)
	if _, err := runner.Add(a.cfg.Schedule.Tick, func(ctx context.Context) {
		res, err := deps.Cycle.Run(ctx, false)
		a.recordQuota(deps)
		switch {
		case errors.Is(err, domain.ErrScanInProgress):
			a.logger.InfoContext(ctx, "previous scan still running; tick skipped")
		case err != nil:
			a.logger.ErrorContext(ctx, "scan cycle failed", slog.String("error", err.Error()))
		case !res.Skipped:
			a.logCycle(ctx, res)
		}
	}); err != nil {
		return err
	}
	runner.Start()
	a.closers = append(a.closers, runner.Stop)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})
	return g.Wait()
}

// ServerMode serves the HTTP API only; scans run when triggered through it.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode", slog.Int("port", a.cfg.Server.Port))
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// NotifyTestMode sends the wiring test message to every configured sender.
func (a *App) NotifyTestMode(ctx context.Context, deps *Dependencies) error {
	if err := deps.Notifier.SendTest(ctx); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "test notification sent")
	return nil
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	startedAt := time.Now().UTC()
	status := handler.NewStatusHandler(a.cfg.Mode, startedAt, deps.Scans)

	hub := ws.NewHub(deps.SignalBus, status.Snapshot, a.logger)

	scans := handler.NewScanHandler(deps.Scans, deps.Cycle, a.logger)
	if h, ok := deps.SignalBus.(handler.ScanHistory); ok {
		scans.WithHistory(h)
	}

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(deps.Pingers, a.logger),
		Status:      status,
		Scans:       scans,
		Stake:       handler.NewStakeHandler(deps.Detector, deps.Commissions, a.logger),
		Commissions: handler.NewCommissionHandler(deps.Commissions, a.logger),
		Metrics:     deps.Metrics.Handler(),
		WS:          hub,
	}
	if deps.AuditStore != nil {
		handlers.Audit = handler.NewAuditHandler(deps.AuditStore, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		APIKey:             a.cfg.Server.APIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
	}, handlers, deps.RateLimiter, a.logger)

	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
}

func (a *App) recordQuota(deps *Dependencies) {
	if q := deps.Odds.Quota(); !q.UpdatedAt.IsZero() {
		deps.Metrics.OddsQuotaRemaining.Set(float64(q.Remaining))
	}
}

func (a *App) logCycle(ctx context.Context, res service.CycleResult) {
	if res.Skipped {
		a.logger.InfoContext(ctx, "scan skipped", slog.String("reason", res.Reason))
		return
	}
	a.logger.InfoContext(ctx, "scan cycle complete",
		slog.String("scan_id", res.Scan.ID),
		slog.Int("events", res.Scan.EventsScanned),
		slog.Int("opportunities", len(res.Scan.Opportunities)),
		slog.Int("failures", len(res.Scan.Failures)),
		slog.String("alert", res.Alert.Status),
		slog.Int("exported", len(res.Exported)),
	)
}
