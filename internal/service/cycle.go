package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
	"github.com/Domadoni/Epl-arb-finder/internal/report"
	"github.com/Domadoni/Epl-arb-finder/internal/schedule"
)

// CycleResult summarises one pass of the scan cycle.
type CycleResult struct {
	Skipped    bool              `json:"skipped"`
	Reason     string            `json:"reason,omitempty"`
	Scan       domain.ScanResult `json:"scan"`
	Alert      AlertResult       `json:"alert"`
	Exported   []string          `json:"exported,omitempty"`
	ExportErr  string            `json:"export_error,omitempty"`
	AlertError string            `json:"alert_error,omitempty"`
}

// Cycle runs gate, scan, export and alert in order. It is what the one-shot
// scan mode, the daemon ticks and the HTTP trigger all invoke.
type Cycle struct {
	gate     *schedule.Gate
	scans    *ScanService
	alerts   *AlertService
	exporter *report.Exporter
	logger   *slog.Logger
	now      func() time.Time
}

// NewCycle creates a Cycle. gate and exporter may be nil.
func NewCycle(gate *schedule.Gate, scans *ScanService, alerts *AlertService, exporter *report.Exporter, logger *slog.Logger) *Cycle {
	return &Cycle{
		gate:     gate,
		scans:    scans,
		alerts:   alerts,
		exporter: exporter,
		logger:   logger.With(slog.String("component", "cycle")),
		now:      time.Now,
	}
}

// Run performs one cycle. With force set the schedule gate is bypassed.
// Export and notification failures are reported in the result and logged;
// the returned error is reserved for scans that could not run.
func (c *Cycle) Run(ctx context.Context, force bool) (CycleResult, error) {
	if !force && c.gate != nil {
		if ok, reason := c.gate.Check(c.now()); !ok {
			c.logger.InfoContext(ctx, "skipping this minute per schedule gating", slog.String("reason", reason))
			c.scans.PublishSkipped(ctx, reason)
			return CycleResult{Skipped: true, Reason: reason}, nil
		}
	}

	res, err := c.scans.Scan(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrScanInProgress) {
			c.scans.PublishSkipped(ctx, "scan_in_progress")
			return CycleResult{Skipped: true, Reason: "scan_in_progress"}, err
		}
		if res.ID != "" {
			if nerr := c.alerts.HandleScanFailure(ctx, res, err); nerr != nil {
				c.logger.WarnContext(ctx, "scan failure notification failed", slog.String("error", nerr.Error()))
			}
		}
		return CycleResult{Scan: res}, err
	}

	out := CycleResult{Scan: res}

	if c.exporter != nil {
		written, xerr := c.exporter.Export(ctx, res)
		out.Exported = written
		if xerr != nil {
			out.ExportErr = xerr.Error()
			c.logger.WarnContext(ctx, "export failed",
				slog.String("scan_id", res.ID),
				slog.String("error", xerr.Error()),
			)
		}
	}

	alert, aerr := c.alerts.Handle(ctx, res)
	out.Alert = alert
	if aerr != nil {
		out.AlertError = aerr.Error()
		c.logger.WarnContext(ctx, "notification failed",
			slog.String("scan_id", res.ID),
			slog.String("error", aerr.Error()),
		)
	}
	return out, nil
}
