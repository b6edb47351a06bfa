package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/Domadoni/Epl-arb-finder/internal/dedup"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
	"github.com/Domadoni/Epl-arb-finder/internal/metrics"
	"github.com/Domadoni/Epl-arb-finder/internal/notify"
)

// Alert outcomes, also used as metric labels.
const (
	AlertSent           = "sent"
	AlertUnchanged      = "unchanged"
	AlertBelowThreshold = "below_threshold"
	AlertDisabled       = "disabled"
	AlertFailed         = "failed"
)

// AlertConfig configures the alert service.
type AlertConfig struct {
	// MinROIPct is the notification threshold; it may be stricter than the
	// report threshold applied by the detector.
	MinROIPct float64
	Digest    notify.DigestOptions
}

// AlertResult describes what happened to one scan's opportunities.
type AlertResult struct {
	Status      string `json:"status"`
	Notified    int    `json:"notified"`
	Listed      int    `json:"listed"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// AlertService turns scan results into deduplicated digest notifications.
type AlertService struct {
	notifier *notify.Notifier
	dedup    *dedup.Deduplicator
	audit    domain.AuditStore
	metrics  *metrics.ScanMetrics
	cfg      AlertConfig
	logger   *slog.Logger
}

// NewAlertService creates an AlertService. audit and m may be nil.
func NewAlertService(
	notifier *notify.Notifier,
	d *dedup.Deduplicator,
	audit domain.AuditStore,
	m *metrics.ScanMetrics,
	cfg AlertConfig,
	logger *slog.Logger,
) *AlertService {
	return &AlertService{
		notifier: notifier,
		dedup:    d,
		audit:    audit,
		metrics:  m,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "alert_service")),
	}
}

// Notifiable returns the opportunities at or above the notify threshold, in
// their original order.
func (s *AlertService) Notifiable(opps []domain.Opportunity) []domain.Opportunity {
	var out []domain.Opportunity
	for _, o := range opps {
		if o.ROIPct >= s.cfg.MinROIPct {
			out = append(out, o)
		}
	}
	return out
}

// Handle sends a digest for res when its notifiable set differs from the last
// one sent. The fingerprint is only stored after a successful send.
func (s *AlertService) Handle(ctx context.Context, res domain.ScanResult) (AlertResult, error) {
	opps := s.Notifiable(res.Opportunities)
	if len(opps) == 0 {
		s.logger.InfoContext(ctx, "no opportunities meet notify threshold",
			slog.String("scan_id", res.ID),
			slog.Int("reported", len(res.Opportunities)),
			slog.Float64("min_roi_pct", s.cfg.MinROIPct),
		)
		s.record(AlertBelowThreshold)
		return AlertResult{Status: AlertBelowThreshold}, nil
	}
	if !s.notifier.Enabled() || !s.notifier.Allows(notify.EventArbDetected) {
		s.record(AlertDisabled)
		return AlertResult{Status: AlertDisabled, Notified: len(opps)}, nil
	}

	opts := s.cfg.Digest
	opts.Failures = res.Failures
	message, listed := notify.FormatDigest(opps, opts)

	dec, err := s.dedup.Process(ctx, opps, func(ctx context.Context) error {
		return s.notifier.Notify(ctx, notify.EventArbDetected, "", message)
	})
	out := AlertResult{Notified: len(opps), Listed: listed, Fingerprint: dec.Fingerprint}
	if err != nil {
		out.Status = AlertFailed
		s.record(AlertFailed)
		if !errors.Is(err, domain.ErrLockHeld) {
			s.logAudit(ctx, "digest_failed", map[string]any{
				"scan_id":     res.ID,
				"fingerprint": dec.Fingerprint,
				"error":       err.Error(),
			})
		}
		return out, fmt.Errorf("alert_service: %w", err)
	}
	if !dec.Sent {
		out.Status = AlertUnchanged
		s.record(AlertUnchanged)
		s.logger.InfoContext(ctx, "opportunities unchanged; not sending",
			slog.String("scan_id", res.ID),
		)
		return out, nil
	}

	out.Status = AlertSent
	s.record(AlertSent)
	s.logAudit(ctx, "digest_sent", map[string]any{
		"scan_id":       res.ID,
		"fingerprint":   dec.Fingerprint,
		"opportunities": len(opps),
		"listed":        listed,
	})
	s.logger.InfoContext(ctx, "digest sent",
		slog.String("scan_id", res.ID),
		slog.Int("opportunities", len(opps)),
		slog.Int("listed", listed),
	)
	return out, nil
}

// HandleScanFailure notifies operators when a scan produced no data at all.
func (s *AlertService) HandleScanFailure(ctx context.Context, res domain.ScanResult, scanErr error) error {
	if !s.notifier.Enabled() {
		return nil
	}
	names := make([]string, len(res.Failures))
	for i, f := range res.Failures {
		names[i] = html.EscapeString(f.Competition)
	}
	msg := fmt.Sprintf("<b>Arb scan failed</b>\nNo odds could be fetched for: %s", strings.Join(names, ", "))
	if len(names) == 0 {
		msg = "<b>Arb scan failed</b>\n" + html.EscapeString(scanErr.Error())
	}
	s.logAudit(ctx, "scan_failed", map[string]any{"scan_id": res.ID, "error": scanErr.Error()})
	return s.notifier.Notify(ctx, notify.EventScanFailed, "", msg)
}

func (s *AlertService) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordNotification(result)
	}
}

func (s *AlertService) logAudit(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
