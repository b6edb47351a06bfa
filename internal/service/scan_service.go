package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Domadoni/Epl-arb-finder/internal/arbitrage"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
	"github.com/Domadoni/Epl-arb-finder/internal/metrics"
)

// ScanConfig holds what a scan fetches.
type ScanConfig struct {
	Competitions   []domain.Competition
	Regions        []string
	Markets        []string
	MaxConcurrency int
}

// ScanService fetches odds for every configured competition, runs the
// detector over the snapshot and publishes the result. Only one scan runs at
// a time.
type ScanService struct {
	source      domain.OddsSource
	detector    *arbitrage.Detector
	commissions *CommissionService
	bus         domain.SignalBus
	metrics     *metrics.ScanMetrics
	cfg         ScanConfig
	logger      *slog.Logger
	now         func() time.Time

	running sync.Mutex

	mu   sync.RWMutex
	last *domain.ScanResult
}

// NewScanService creates a ScanService. bus and m may be nil.
func NewScanService(
	source domain.OddsSource,
	detector *arbitrage.Detector,
	commissions *CommissionService,
	bus domain.SignalBus,
	m *metrics.ScanMetrics,
	cfg ScanConfig,
	logger *slog.Logger,
) *ScanService {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	return &ScanService{
		source:      source,
		detector:    detector,
		commissions: commissions,
		bus:         bus,
		metrics:     m,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "scan_service")),
		now:         time.Now,
	}
}

type fetchResult struct {
	events []domain.Event
	err    error
}

// Scan runs one scan. A competition whose fetch fails is recorded in
// ScanResult.Failures and the others are still evaluated. Scan returns an
// error only when no competition could be fetched, or with
// domain.ErrScanInProgress when another scan holds the slot.
func (s *ScanService) Scan(ctx context.Context) (domain.ScanResult, error) {
	if !s.running.TryLock() {
		return domain.ScanResult{}, domain.ErrScanInProgress
	}
	defer s.running.Unlock()

	start := s.now()
	res := domain.ScanResult{
		ID:        uuid.NewString(),
		FetchedAt: start.UTC(),
		Regions:   append([]string(nil), s.cfg.Regions...),
	}
	log := s.logger.With(slog.String("scan_id", res.ID))
	log.InfoContext(ctx, "scan started", slog.Int("competitions", len(s.cfg.Competitions)))

	results := make([]fetchResult, len(s.cfg.Competitions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, comp := range s.cfg.Competitions {
		g.Go(func() error {
			t0 := time.Now()
			events, err := s.source.FetchOdds(gctx, domain.OddsQuery{
				SportKey: comp.SportKey,
				Regions:  s.cfg.Regions,
				Markets:  s.cfg.Markets,
			})
			results[i] = fetchResult{events: events, err: err}
			if s.metrics != nil {
				s.metrics.RecordFetch(comp.Name, time.Since(t0), len(events), err)
			}
			// Per-competition failures never cancel the siblings.
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("scan_service: %w", err)
	}

	commissions := s.commissions.Current(ctx)
	rejected := make(map[string]int)
	var firstErr error
	for i, comp := range s.cfg.Competitions {
		r := results[i]
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			res.Failures = append(res.Failures, domain.CompetitionFailure{
				Competition: comp.Name,
				SportKey:    comp.SportKey,
				Error:       r.err.Error(),
			})
			log.WarnContext(ctx, "odds fetch failed",
				slog.String("competition", comp.Name),
				slog.String("error", r.err.Error()),
			)
			continue
		}

		opps, stats := s.detector.Detect(comp, r.events, commissions)
		res.EventsScanned += len(r.events)
		res.Opportunities = append(res.Opportunities, opps...)
		for f, n := range stats.Rejected {
			rejected[f] += n
		}
		log.DebugContext(ctx, "competition evaluated",
			slog.String("competition", comp.Name),
			slog.Int("events", stats.Events),
			slog.Int("incomplete", stats.Incomplete),
			slog.Int("below_threshold", stats.BelowThreshold),
			slog.Int("found", stats.Found),
		)
	}
	res.Duration = time.Since(start)

	best := bestROI(res.Opportunities)
	if s.metrics != nil {
		s.metrics.RecordRejections(rejected)
		for _, o := range res.Opportunities {
			s.metrics.RecordOpportunity(o.Competition, string(o.Market))
		}
		s.metrics.RecordScan(res.Duration, best, res.FetchedAt)
	}

	s.mu.Lock()
	last := res
	s.last = &last
	s.mu.Unlock()

	s.publish(ctx, res, best)

	log.InfoContext(ctx, "scan completed",
		slog.Int("events", res.EventsScanned),
		slog.Int("opportunities", len(res.Opportunities)),
		slog.Int("failures", len(res.Failures)),
		slog.Float64("best_roi_pct", best),
		slog.Duration("duration", res.Duration),
	)

	if len(s.cfg.Competitions) > 0 && len(res.Failures) == len(s.cfg.Competitions) {
		return res, fmt.Errorf("scan_service: all %d competitions failed: %w", len(res.Failures), firstErr)
	}
	return res, nil
}

// Last returns the most recent scan result.
func (s *ScanService) Last() (domain.ScanResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.ScanResult{}, false
	}
	return *s.last, true
}

// Competitions returns the configured competitions.
func (s *ScanService) Competitions() []domain.Competition {
	return s.cfg.Competitions
}

// PublishSkipped announces a scan that the schedule gate declined.
func (s *ScanService) PublishSkipped(ctx context.Context, reason string) {
	if s.metrics != nil {
		s.metrics.RecordSkip()
	}
	if s.bus == nil {
		return
	}
	payload, _ := json.Marshal(domain.ScanEvent{
		Type:      "scan_skipped",
		FetchedAt: s.now().UTC(),
		Reason:    reason,
	})
	if err := s.bus.Publish(ctx, domain.ChannelScan, payload); err != nil {
		s.logger.WarnContext(ctx, "publish skip failed", slog.String("error", err.Error()))
	}
}

// publish sends the scan summary and each opportunity to the bus and appends
// the summary to the durable scan stream. Bus failures are logged only.
func (s *ScanService) publish(ctx context.Context, res domain.ScanResult, best float64) {
	if s.bus == nil {
		return
	}
	summary, err := json.Marshal(domain.ScanEvent{
		Type:          "scan_completed",
		ScanID:        res.ID,
		FetchedAt:     res.FetchedAt,
		EventsScanned: res.EventsScanned,
		Opportunities: len(res.Opportunities),
		BestROIPct:    best,
		Failures:      res.Failures,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "encode scan event failed", slog.String("error", err.Error()))
		return
	}

	var errs []error
	if err := s.bus.Publish(ctx, domain.ChannelScan, summary); err != nil {
		errs = append(errs, err)
	}
	if err := s.bus.StreamAppend(ctx, domain.StreamScanRuns, summary); err != nil {
		errs = append(errs, err)
	}
	for _, o := range res.Opportunities {
		payload, err := json.Marshal(domain.ArbEvent{Type: "arb_detected", ScanID: res.ID, Opportunity: o})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.bus.Publish(ctx, domain.ChannelArb, payload); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		s.logger.WarnContext(ctx, "publish scan events failed",
			slog.String("scan_id", res.ID),
			slog.String("error", errors.Join(errs...).Error()),
		)
	}
}

func bestROI(opps []domain.Opportunity) float64 {
	best := 0.0
	for _, o := range opps {
		if o.ROIPct > best {
			best = o.ROIPct
		}
	}
	return best
}
