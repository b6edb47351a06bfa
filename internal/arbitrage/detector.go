package arbitrage

import (
	"log/slog"

	"github.com/Domadoni/Epl-arb-finder/internal/bookmaker"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// Detector runs the configured market scanners over an odds snapshot,
// filters the candidate sets by bookmaker policy and scores the survivors.
type Detector struct {
	scanners  []MarketScanner
	policy    *bookmaker.Policy
	minROIPct float64
	bankroll  float64
	stakeStep float64
	logger    *slog.Logger
}

// DetectorConfig configures the detector.
type DetectorConfig struct {
	Scanners  []MarketScanner
	Policy    *bookmaker.Policy
	MinROIPct float64
	Bankroll  float64
	StakeStep float64
	Logger    *slog.Logger
}

// NewDetector creates a detector over the given scanners.
func NewDetector(cfg DetectorConfig) *Detector {
	policy := cfg.Policy
	if policy == nil {
		policy = bookmaker.NewPolicyOf()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		scanners:  cfg.Scanners,
		policy:    policy,
		minROIPct: cfg.MinROIPct,
		bankroll:  cfg.Bankroll,
		stakeStep: cfg.StakeStep,
		logger:    logger.With(slog.String("component", "arb_detector")),
	}
}

// DetectStats counts how candidate sets were disposed of in one Detect call.
type DetectStats struct {
	Events         int
	Incomplete     int
	Rejected       map[string]int // by filter name
	BelowThreshold int
	Found          int
}

// Detect evaluates every event of one competition and returns the
// opportunities at or above the minimum ROI. The threshold is compared with
// the pre-rounding ROI.
func (d *Detector) Detect(comp domain.Competition, events []domain.Event, c Commissions) ([]domain.Opportunity, DetectStats) {
	stats := DetectStats{Events: len(events), Rejected: make(map[string]int)}
	var opps []domain.Opportunity

	for _, ev := range events {
		for _, sc := range d.scanners {
			outcomes, ok := sc.Extract(ev)
			if !ok {
				stats.Incomplete++
				continue
			}
			if pass, by := d.policy.Evaluate(outcomes); !pass {
				stats.Rejected[by]++
				d.logger.Debug("candidate rejected",
					slog.String("competition", comp.Name),
					slog.String("event_id", ev.ID),
					slog.String("market", string(sc.Market())),
					slog.String("filter", by),
				)
				continue
			}
			eval := Evaluate(outcomes, c)
			if !eval.Valid || eval.ROIPct < d.minROIPct {
				stats.BelowThreshold++
				continue
			}

			plan := Allocate(outcomes, c, d.bankroll, d.stakeStep)
			opps = append(opps, domain.Opportunity{
				Competition: comp.Name,
				SportKey:    comp.SportKey,
				EventID:     ev.ID,
				HomeTeam:    ev.HomeTeam,
				AwayTeam:    ev.AwayTeam,
				Kickoff:     ev.CommenceTime.UTC(),
				Market:      sc.Market(),
				Outcomes:    outcomes,
				ImpliedSum:  eval.ImpliedSum,
				Margin:      eval.Margin,
				ROIPct:      eval.ROIPct,
				Plan:        &plan,
			})
			stats.Found++
			d.logger.Debug("arbitrage found",
				slog.String("competition", comp.Name),
				slog.String("event_id", ev.ID),
				slog.String("market", string(sc.Market())),
				slog.Float64("roi_pct", eval.ROIPct),
			)
		}
	}
	return opps, stats
}

// Plan computes a stake plan for an arbitrary outcome set using the
// detector's bankroll and step unless overridden.
func (d *Detector) Plan(outcomes []domain.Outcome, c Commissions, bankroll, step *float64) (Evaluation, domain.StakePlan) {
	b, s := d.bankroll, d.stakeStep
	if bankroll != nil {
		b = *bankroll
	}
	if step != nil {
		s = *step
	}
	return Evaluate(outcomes, c), Allocate(outcomes, c, b, s)
}
