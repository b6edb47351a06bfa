package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Domadoni/Epl-arb-finder/internal/arbitrage"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// CommissionSource returns the effective commission map.
type CommissionSource interface {
	Current(ctx context.Context) arbitrage.Commissions
}

// Planner prices and allocates an arbitrary outcome set.
type Planner interface {
	Plan(outcomes []domain.Outcome, c arbitrage.Commissions, bankroll, step *float64) (arbitrage.Evaluation, domain.StakePlan)
}

// StakeHandler is the ad-hoc stake calculator.
type StakeHandler struct {
	planner     Planner
	commissions CommissionSource
	logger      *slog.Logger
}

func NewStakeHandler(planner Planner, commissions CommissionSource, logger *slog.Logger) *StakeHandler {
	return &StakeHandler{planner: planner, commissions: commissions, logger: logger}
}

type stakeRequest struct {
	Outcomes []domain.Outcome `json:"outcomes"`
	Bankroll *float64         `json:"bankroll"`
	Step     *float64         `json:"step"`
}

type stakeResponse struct {
	ImpliedSum float64          `json:"implied_sum"`
	Margin     float64          `json:"margin"`
	ROIPct     float64          `json:"roi_pct"`
	Arbitrage  bool             `json:"arbitrage"`
	Plan       domain.StakePlan `json:"plan"`
}

// Calculate evaluates the posted outcomes with the current commissions and
// returns the stake plan.
// POST /api/stake
func (h *StakeHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Outcomes) < 2 {
		writeError(w, http.StatusBadRequest, "at least two outcomes are required")
		return
	}
	seen := make(map[string]bool, len(req.Outcomes))
	for _, o := range req.Outcomes {
		if o.Price <= 1 {
			writeError(w, http.StatusBadRequest, "prices must be decimal odds above 1")
			return
		}
		label := o.Label()
		if seen[label] {
			writeError(w, http.StatusBadRequest, "duplicate outcome "+label)
			return
		}
		seen[label] = true
	}
	if req.Bankroll != nil && *req.Bankroll <= 0 {
		writeError(w, http.StatusBadRequest, "bankroll must be positive")
		return
	}
	if req.Step != nil && *req.Step < 0 {
		writeError(w, http.StatusBadRequest, "step must not be negative")
		return
	}

	eval, plan := h.planner.Plan(req.Outcomes, h.commissions.Current(r.Context()), req.Bankroll, req.Step)
	writeJSON(w, http.StatusOK, stakeResponse{
		ImpliedSum: eval.ImpliedSum,
		Margin:     eval.Margin,
		ROIPct:     eval.ROIPct,
		Arbitrage:  eval.Margin > 0,
		Plan:       plan,
	})
}
