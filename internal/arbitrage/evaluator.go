package arbitrage

import (
	"math"

	"github.com/Domadoni/Epl-arb-finder/internal/bookmaker"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// ImpliedSentinel stands in for the implied probability of an outcome whose
// effective price is not positive. It pushes the implied sum far above 1 so
// the set can never pass a ROI threshold.
const ImpliedSentinel = 1e9

// ImpliedProbability returns 1 / (price * (1 - commission)).
func ImpliedProbability(price, commission float64) float64 {
	eff := price * (1 - commission)
	if !(eff > 0) || math.IsInf(eff, 0) {
		return ImpliedSentinel
	}
	return 1 / eff
}

// Commissions maps normalized bookmaker names to a commission fraction.
// Missing books pay no commission.
type Commissions map[string]float64

// NewCommissions normalizes the keys of raw.
func NewCommissions(raw map[string]float64) Commissions {
	c := make(Commissions, len(raw))
	for k, v := range raw {
		c[bookmaker.Normalize(k)] = v
	}
	return c
}

// Rate returns the commission charged by book.
func (c Commissions) Rate(book string) float64 {
	if len(c) == 0 {
		return 0
	}
	r, ok := c[bookmaker.Normalize(book)]
	if !ok || math.IsNaN(r) {
		return 0
	}
	return r
}

// Merge returns a copy of c overlaid with the normalized entries of over.
func (c Commissions) Merge(over map[string]float64) Commissions {
	out := make(Commissions, len(c)+len(over))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range over {
		out[bookmaker.Normalize(k)] = v
	}
	return out
}

// Evaluation is the scored form of an outcome set.
type Evaluation struct {
	Implied    []float64
	ImpliedSum float64
	Margin     float64
	ROIPct     float64
	Valid      bool
}

// Evaluate scores an outcome set of two or more outcomes. The margin is
// 1 - sum(implied) and the ROI is the margin in percent, never below zero.
func Evaluate(outcomes []domain.Outcome, c Commissions) Evaluation {
	if len(outcomes) < 2 {
		return Evaluation{}
	}
	ev := Evaluation{Implied: make([]float64, len(outcomes)), Valid: true}
	for i, o := range outcomes {
		ip := ImpliedProbability(o.Price, c.Rate(o.Bookmaker))
		ev.Implied[i] = ip
		ev.ImpliedSum += ip
	}
	ev.Margin = 1 - ev.ImpliedSum
	ev.ROIPct = math.Max(ev.Margin*100, 0)
	return ev
}
