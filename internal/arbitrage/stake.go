package arbitrage

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// Allocate splits bankroll across outcomes in proportion to their implied
// probabilities so that the net payout is the same whichever outcome wins.
// Stakes are rounded to the nearest multiple of step (half away from zero);
// a step of zero or less disables rounding.
func Allocate(outcomes []domain.Outcome, c Commissions, bankroll, step float64) domain.StakePlan {
	if math.IsNaN(bankroll) || bankroll < 0 {
		bankroll = 0
	}
	plan := domain.StakePlan{
		Bankroll: bankroll,
		Step:     step,
		Rows:     make([]domain.StakeRow, len(outcomes)),
	}

	implied := make([]float64, len(outcomes))
	for i, o := range outcomes {
		implied[i] = ImpliedProbability(o.Price, c.Rate(o.Bookmaker))
		plan.ImpliedSum += implied[i]
	}
	plan.Margin = 1 - plan.ImpliedSum

	payoutMin := math.Inf(1)
	for i, o := range outcomes {
		comm := c.Rate(o.Bookmaker)
		raw := 0.0
		if plan.ImpliedSum > 0 {
			raw = bankroll * implied[i] / plan.ImpliedSum
		}
		stake := RoundToStep(raw, step)
		payout := stake * o.Price * (1 - comm)

		plan.Rows[i] = domain.StakeRow{
			Label:      o.Label(),
			Bookmaker:  o.Bookmaker,
			Price:      o.Price,
			Commission: comm,
			RawStake:   raw,
			Stake:      stake,
			NetPayout:  payout,
		}
		plan.TotalStake += stake
		payoutMin = math.Min(payoutMin, payout)
	}
	if len(outcomes) == 0 {
		payoutMin = 0
	}
	plan.EqualizedPayout = payoutMin
	if bankroll > 0 {
		plan.RealizedROIPct = (payoutMin - bankroll) / bankroll * 100
	}
	return plan
}

// RoundToStep rounds x to the nearest multiple of step with ties rounding
// away from zero.
func RoundToStep(x, step float64) float64 {
	if !(step > 0) || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	s := decimal.NewFromFloat(step)
	v, _ := decimal.NewFromFloat(x).Div(s).Round(0).Mul(s).Float64()
	return v
}

// FormatMoney renders amount with two decimals behind the currency symbol.
func FormatMoney(currency string, amount float64) string {
	return currency + decimal.NewFromFloat(amount).StringFixed(2)
}

// FormatOdds renders a decimal price with the given number of decimals.
func FormatOdds(price float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return decimal.NewFromFloat(price).StringFixed(int32(decimals))
}
