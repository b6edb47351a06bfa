package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Domadoni/Epl-arb-finder/internal/arbitrage"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// DigestOptions controls how FormatDigest renders a set of opportunities.
type DigestOptions struct {
	Title string
	// Order lists competition names in display order. Competitions not in
	// Order follow in first-seen order.
	Order             []string
	MaxPerCompetition int
	MaxTotal          int
	Currency          string
	OddsDecimals      int
	ShowBetslip       bool
	Failures          []domain.CompetitionFailure
}

// FormatDigest renders opps as a Telegram HTML message grouped by
// competition. At most MaxPerCompetition opportunities are listed per
// competition and MaxTotal overall. It also returns the number listed.
func FormatDigest(opps []domain.Opportunity, opts DigestOptions) (string, int) {
	title := opts.Title
	if title == "" {
		title = "New ENG arbs found"
	}
	perComp := opts.MaxPerCompetition
	if perComp <= 0 {
		perComp = 6
	}
	total := opts.MaxTotal
	if total <= 0 {
		total = 12
	}

	groups := make(map[string][]domain.Opportunity)
	var seen []string
	for _, o := range opps {
		if _, ok := groups[o.Competition]; !ok {
			seen = append(seen, o.Competition)
		}
		groups[o.Competition] = append(groups[o.Competition], o)
	}

	var b strings.Builder
	b.WriteString("<b>" + html.EscapeString(title) + "</b> (filters applied)")

	listed := 0
	for _, comp := range orderCompetitions(opts.Order, seen) {
		chunk := groups[comp]
		if len(chunk) == 0 || listed >= total {
			continue
		}
		b.WriteString("\n\n<b>" + html.EscapeString(comp) + "</b>")
		for i, o := range chunk {
			if i >= perComp || listed >= total {
				break
			}
			writeOpportunity(&b, o, opts)
			listed++
		}
	}

	if hidden := len(opps) - listed; hidden > 0 {
		fmt.Fprintf(&b, "\n\n<i>+%d more not shown</i>", hidden)
	}
	if len(opts.Failures) > 0 {
		names := make([]string, len(opts.Failures))
		for i, f := range opts.Failures {
			names[i] = html.EscapeString(f.Competition)
		}
		b.WriteString("\n\n<i>Odds unavailable: " + strings.Join(names, ", ") + "</i>")
	}
	return b.String(), listed
}

func writeOpportunity(b *strings.Builder, o domain.Opportunity, opts DigestOptions) {
	fmt.Fprintf(b, "\n• [%s] %s — ROI ~ %s%%",
		html.EscapeString(string(o.Market)),
		html.EscapeString(o.Match()),
		FormatROI(o.ROIPct),
	)
	for _, oc := range o.Outcomes {
		fmt.Fprintf(b, "\n  %s: %s @ %s",
			html.EscapeString(oc.Label()),
			arbitrage.FormatOdds(oc.Price, opts.OddsDecimals),
			html.EscapeString(oc.Bookmaker),
		)
	}
	if opts.ShowBetslip && o.Plan != nil {
		writeBetslip(b, *o.Plan, opts.Currency)
	}
}

func writeBetslip(b *strings.Builder, p domain.StakePlan, currency string) {
	cur := html.EscapeString(currency)
	fmt.Fprintf(b, "\n  <i>Stakes for %s:</i>", arbitrage.FormatMoney(cur, p.Bankroll))
	for _, r := range p.Rows {
		fmt.Fprintf(b, "\n    %s %s @ %s",
			html.EscapeString(r.Label),
			arbitrage.FormatMoney(cur, r.Stake),
			html.EscapeString(r.Bookmaker),
		)
	}
	fmt.Fprintf(b, "\n  Equalized payout: %s (%s%%)",
		arbitrage.FormatMoney(cur, p.EqualizedPayout),
		decimal.NewFromFloat(p.RealizedROIPct).StringFixed(2),
	)
}

// FormatROI renders an ROI percentage rounded to three decimals with
// trailing zeros dropped ("1.5", "0.237").
func FormatROI(roi float64) string {
	return decimal.NewFromFloat(roi).Round(3).String()
}

func orderCompetitions(order, seen []string) []string {
	out := make([]string, 0, len(order)+len(seen))
	used := make(map[string]bool, len(order))
	for _, c := range order {
		if !used[c] {
			used[c] = true
			out = append(out, c)
		}
	}
	for _, c := range seen {
		if !used[c] {
			used[c] = true
			out = append(out, c)
		}
	}
	return out
}
