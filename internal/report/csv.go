// Package report renders scan results as CSV tables and exports them to a
// local directory and/or object storage.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/arbitrage"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

var summaryHeader = []string{
	"scan_id", "fetched_at", "regions", "competition", "market", "match",
	"kickoff", "roi_pct", "implied_sum", "margin", "outcomes",
}

var detailHeader = []string{
	"scan_id", "fetched_at", "regions", "competition", "market", "match",
	"kickoff", "outcome", "price", "bookmaker", "commission", "implied_prob",
	"stake", "net_payout",
}

// WriteSummaryCSV writes one row per opportunity.
func WriteSummaryCSV(w io.Writer, res domain.ScanResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return fmt.Errorf("report: write summary header: %w", err)
	}
	fetched := res.FetchedAt.UTC().Format(time.RFC3339)
	regions := strings.Join(res.Regions, ",")

	for _, o := range res.Opportunities {
		legs := make([]string, len(o.Outcomes))
		for i, oc := range o.Outcomes {
			legs[i] = fmt.Sprintf("%s %s @ %s", oc.Label(), ffmt(oc.Price), oc.Bookmaker)
		}
		row := []string{
			res.ID, fetched, regions, o.Competition, string(o.Market), o.Match(),
			kickoff(o.Kickoff), ffmt(o.ROIPct), ffmt(o.ImpliedSum), ffmt(o.Margin),
			strings.Join(legs, " | "),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: write summary row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDetailCSV writes one row per outcome, with stake and net payout when
// the opportunity carries a stake plan.
func WriteDetailCSV(w io.Writer, res domain.ScanResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(detailHeader); err != nil {
		return fmt.Errorf("report: write detail header: %w", err)
	}
	fetched := res.FetchedAt.UTC().Format(time.RFC3339)
	regions := strings.Join(res.Regions, ",")

	for _, o := range res.Opportunities {
		for i, oc := range o.Outcomes {
			var comm float64
			stake, payout := "", ""
			if o.Plan != nil && i < len(o.Plan.Rows) {
				r := o.Plan.Rows[i]
				comm = r.Commission
				stake = ffmt(r.Stake)
				payout = ffmt(r.NetPayout)
			}
			row := []string{
				res.ID, fetched, regions, o.Competition, string(o.Market), o.Match(),
				kickoff(o.Kickoff), oc.Label(), ffmt(oc.Price), oc.Bookmaker,
				ffmt(comm), ffmt(arbitrage.ImpliedProbability(oc.Price, comm)),
				stake, payout,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("report: write detail row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func ffmt(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func kickoff(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
