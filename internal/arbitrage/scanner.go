// Package arbitrage extracts best prices from odds snapshots, scores outcome
// sets for arbitrage and builds stake plans for the ones worth reporting.
package arbitrage

import (
	"strings"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// MarketScanner extracts the candidate outcome set of one market type from
// an event. Extract reports false when the event has no complete set.
type MarketScanner interface {
	Market() domain.MarketType
	Extract(ev domain.Event) ([]domain.Outcome, bool)
}

// ThreeWayScanner extracts 1X2 sets.
type ThreeWayScanner struct {
	keys map[string]bool
}

// NewThreeWayScanner accepts markets whose key is one of keys ("h2h" when
// empty).
func NewThreeWayScanner(keys []string) *ThreeWayScanner {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			set[k] = true
		}
	}
	if len(set) == 0 {
		set["h2h"] = true
	}
	return &ThreeWayScanner{keys: set}
}

func (s *ThreeWayScanner) Market() domain.MarketType { return domain.MarketThreeWay }

func (s *ThreeWayScanner) Extract(ev domain.Event) ([]domain.Outcome, bool) {
	return BestThreeWay(ev, s.keys)
}

// CornersScanner extracts Over/Under corners sets.
type CornersScanner struct {
	matcher TotalsMatcher
}

// NewCornersScanner wraps a totals matcher.
func NewCornersScanner(m TotalsMatcher) *CornersScanner {
	return &CornersScanner{matcher: m}
}

func (s *CornersScanner) Market() domain.MarketType { return domain.MarketCorners }

func (s *CornersScanner) Extract(ev domain.Event) ([]domain.Outcome, bool) {
	return BestTotals(ev, s.matcher)
}

var (
	_ MarketScanner = (*ThreeWayScanner)(nil)
	_ MarketScanner = (*CornersScanner)(nil)
)
