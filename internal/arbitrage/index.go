package arbitrage

import (
	"math"
	"strings"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// ClassifyThreeWay resolves a raw 1X2 outcome name against the fixture's team
// names using case-insensitive containment. "draw" is checked first.
func ClassifyThreeWay(name, homeTeam, awayTeam string) domain.OutcomeKind {
	low := strings.ToLower(name)
	home := strings.ToLower(strings.TrimSpace(homeTeam))
	away := strings.ToLower(strings.TrimSpace(awayTeam))
	switch {
	case strings.Contains(low, "draw"):
		return domain.OutcomeDraw
	case home != "" && strings.Contains(low, home):
		return domain.OutcomeHome
	case away != "" && strings.Contains(low, away):
		return domain.OutcomeAway
	default:
		return domain.OutcomeUnknown
	}
}

// BestThreeWay returns the best Home, Draw and Away prices across every
// bookmaker offering a market whose key is in keys. It reports false when
// any of the three sides is missing.
func BestThreeWay(ev domain.Event, keys map[string]bool) ([]domain.Outcome, bool) {
	var best [3]*domain.Outcome
	for _, bk := range ev.Bookmakers {
		for _, m := range bk.Markets {
			if !keys[strings.ToLower(m.Key)] {
				continue
			}
			for _, p := range m.Outcomes {
				if !usablePrice(p.Price) {
					continue
				}
				kind := ClassifyThreeWay(p.Name, ev.HomeTeam, ev.AwayTeam)
				if kind == domain.OutcomeUnknown {
					continue
				}
				slot := int(kind - domain.OutcomeHome)
				// Equal prices keep the first-seen bookmaker.
				if best[slot] == nil || p.Price > best[slot].Price {
					best[slot] = &domain.Outcome{Kind: kind, Price: p.Price, Bookmaker: bk.Name()}
				}
			}
		}
	}
	out := make([]domain.Outcome, 0, 3)
	for _, o := range best {
		if o == nil {
			return nil, false
		}
		out = append(out, *o)
	}
	return out, true
}

// TotalsMatcher decides which totals markets count as corners markets.
type TotalsMatcher struct {
	keys   map[string]bool
	tokens []string
}

// NewTotalsMatcher accepts markets whose key is one of keys and, when tokens
// is non-empty, whose descriptive text contains at least one token.
func NewTotalsMatcher(keys, tokens []string) TotalsMatcher {
	m := TotalsMatcher{keys: make(map[string]bool, len(keys))}
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			m.keys[k] = true
		}
	}
	for _, t := range tokens {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			m.tokens = append(m.tokens, t)
		}
	}
	return m
}

// Matches reports whether market m offered by bk is a corners totals market.
func (tm TotalsMatcher) Matches(bk domain.Bookmaker, m domain.Market) bool {
	if !tm.keys[strings.ToLower(m.Key)] {
		return false
	}
	if len(tm.tokens) == 0 {
		return true
	}
	parts := []string{m.Key, m.Description, bk.Title, bk.Key}
	for _, o := range m.Outcomes {
		parts = append(parts, o.Name, o.Description)
	}
	blob := strings.ToLower(strings.Join(parts, " "))
	for _, t := range tm.tokens {
		if strings.Contains(blob, t) {
			return true
		}
	}
	return false
}

type totalsEntry struct {
	label   string
	outcome domain.Outcome
}

// BestTotals returns the best Over and Under prices for an event's corners
// market. The first non-null line seen becomes canonical; when no book
// quotes both sides at that line, the first Over and first Under seen at any
// line are used instead.
func BestTotals(ev domain.Event, tm TotalsMatcher) ([]domain.Outcome, bool) {
	var (
		entries   []totalsEntry
		index     = make(map[string]int)
		canonical *float64
	)
	for _, bk := range ev.Bookmakers {
		for _, m := range bk.Markets {
			if !tm.Matches(bk, m) {
				continue
			}
			for _, p := range m.Outcomes {
				var kind domain.OutcomeKind
				switch strings.ToLower(strings.TrimSpace(p.Name)) {
				case "over":
					kind = domain.OutcomeOver
				case "under":
					kind = domain.OutcomeUnder
				default:
					continue
				}
				if !usablePrice(p.Price) {
					continue
				}
				o := domain.Outcome{Kind: kind, Price: p.Price, Bookmaker: bk.Name()}
				if p.Point != nil {
					line := *p.Point
					o.Line = &line
					if canonical == nil {
						canonical = &line
					}
				}
				label := o.Label()
				if i, ok := index[label]; ok {
					if p.Price > entries[i].outcome.Price {
						entries[i].outcome = o
					}
					continue
				}
				index[label] = len(entries)
				entries = append(entries, totalsEntry{label: label, outcome: o})
			}
		}
	}
	if len(entries) == 0 {
		return nil, false
	}

	overKey, underKey := "Over", "Under"
	if canonical != nil {
		overKey += " " + domain.FormatLine(*canonical)
		underKey += " " + domain.FormatLine(*canonical)
	}
	oi, okOver := index[overKey]
	ui, okUnder := index[underKey]
	if !okOver || !okUnder {
		oi, ui = -1, -1
		for i, e := range entries {
			if oi < 0 && e.outcome.Kind == domain.OutcomeOver {
				oi = i
			}
			if ui < 0 && e.outcome.Kind == domain.OutcomeUnder {
				ui = i
			}
		}
		if oi < 0 || ui < 0 {
			return nil, false
		}
	}
	return []domain.Outcome{entries[oi].outcome, entries[ui].outcome}, true
}

func usablePrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}
