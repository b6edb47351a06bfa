package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OutcomeKind is the semantic side of a market an outcome settles on.
type OutcomeKind int

const (
	OutcomeUnknown OutcomeKind = iota
	OutcomeHome
	OutcomeDraw
	OutcomeAway
	OutcomeOver
	OutcomeUnder
)

// String returns the base label for the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeHome:
		return "Home"
	case OutcomeDraw:
		return "Draw"
	case OutcomeAway:
		return "Away"
	case OutcomeOver:
		return "Over"
	case OutcomeUnder:
		return "Under"
	default:
		return "Unknown"
	}
}

// MarshalText renders the kind as its label.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the labels produced by MarshalText, case-insensitively.
func (k *OutcomeKind) UnmarshalText(b []byte) error {
	kind, ok := ParseOutcomeKind(string(b))
	if !ok {
		return fmt.Errorf("unknown outcome kind %q", b)
	}
	*k = kind
	return nil
}

// ParseOutcomeKind maps a label such as "home" or "Over" to its kind.
func ParseOutcomeKind(s string) (OutcomeKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home", "1":
		return OutcomeHome, true
	case "draw", "x":
		return OutcomeDraw, true
	case "away", "2":
		return OutcomeAway, true
	case "over":
		return OutcomeOver, true
	case "under":
		return OutcomeUnder, true
	}
	return OutcomeUnknown, false
}

// MarketType identifies which market an opportunity was found in.
type MarketType string

const (
	MarketThreeWay MarketType = "1X2"
	MarketCorners  MarketType = "Corners O/U"
)

// Outcome is the best available price for one side of a market.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Line      *float64    `json:"line,omitempty"`
	Price     float64     `json:"price"`
	Bookmaker string      `json:"bookmaker"`
}

// Label renders "Home", "Draw", "Away" or "Over 9.5" / "Under 9.5".
func (o Outcome) Label() string {
	if o.Line != nil && (o.Kind == OutcomeOver || o.Kind == OutcomeUnder) {
		return o.Kind.String() + " " + FormatLine(*o.Line)
	}
	return o.Kind.String()
}

// FormatLine renders a totals line with the shortest exact representation.
func FormatLine(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Opportunity is a detected arbitrage for one event and market at one fetch
// snapshot. It is built once per scan and never mutated.
type Opportunity struct {
	Competition string     `json:"competition"`
	SportKey    string     `json:"sport_key"`
	EventID     string     `json:"event_id"`
	HomeTeam    string     `json:"home_team"`
	AwayTeam    string     `json:"away_team"`
	Kickoff     time.Time  `json:"kickoff"`
	Market      MarketType `json:"market"`
	Outcomes    []Outcome  `json:"outcomes"`
	ImpliedSum  float64    `json:"implied_sum"`
	Margin      float64    `json:"margin"`
	ROIPct      float64    `json:"roi_pct"`
	Plan        *StakePlan `json:"plan,omitempty"`
}

// Match renders the fixture as "Home vs Away".
func (o Opportunity) Match() string {
	return o.HomeTeam + " vs " + o.AwayTeam
}

// StakeRow is one outcome's line in a stake plan.
type StakeRow struct {
	Label      string  `json:"label"`
	Bookmaker  string  `json:"bookmaker"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	RawStake   float64 `json:"raw_stake"`
	Stake      float64 `json:"stake"`
	NetPayout  float64 `json:"net_payout"`
}

// StakePlan splits a bankroll across an opportunity's outcomes so the net
// payout is equal whichever outcome wins.
type StakePlan struct {
	Bankroll        float64    `json:"bankroll"`
	Step            float64    `json:"step"`
	Rows            []StakeRow `json:"rows"`
	TotalStake      float64    `json:"total_stake"`
	EqualizedPayout float64    `json:"equalized_payout"`
	ImpliedSum      float64    `json:"implied_sum"`
	Margin          float64    `json:"margin"`
	RealizedROIPct  float64    `json:"realized_roi_pct"`
}

// CompetitionFailure records a competition whose odds could not be fetched.
type CompetitionFailure struct {
	Competition string `json:"competition"`
	SportKey    string `json:"sport_key"`
	Error       string `json:"error"`
}

// ScanResult is the output of one scan across all configured competitions.
type ScanResult struct {
	ID            string               `json:"id"`
	FetchedAt     time.Time            `json:"fetched_at"`
	Regions       []string             `json:"regions"`
	EventsScanned int                  `json:"events_scanned"`
	Opportunities []Opportunity        `json:"opportunities"`
	Failures      []CompetitionFailure `json:"failures,omitempty"`
	Duration      time.Duration        `json:"duration"`
}
