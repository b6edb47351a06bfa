package domain

import (
	"context"
	"time"
)

// Event is one fixture as returned by the odds provider, with every
// bookmaker's priced markets attached.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker is a single bookmaker's offer for an event.
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Name returns the display name of the bookmaker, falling back to its key.
func (b Bookmaker) Name() string {
	if b.Title != "" {
		return b.Title
	}
	return b.Key
}

// Market is a keyed list of priced outcomes ("h2h", "totals", ...).
type Market struct {
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	LastUpdate  time.Time `json:"last_update"`
	Outcomes    []Price   `json:"outcomes"`
}

// Price is a named outcome with decimal odds and an optional line.
type Price struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Point       *float64 `json:"point,omitempty"`
}

// Competition is a configured league or cup and its provider sport key.
type Competition struct {
	Name     string `json:"name" toml:"name"`
	SportKey string `json:"sport_key" toml:"sport_key"`
}

// OddsQuery selects what an OddsSource should fetch.
type OddsQuery struct {
	SportKey string
	Regions  []string
	Markets  []string
}

// OddsSource fetches a decimal-odds snapshot for one competition.
type OddsSource interface {
	FetchOdds(ctx context.Context, q OddsQuery) ([]Event, error)
}
