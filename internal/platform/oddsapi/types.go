package oddsapi

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// flexFloat unmarshals from a JSON number or a numeric string. Some regions
// serve prices as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// Odds API DTOs
// --------------------------------------------------------------------------

// APIEvent is one fixture as returned by GET /sports/{sport}/odds.
type APIEvent struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	SportTitle   string         `json:"sport_title"`
	CommenceTime string         `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Bookmakers   []APIBookmaker `json:"bookmakers"`
}

// APIBookmaker is one bookmaker's block within an event.
type APIBookmaker struct {
	Key        string      `json:"key"`
	Title      string      `json:"title"`
	LastUpdate string      `json:"last_update"`
	Markets    []APIMarket `json:"markets"`
}

// APIMarket is a keyed market within a bookmaker block.
type APIMarket struct {
	Key         string       `json:"key"`
	Description string       `json:"description"`
	LastUpdate  string       `json:"last_update"`
	Outcomes    []APIOutcome `json:"outcomes"`
}

// APIOutcome is a priced outcome. Point is set on totals and handicap lines.
type APIOutcome struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       flexFloat  `json:"price"`
	Point       *flexFloat `json:"point"`
}

// ToDomainEvent converts an APIEvent to a domain.Event. Unparseable
// timestamps become the zero time.
func (e APIEvent) ToDomainEvent() domain.Event {
	ev := domain.Event{
		ID:           e.ID,
		SportKey:     e.SportKey,
		SportTitle:   e.SportTitle,
		CommenceTime: parseTime(e.CommenceTime),
		HomeTeam:     e.HomeTeam,
		AwayTeam:     e.AwayTeam,
		Bookmakers:   make([]domain.Bookmaker, 0, len(e.Bookmakers)),
	}
	for _, b := range e.Bookmakers {
		bk := domain.Bookmaker{
			Key:        b.Key,
			Title:      b.Title,
			LastUpdate: parseTime(b.LastUpdate),
			Markets:    make([]domain.Market, 0, len(b.Markets)),
		}
		for _, m := range b.Markets {
			mk := domain.Market{
				Key:         m.Key,
				Description: m.Description,
				LastUpdate:  parseTime(m.LastUpdate),
				Outcomes:    make([]domain.Price, 0, len(m.Outcomes)),
			}
			for _, o := range m.Outcomes {
				p := domain.Price{
					Name:        o.Name,
					Description: o.Description,
					Price:       float64(o.Price),
				}
				if o.Point != nil {
					v := float64(*o.Point)
					p.Point = &v
				}
				mk.Outcomes = append(mk.Outcomes, p)
			}
			bk.Markets = append(bk.Markets, mk)
		}
		ev.Bookmakers = append(ev.Bookmakers, bk)
	}
	return ev
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// Quota is the request allowance reported by the provider on each response.
type Quota struct {
	Remaining int
	Used      int
	Last      int
	UpdatedAt time.Time
}
