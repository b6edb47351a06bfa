package arbitrage

import (
	"testing"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

func pt(v float64) *float64 { return &v }

func h2hBook(title string, home, draw, away float64) domain.Bookmaker {
	return domain.Bookmaker{
		Key:   title,
		Title: title,
		Markets: []domain.Market{{
			Key: "h2h",
			Outcomes: []domain.Price{
				{Name: "Arsenal", Price: home},
				{Name: "Draw", Price: draw},
				{Name: "Chelsea", Price: away},
			},
		}},
	}
}

func cornersBook(title, key string, prices ...domain.Price) domain.Bookmaker {
	return domain.Bookmaker{
		Key:     title,
		Title:   title,
		Markets: []domain.Market{{Key: key, Description: "Total corners", Outcomes: prices}},
	}
}

func fixture(books ...domain.Bookmaker) domain.Event {
	return domain.Event{
		ID:           "ev1",
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
		CommenceTime: time.Date(2026, 10, 17, 14, 0, 0, 0, time.UTC),
		Bookmakers:   books,
	}
}

func TestClassifyThreeWay(t *testing.T) {
	tests := []struct {
		name string
		want domain.OutcomeKind
	}{
		{"Draw", domain.OutcomeDraw},
		{"the draw", domain.OutcomeDraw},
		{"ARSENAL", domain.OutcomeHome},
		{"Arsenal FC", domain.OutcomeHome},
		{"Chelsea", domain.OutcomeAway},
		{"Tottenham", domain.OutcomeUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyThreeWay(tt.name, "Arsenal", "Chelsea"); got != tt.want {
			t.Errorf("ClassifyThreeWay(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBestThreeWayPicksMaxAcrossBooks(t *testing.T) {
	ev := fixture(
		h2hBook("Bet365", 2.50, 3.40, 4.00),
		h2hBook("Ladbrokes", 2.40, 3.60, 4.20),
		h2hBook("Pinnacle", 2.45, 3.50, 4.50),
	)
	got, ok := BestThreeWay(ev, map[string]bool{"h2h": true})
	if !ok {
		t.Fatal("expected a complete set")
	}
	want := []domain.Outcome{
		{Kind: domain.OutcomeHome, Price: 2.50, Bookmaker: "Bet365"},
		{Kind: domain.OutcomeDraw, Price: 3.60, Bookmaker: "Ladbrokes"},
		{Kind: domain.OutcomeAway, Price: 4.50, Bookmaker: "Pinnacle"},
	}
	for i := range want {
		if got[i].Kind != want[i].Kind || got[i].Price != want[i].Price || got[i].Bookmaker != want[i].Bookmaker {
			t.Errorf("outcome %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBestThreeWayTieKeepsFirstSeen(t *testing.T) {
	ev := fixture(
		h2hBook("Coral", 2.50, 3.60, 4.50),
		h2hBook("Unibet", 2.50, 3.60, 4.50),
	)
	got, _ := BestThreeWay(ev, map[string]bool{"h2h": true})
	for _, o := range got {
		if o.Bookmaker != "Coral" {
			t.Errorf("%v taken by %s, want Coral", o.Kind, o.Bookmaker)
		}
	}
}

func TestBestThreeWayMissingSideExcludes(t *testing.T) {
	b := h2hBook("Bet365", 2.5, 3.6, 4.5)
	b.Markets[0].Outcomes = b.Markets[0].Outcomes[:2]
	if _, ok := BestThreeWay(fixture(b), map[string]bool{"h2h": true}); ok {
		t.Error("expected event without an away price to be excluded")
	}
}

func TestBestThreeWayIgnoresOtherMarkets(t *testing.T) {
	b := h2hBook("Bet365", 2.5, 3.6, 4.5)
	b.Markets[0].Key = "h2h_lay"
	if _, ok := BestThreeWay(fixture(b), map[string]bool{"h2h": true}); ok {
		t.Error("expected non-matching market key to be ignored")
	}
}

func TestBestTotalsCanonicalLine(t *testing.T) {
	m := NewTotalsMatcher([]string{"totals", "corners"}, []string{"corner"})
	ev := fixture(
		cornersBook("Betfair", "corners",
			domain.Price{Name: "Over", Price: 1.95, Point: pt(9.5)},
			domain.Price{Name: "Under", Price: 1.80, Point: pt(9.5)},
		),
		cornersBook("Bet365", "corners",
			domain.Price{Name: "over", Price: 1.90, Point: pt(9.5)},
			domain.Price{Name: "UNDER", Price: 2.05, Point: pt(9.5)},
			domain.Price{Name: "Over", Price: 3.00, Point: pt(10.5)},
		),
	)
	got, ok := BestTotals(ev, m)
	if !ok {
		t.Fatal("expected a complete set")
	}
	if got[0].Label() != "Over 9.5" || got[0].Price != 1.95 || got[0].Bookmaker != "Betfair" {
		t.Errorf("over = %+v (%s)", got[0], got[0].Label())
	}
	if got[1].Label() != "Under 9.5" || got[1].Price != 2.05 || got[1].Bookmaker != "Bet365" {
		t.Errorf("under = %+v (%s)", got[1], got[1].Label())
	}
}

func TestBestTotalsFallbackWhenCanonicalIncomplete(t *testing.T) {
	m := NewTotalsMatcher([]string{"corners"}, nil)
	ev := fixture(
		cornersBook("A", "corners", domain.Price{Name: "Over", Price: 2.0, Point: pt(8.5)}),
		cornersBook("B", "corners",
			domain.Price{Name: "Over", Price: 1.9, Point: pt(10.5)},
			domain.Price{Name: "Under", Price: 2.1, Point: pt(10.5)},
		),
	)
	got, ok := BestTotals(ev, m)
	if !ok {
		t.Fatal("expected fallback set")
	}
	if got[0].Label() != "Over 8.5" || got[1].Label() != "Under 10.5" {
		t.Errorf("fallback = %s / %s", got[0].Label(), got[1].Label())
	}
}

func TestBestTotalsRequiresToken(t *testing.T) {
	m := NewTotalsMatcher([]string{"totals"}, []string{"corner"})
	goals := domain.Bookmaker{
		Key: "bet365", Title: "Bet365",
		Markets: []domain.Market{{Key: "totals", Outcomes: []domain.Price{
			{Name: "Over", Price: 2.5, Point: pt(2.5)},
			{Name: "Under", Price: 2.5, Point: pt(2.5)},
		}}},
	}
	if _, ok := BestTotals(fixture(goals), m); ok {
		t.Error("goal totals must not be read as corners")
	}
	if _, ok := BestTotals(fixture(goals), NewTotalsMatcher([]string{"totals"}, nil)); !ok {
		t.Error("without tokens every totals market matches")
	}
}

func TestBestTotalsExactNames(t *testing.T) {
	m := NewTotalsMatcher([]string{"corners"}, nil)
	ev := fixture(cornersBook("A", "corners",
		domain.Price{Name: "Over 9.5", Price: 2.0},
		domain.Price{Name: "Under", Price: 2.0, Point: pt(9.5)},
	))
	if _, ok := BestTotals(ev, m); ok {
		t.Error("outcome names must be exactly over/under")
	}
}

func TestBestTotalsNoLine(t *testing.T) {
	m := NewTotalsMatcher([]string{"corners"}, nil)
	ev := fixture(cornersBook("A", "corners",
		domain.Price{Name: "Over", Price: 2.0},
		domain.Price{Name: "Under", Price: 2.1},
	))
	got, ok := BestTotals(ev, m)
	if !ok || got[0].Label() != "Over" || got[1].Label() != "Under" {
		t.Errorf("got %v, %v", got, ok)
	}
}
