package arbitrage

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Domadoni/Epl-arb-finder/internal/bookmaker"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDetectorFindsArbitrage(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewThreeWayScanner(nil))
	reg.Register(NewCornersScanner(NewTotalsMatcher([]string{"corners"}, []string{"corner"})))
	scanners, err := reg.Select(domain.MarketThreeWay, domain.MarketCorners)
	if err != nil {
		t.Fatal(err)
	}

	det := NewDetector(DetectorConfig{
		Scanners:  scanners,
		MinROIPct: 0.2,
		Bankroll:  100,
		StakeStep: 0.01,
		Logger:    testLogger(),
	})
	comp := domain.Competition{Name: "EPL", SportKey: "soccer_epl"}
	events := []domain.Event{
		fixture(
			h2hBook("Bet365", 2.50, 3.00, 4.00),
			h2hBook("Ladbrokes", 2.20, 3.60, 4.00),
			h2hBook("Pinnacle", 2.20, 3.00, 4.50),
		),
		fixture(h2hBook("Coral", 2.10, 3.40, 4.20)),
	}

	opps, stats := det.Detect(comp, events, nil)
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	o := opps[0]
	if o.Competition != "EPL" || o.Market != domain.MarketThreeWay || o.Match() != "Arsenal vs Chelsea" {
		t.Errorf("opportunity = %+v", o)
	}
	if o.Plan == nil || len(o.Plan.Rows) != 3 {
		t.Fatalf("plan = %+v", o.Plan)
	}
	if stats.Found != 1 || stats.BelowThreshold != 1 || stats.Incomplete != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDetectorAppliesPolicy(t *testing.T) {
	det := NewDetector(DetectorConfig{
		Scanners: []MarketScanner{NewThreeWayScanner([]string{"h2h"})},
		Policy:   bookmaker.NewPolicy(bookmaker.PolicyConfig{Allowed: []string{"Bet365"}}),
		Logger:   testLogger(),
	})
	ev := fixture(
		h2hBook("Bet365", 2.50, 3.00, 4.00),
		h2hBook("Ladbrokes", 2.20, 3.60, 4.00),
		h2hBook("Pinnacle", 2.20, 3.00, 4.50),
	)
	opps, stats := det.Detect(domain.Competition{Name: "EPL"}, []domain.Event{ev}, nil)
	if len(opps) != 0 {
		t.Errorf("expected policy to reject, got %d", len(opps))
	}
	if stats.Rejected["allow_list"] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDetectorZeroThresholdShowsNearMisses(t *testing.T) {
	det := NewDetector(DetectorConfig{
		Scanners: []MarketScanner{NewThreeWayScanner(nil)},
		Logger:   testLogger(),
	})
	opps, _ := det.Detect(domain.Competition{Name: "EPL"}, []domain.Event{fixture(h2hBook("Coral", 2.10, 3.40, 4.20))}, nil)
	if len(opps) != 1 || opps[0].ROIPct != 0 {
		t.Errorf("got %+v", opps)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewThreeWayScanner(nil))
	if _, err := reg.Get(domain.MarketCorners); err == nil {
		t.Error("expected missing scanner error")
	}
	if got := reg.List(); len(got) != 1 || got[0] != domain.MarketThreeWay {
		t.Errorf("List() = %v", got)
	}
}
