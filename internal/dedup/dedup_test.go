package dedup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func opp(comp, home string, roi float64) domain.Opportunity {
	return domain.Opportunity{
		Competition: comp,
		HomeTeam:    home,
		AwayTeam:    "Chelsea",
		Kickoff:     time.Date(2026, 10, 17, 14, 0, 0, 0, time.UTC),
		Market:      domain.MarketThreeWay,
		ROIPct:      roi,
		Outcomes: []domain.Outcome{
			{Kind: domain.OutcomeHome, Price: 2.5, Bookmaker: "Bet365"},
			{Kind: domain.OutcomeDraw, Price: 3.6, Bookmaker: "Ladbrokes"},
			{Kind: domain.OutcomeAway, Price: 4.5, Bookmaker: "Pinnacle"},
		},
	}
}

func TestFingerprintOrderIndependent(t *testing.T) {
	a := []domain.Opportunity{opp("EPL", "Arsenal", 1.5), opp("EFL Cup", "Leeds", 0.7)}
	b := []domain.Opportunity{a[1], a[0]}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("fingerprint depends on order")
	}
	if Fingerprint(a) != Fingerprint(a) {
		t.Error("fingerprint not stable")
	}
}

func TestFingerprintSensitiveToKeyFields(t *testing.T) {
	base := Fingerprint([]domain.Opportunity{opp("EPL", "Arsenal", 1.5)})
	changed := []domain.Opportunity{
		opp("Championship", "Arsenal", 1.5),
		opp("EPL", "Spurs", 1.5),
		opp("EPL", "Arsenal", 1.6),
	}
	for _, c := range changed {
		if Fingerprint([]domain.Opportunity{c}) == base {
			t.Errorf("fingerprint ignores change in %+v", c)
		}
	}
	kick := opp("EPL", "Arsenal", 1.5)
	kick.Kickoff = kick.Kickoff.Add(time.Hour)
	if Fingerprint([]domain.Opportunity{kick}) == base {
		t.Error("fingerprint ignores kickoff")
	}
}

func TestFingerprintIgnoresROINoise(t *testing.T) {
	a := Fingerprint([]domain.Opportunity{opp("EPL", "Arsenal", 1.50001)})
	b := Fingerprint([]domain.Opportunity{opp("EPL", "Arsenal", 1.49999)})
	if a != b {
		t.Error("sub-0.001 ROI noise changed the fingerprint")
	}
}

func TestProcessSuppressesRepeat(t *testing.T) {
	d := New(Config{Logger: testLogger()})
	ctx := context.Background()
	opps := []domain.Opportunity{opp("EPL", "Arsenal", 1.5)}

	sends := 0
	send := func(context.Context) error { sends++; return nil }

	dec, err := d.Process(ctx, opps, send)
	if err != nil || !dec.Sent || !dec.Changed {
		t.Fatalf("first Process = %+v, %v", dec, err)
	}
	dec, err = d.Process(ctx, opps, send)
	if err != nil || dec.Sent || dec.Changed {
		t.Fatalf("second Process = %+v, %v", dec, err)
	}
	if sends != 1 {
		t.Errorf("sent %d times, want 1", sends)
	}

	if _, err := d.Process(ctx, []domain.Opportunity{opp("EPL", "Spurs", 2)}, send); err != nil {
		t.Fatal(err)
	}
	if sends != 2 {
		t.Errorf("changed set sent %d times total, want 2", sends)
	}
}

func TestProcessFailedSendAllowsRetry(t *testing.T) {
	store := NewMemoryStore()
	d := New(Config{Store: store, Logger: testLogger()})
	ctx := context.Background()
	opps := []domain.Opportunity{opp("EPL", "Arsenal", 1.5)}

	boom := errors.New("transport down")
	_, err := d.Process(ctx, opps, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped transport error", err)
	}
	if fp, _ := store.Load(ctx); fp != "" {
		t.Errorf("fingerprint stored after failed send: %q", fp)
	}

	sent := false
	dec, err := d.Process(ctx, opps, func(context.Context) error { sent = true; return nil })
	if err != nil || !sent || !dec.Sent {
		t.Errorf("retry = %+v, %v, sent=%v", dec, err, sent)
	}
}

func TestProcessEmptySet(t *testing.T) {
	d := New(Config{Logger: testLogger()})
	_, err := d.Process(context.Background(), nil, func(context.Context) error {
		t.Error("send called for empty set")
		return nil
	})
	if !errors.Is(err, domain.ErrNoOpportunities) {
		t.Errorf("err = %v", err)
	}
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

type countingLock struct{ acquired, released int }

func (l *countingLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	l.acquired++
	return func() { l.released++ }, nil
}

func TestProcessUsesLock(t *testing.T) {
	ctx := context.Background()
	opps := []domain.Opportunity{opp("EPL", "Arsenal", 1.5)}

	d := New(Config{Locks: heldLock{}, Logger: testLogger()})
	if _, err := d.Process(ctx, opps, func(context.Context) error { return nil }); !errors.Is(err, domain.ErrLockHeld) {
		t.Errorf("err = %v, want ErrLockHeld", err)
	}

	lock := &countingLock{}
	d = New(Config{Locks: lock, Logger: testLogger()})
	if _, err := d.Process(ctx, opps, func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if lock.acquired != 1 || lock.released != 1 {
		t.Errorf("lock = %+v", lock)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state")
	fs := NewFileStore(path)

	if fp, err := fs.Load(ctx); err != nil || fp != "" {
		t.Fatalf("Load on missing file = %q, %v", fp, err)
	}
	if err := fs.Save(ctx, "abc123"); err != nil {
		t.Fatal(err)
	}
	if fp, err := NewFileStore(path).Load(ctx); err != nil || fp != "abc123" {
		t.Errorf("Load = %q, %v", fp, err)
	}
}
