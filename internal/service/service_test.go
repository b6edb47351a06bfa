package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/arbitrage"
	"github.com/Domadoni/Epl-arb-finder/internal/dedup"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
	"github.com/Domadoni/Epl-arb-finder/internal/metrics"
	"github.com/Domadoni/Epl-arb-finder/internal/notify"
	"github.com/Domadoni/Epl-arb-finder/internal/schedule"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func h2h(title string, home, draw, away float64) domain.Bookmaker {
	return domain.Bookmaker{
		Key:   strings.ToLower(title),
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

func arbEvent(id string) domain.Event {
	return domain.Event{
		ID:           id,
		CommenceTime: time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC),
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
		Bookmakers: []domain.Bookmaker{
			h2h("Bet365", 2.5, 3.0, 4.0),
			h2h("Ladbrokes", 2.2, 3.6, 4.0),
			h2h("Pinnacle", 2.2, 3.0, 4.5),
		},
	}
}

type fakeSource struct {
	mu     sync.Mutex
	events map[string][]domain.Event
	errs   map[string]error
	calls  int
}

func (f *fakeSource) FetchOdds(_ context.Context, q domain.OddsQuery) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[q.SportKey]; err != nil {
		return nil, err
	}
	return f.events[q.SportKey], nil
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string]int
	streamed  int
}

func (b *fakeBus) Publish(_ context.Context, channel string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.published == nil {
		b.published = map[string]int{}
	}
	b.published[channel]++
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func (b *fakeBus) StreamAppend(context.Context, string, []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamed++
	return nil
}

func (b *fakeBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type fakeSender struct {
	msgs []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, _, message string) error {
	f.msgs = append(f.msgs, message)
	return f.err
}

func (f *fakeSender) Name() string { return "fake" }

type memAudit struct{ events []string }

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

var comps = []domain.Competition{
	{Name: "EPL", SportKey: "soccer_epl"},
	{Name: "FA Cup", SportKey: "soccer_fa_cup"},
}

func newScanService(src domain.OddsSource, bus domain.SignalBus, commissions map[string]float64) *ScanService {
	det := arbitrage.NewDetector(arbitrage.DetectorConfig{
		Scanners:  []arbitrage.MarketScanner{arbitrage.NewThreeWayScanner(nil)},
		MinROIPct: 0.2,
		Bankroll:  100,
		StakeStep: 0.01,
		Logger:    testLogger(),
	})
	cs := NewCommissionService(commissions, nil, nil, testLogger())
	return NewScanService(src, det, cs, bus, metrics.New(), ScanConfig{
		Competitions:   comps,
		Regions:        []string{"uk"},
		Markets:        []string{"h2h"},
		MaxConcurrency: 2,
	}, testLogger())
}

func TestScanPartialFailure(t *testing.T) {
	src := &fakeSource{
		events: map[string][]domain.Event{"soccer_epl": {arbEvent("e1")}},
		errs:   map[string]error{"soccer_fa_cup": errors.New("HTTP 500")},
	}
	bus := &fakeBus{}
	s := newScanService(src, bus, nil)

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("partial failure should not error: %v", err)
	}
	if res.ID == "" || res.EventsScanned != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Opportunities) != 1 || res.Opportunities[0].ROIPct < 9.99 {
		t.Fatalf("opportunities = %+v", res.Opportunities)
	}
	if len(res.Failures) != 1 || res.Failures[0].Competition != "FA Cup" {
		t.Errorf("failures = %+v", res.Failures)
	}
	if bus.published[domain.ChannelScan] != 1 || bus.published[domain.ChannelArb] != 1 || bus.streamed != 1 {
		t.Errorf("bus = %+v", bus)
	}
	if last, ok := s.Last(); !ok || last.ID != res.ID {
		t.Error("Last not updated")
	}
}

func TestScanAllFailed(t *testing.T) {
	boom := errors.New("unauthorized")
	src := &fakeSource{errs: map[string]error{"soccer_epl": boom, "soccer_fa_cup": boom}}
	_, err := newScanService(src, nil, nil).Scan(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestScanAppliesCommission(t *testing.T) {
	src := &fakeSource{events: map[string][]domain.Event{"soccer_epl": {arbEvent("e1")}}}
	// 20% on every book turns the 10% margin negative.
	s := newScanService(src, nil, map[string]float64{"Bet365": 0.2, "Ladbrokes": 0.2, "Pinnacle": 0.2})
	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Opportunities) != 0 {
		t.Errorf("commission ignored: %+v", res.Opportunities)
	}
}

func TestCommissionService(t *testing.T) {
	audit := &memAudit{}
	cs := NewCommissionService(map[string]float64{"Betfair": 0.05}, nil, audit, testLogger())
	ctx := context.Background()

	if r := cs.Current(ctx).Rate("betfair"); r != 0.05 {
		t.Errorf("base rate = %v", r)
	}
	if _, err := cs.Set(ctx, "Betfair Exchange", 1.5); !errors.Is(err, domain.ErrInvalidCommission) {
		t.Errorf("err = %v", err)
	}
	key, err := cs.Set(ctx, "Betfair", 0.02)
	if err != nil {
		t.Fatal(err)
	}
	if r := cs.Current(ctx).Rate("BETFAIR"); r != 0.02 {
		t.Errorf("override rate = %v (key %q)", r, key)
	}
	if _, err := cs.Delete(ctx, "betfair"); err != nil {
		t.Fatal(err)
	}
	if r := cs.Current(ctx).Rate("Betfair"); r != 0.05 {
		t.Errorf("rate after delete = %v", r)
	}
	if len(audit.events) != 2 {
		t.Errorf("audit = %v", audit.events)
	}
}

func newAlertService(sender notify.Sender, audit domain.AuditStore, minROI float64) *AlertService {
	var senders []notify.Sender
	if sender != nil {
		senders = []notify.Sender{sender}
	}
	n := notify.NewNotifier(senders, nil, testLogger())
	d := dedup.New(dedup.Config{Logger: testLogger()})
	return NewAlertService(n, d, audit, nil, AlertConfig{
		MinROIPct: minROI,
		Digest:    notify.DigestOptions{MaxPerCompetition: 6, MaxTotal: 12},
	}, testLogger())
}

func scanWith(rois ...float64) domain.ScanResult {
	res := domain.ScanResult{ID: "scan"}
	for i, r := range rois {
		res.Opportunities = append(res.Opportunities, domain.Opportunity{
			Competition: "EPL",
			HomeTeam:    "Home" + string(rune('A'+i)),
			AwayTeam:    "Away",
			Market:      domain.MarketThreeWay,
			ROIPct:      r,
			Outcomes: []domain.Outcome{
				{Kind: domain.OutcomeHome, Price: 2.5, Bookmaker: "Bet365"},
				{Kind: domain.OutcomeDraw, Price: 3.6, Bookmaker: "Betfair"},
				{Kind: domain.OutcomeAway, Price: 4.5, Bookmaker: "Pinnacle"},
			},
		})
	}
	return res
}

func TestAlertDedup(t *testing.T) {
	sender := &fakeSender{}
	audit := &memAudit{}
	a := newAlertService(sender, audit, 1)
	ctx := context.Background()

	r, err := a.Handle(ctx, scanWith(1.5, 0.5))
	if err != nil || r.Status != AlertSent || r.Notified != 1 {
		t.Fatalf("first = %+v, %v", r, err)
	}
	if strings.Contains(sender.msgs[0], "HomeB") {
		t.Error("below-threshold opportunity in digest")
	}
	r, _ = a.Handle(ctx, scanWith(1.5, 0.7))
	if r.Status != AlertUnchanged || len(sender.msgs) != 1 {
		t.Errorf("repeat = %+v, sent %d", r, len(sender.msgs))
	}
	r, _ = a.Handle(ctx, scanWith(0.5))
	if r.Status != AlertBelowThreshold {
		t.Errorf("below = %+v", r)
	}
	if len(audit.events) != 1 || audit.events[0] != "digest_sent" {
		t.Errorf("audit = %v", audit.events)
	}
}

func TestAlertFailedSendRetries(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	a := newAlertService(sender, nil, 0.2)
	ctx := context.Background()

	if r, err := a.Handle(ctx, scanWith(2)); err == nil || r.Status != AlertFailed {
		t.Fatalf("failed send = %+v, %v", r, err)
	}
	sender.err = nil
	if r, err := a.Handle(ctx, scanWith(2)); err != nil || r.Status != AlertSent {
		t.Errorf("retry = %+v, %v", r, err)
	}
}

func TestAlertWithoutSenders(t *testing.T) {
	a := newAlertService(nil, nil, 0.2)
	r, err := a.Handle(context.Background(), scanWith(2))
	if err != nil || r.Status != AlertDisabled {
		t.Errorf("= %+v, %v", r, err)
	}
}

func TestCycleGateAndForce(t *testing.T) {
	gate, err := schedule.NewGate(schedule.GateConfig{Enabled: true, Timezone: "UTC", Cron: "*/30 * * * *"})
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{events: map[string][]domain.Event{"soccer_epl": {arbEvent("e1")}}}
	sender := &fakeSender{}
	c := NewCycle(gate, newScanService(src, nil, nil), newAlertService(sender, nil, 0.2), nil, testLogger())
	c.now = func() time.Time { return time.Date(2026, 10, 17, 15, 7, 0, 0, time.UTC) }

	r, err := c.Run(context.Background(), false)
	if err != nil || !r.Skipped || src.calls != 0 {
		t.Fatalf("gated run = %+v, %v, calls %d", r, err, src.calls)
	}

	r, err = c.Run(context.Background(), true)
	if err != nil || r.Skipped {
		t.Fatalf("forced run = %+v, %v", r, err)
	}
	if r.Alert.Status != AlertSent || len(sender.msgs) != 1 {
		t.Errorf("alert = %+v", r.Alert)
	}
	// FA Cup returned no events and no error, so there is no footnote.
	if strings.Contains(sender.msgs[0], "Odds unavailable") {
		t.Errorf("digest = %q", sender.msgs[0])
	}
}

func TestCycleScanInProgress(t *testing.T) {
	s := newScanService(&fakeSource{}, nil, nil)
	c := NewCycle(nil, s, newAlertService(nil, nil, 0.2), nil, testLogger())

	s.running.Lock()
	defer s.running.Unlock()
	r, err := c.Run(context.Background(), true)
	if !errors.Is(err, domain.ErrScanInProgress) || !r.Skipped {
		t.Errorf("= %+v, %v", r, err)
	}
}
