package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/arbitrage"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
	"github.com/Domadoni/Epl-arb-finder/internal/server/handler"
	"github.com/Domadoni/Epl-arb-finder/internal/server/middleware"
	"github.com/Domadoni/Epl-arb-finder/internal/service"
)

const apiKey = "s3cret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeScans struct {
	last *domain.ScanResult
}

func (f *fakeScans) Last() (domain.ScanResult, bool) {
	if f.last == nil {
		return domain.ScanResult{}, false
	}
	return *f.last, true
}

func (f *fakeScans) Competitions() []domain.Competition {
	return []domain.Competition{{Name: "EPL", SportKey: "soccer_epl"}}
}

type fakeCycle struct {
	res   service.CycleResult
	err   error
	calls int
	force bool
}

func (f *fakeCycle) Run(_ context.Context, force bool) (service.CycleResult, error) {
	f.calls++
	f.force = force
	return f.res, f.err
}

type pingerFunc func(context.Context) error

func (p pingerFunc) Ping(ctx context.Context) error { return p(ctx) }

type fixture struct {
	srv   http.Handler
	scans *fakeScans
	cycle *fakeCycle
}

func newFixture(t *testing.T, deps map[string]handler.Pinger, limiter domain.RateLimiter) *fixture {
	t.Helper()
	logger := testLogger()
	scans := &fakeScans{}
	cycle := &fakeCycle{}
	commissions := service.NewCommissionService(map[string]float64{"Betfair": 0.05}, nil, nil, logger)
	det := arbitrage.NewDetector(arbitrage.DetectorConfig{Bankroll: 100, StakeStep: 0.01, Logger: logger})

	h := Handlers{
		Health:      handler.NewHealthHandler(deps, logger),
		Status:      handler.NewStatusHandler("server", time.Now(), scans),
		Scans:       handler.NewScanHandler(scans, cycle, logger),
		Stake:       handler.NewStakeHandler(det, commissions, logger),
		Commissions: handler.NewCommissionHandler(commissions, logger),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "arbfinder_scans_total 1\n")
		}),
	}
	cfg := Config{APIKey: apiKey, RateLimitPerMinute: 5}
	return &fixture{srv: Routes(cfg, h, limiter, logger), scans: scans, cycle: cycle}
}

func (f *fixture) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if authed {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, map[string]handler.Pinger{
		"redis": pingerFunc(func(context.Context) error { return nil }),
	}, nil)
	if rec := f.do("GET", "/api/health", "", false); rec.Code != http.StatusOK {
		t.Errorf("healthy = %d", rec.Code)
	}

	f = newFixture(t, map[string]handler.Pinger{
		"postgres": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	}, nil)
	rec := f.do("GET", "/api/health", "", false)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, rec, &body)
	if rec.Code != http.StatusServiceUnavailable || body.Status != "degraded" || body.Checks["postgres"] == "ok" {
		t.Errorf("degraded = %d %+v", rec.Code, body)
	}
}

func TestStatusAndLatest(t *testing.T) {
	f := newFixture(t, nil, nil)
	if rec := f.do("GET", "/api/scans/latest", "", false); rec.Code != http.StatusNotFound {
		t.Errorf("latest before scan = %d", rec.Code)
	}

	f.scans.last = &domain.ScanResult{
		ID: "scan-1",
		Opportunities: []domain.Opportunity{
			{Competition: "EPL", ROIPct: 1.2},
			{Competition: "FA Cup", ROIPct: 3},
		},
	}
	var st domain.Status
	decode(t, f.do("GET", "/api/status", "", false), &st)
	if st.LastScanID != "scan-1" || len(st.Competitions) != 1 {
		t.Errorf("status = %+v", st)
	}

	var opps struct {
		Opportunities []domain.Opportunity `json:"opportunities"`
	}
	decode(t, f.do("GET", "/api/opportunities?competition=EPL&min_roi=1", "", false), &opps)
	if len(opps.Opportunities) != 1 || opps.Opportunities[0].Competition != "EPL" {
		t.Errorf("filtered = %+v", opps)
	}
}

func TestTriggerRequiresKey(t *testing.T) {
	f := newFixture(t, nil, nil)
	if rec := f.do("POST", "/api/scans", "", false); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated = %d", rec.Code)
	}
	if f.cycle.calls != 0 {
		t.Fatal("cycle ran without auth")
	}

	f.cycle.res = service.CycleResult{Scan: domain.ScanResult{ID: "forced"}}
	rec := f.do("POST", "/api/scans", "", true)
	if rec.Code != http.StatusOK || !f.cycle.force {
		t.Errorf("trigger = %d force=%v", rec.Code, f.cycle.force)
	}

	f.cycle.err = domain.ErrScanInProgress
	if rec := f.do("POST", "/api/scans", "", true); rec.Code != http.StatusConflict {
		t.Errorf("in progress = %d", rec.Code)
	}
}

func TestStakeCalculator(t *testing.T) {
	f := newFixture(t, nil, nil)
	body := `{"outcomes":[
		{"kind":"home","price":2.5,"bookmaker":"Bet365"},
		{"kind":"Draw","price":3.6,"bookmaker":"Ladbrokes"},
		{"kind":"away","price":4.5,"bookmaker":"Pinnacle"}
	],"bankroll":100,"step":0.01}`
	rec := f.do("POST", "/api/stake", body, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var resp struct {
		ROIPct    float64          `json:"roi_pct"`
		Arbitrage bool             `json:"arbitrage"`
		Plan      domain.StakePlan `json:"plan"`
	}
	decode(t, rec, &resp)
	if math.Abs(resp.ROIPct-10) > 1e-9 || !resp.Arbitrage || len(resp.Plan.Rows) != 3 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Plan.Rows[0].Stake != 44.44 {
		t.Errorf("home stake = %v", resp.Plan.Rows[0].Stake)
	}

	bad := []string{
		``,
		`{"outcomes":[{"kind":"home","price":2.5,"bookmaker":"A"}]}`,
		`{"outcomes":[{"kind":"home","price":0.5,"bookmaker":"A"},{"kind":"away","price":2,"bookmaker":"B"}]}`,
		`{"outcomes":[{"kind":"middle","price":2,"bookmaker":"A"},{"kind":"away","price":2,"bookmaker":"B"}]}`,
		`{"outcomes":[],"extra":1}`,
		`{"outcomes":[{"kind":"home","price":2.5,"bookmaker":"A"},{"kind":"Home","price":2.6,"bookmaker":"B"}]}`,
		`{"outcomes":[{"kind":"over","line":9.5,"price":2.1,"bookmaker":"A"},{"kind":"over","line":9.5,"price":2.2,"bookmaker":"B"}]}`,
	}
	for _, b := range bad {
		if rec := f.do("POST", "/api/stake", b, false); rec.Code != http.StatusBadRequest {
			t.Errorf("%q = %d", b, rec.Code)
		}
	}

	// Same kind at different lines renders distinct labels.
	lines := `{"outcomes":[{"kind":"over","line":9.5,"price":2.1,"bookmaker":"A"},{"kind":"over","line":10.5,"price":2.2,"bookmaker":"B"}]}`
	if rec := f.do("POST", "/api/stake", lines, false); rec.Code != http.StatusOK {
		t.Errorf("distinct lines = %d %s", rec.Code, rec.Body)
	}
}

func TestCommissions(t *testing.T) {
	f := newFixture(t, nil, nil)

	if rec := f.do("PUT", "/api/commissions/Smarkets", `{"rate":0.02}`, false); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated put = %d", rec.Code)
	}
	if rec := f.do("PUT", "/api/commissions/Smarkets", `{"rate":1.2}`, true); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid rate = %d", rec.Code)
	}
	if rec := f.do("PUT", "/api/commissions/Smarkets", `{}`, true); rec.Code != http.StatusBadRequest {
		t.Errorf("missing rate = %d", rec.Code)
	}
	if rec := f.do("PUT", "/api/commissions/Smarkets", `{"rate":0.02}`, true); rec.Code != http.StatusOK {
		t.Fatalf("put = %d %s", rec.Code, rec.Body)
	}

	var list struct {
		Commissions map[string]float64 `json:"commissions"`
	}
	decode(t, f.do("GET", "/api/commissions", "", false), &list)
	if len(list.Commissions) != 2 {
		t.Errorf("list = %+v", list)
	}

	if rec := f.do("DELETE", "/api/commissions/Smarkets", "", true); rec.Code != http.StatusOK {
		t.Errorf("delete = %d", rec.Code)
	}
	decode(t, f.do("GET", "/api/commissions", "", false), &list)
	if len(list.Commissions) != 1 {
		t.Errorf("after delete = %+v", list)
	}
}

func TestMetricsAndHistoryRoutes(t *testing.T) {
	f := newFixture(t, nil, nil)
	if rec := f.do("GET", "/metrics", "", false); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "arbfinder_scans_total") {
		t.Errorf("metrics = %d", rec.Code)
	}
	if rec := f.do("GET", "/api/scans/recent", "", false); rec.Code != http.StatusNotImplemented {
		t.Errorf("recent without history = %d", rec.Code)
	}
	if rec := f.do("GET", "/api/audit", "", true); rec.Code != http.StatusNotFound {
		t.Errorf("audit without store = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, nil, middleware.NewMemoryLimiter())
	for i := range 5 {
		if rec := f.do("GET", "/api/status", "", false); rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
	}
	rec := f.do("GET", "/api/status", "", false)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("sixth = %d", rec.Code)
	}
}
