package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *ScanMetrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestRecorders(t *testing.T) {
	m := New()
	m.RecordFetch("EPL", 200*time.Millisecond, 10, nil)
	m.RecordFetch("FA Cup", time.Second, 0, errors.New("boom"))
	m.RecordOpportunity("EPL", "1X2")
	m.RecordRejections(map[string]int{"allow_list": 3})
	m.RecordScan(2*time.Second, 1.5, time.Unix(1_800_000_000, 0))
	m.RecordNotification("sent")
	m.RecordSkip()

	body := scrape(t, m)
	for _, want := range []string{
		`arbfinder_events_scanned_total{competition="EPL"} 10`,
		`arbfinder_fetch_failures_total{competition="FA Cup"} 1`,
		`arbfinder_opportunities_total{competition="EPL",market="1X2"} 1`,
		`arbfinder_filter_rejections_total{filter="allow_list"} 3`,
		`arbfinder_best_roi_pct 1.5`,
		`arbfinder_notifications_total{result="sent"} 1`,
		`arbfinder_scans_total{status="completed"} 1`,
		`arbfinder_scans_total{status="skipped"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
	if strings.Contains(body, `arbfinder_events_scanned_total{competition="FA Cup"}`) {
		t.Error("failed fetch counted events")
	}
}
