package handler

import (
	"net/http"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// ScanReader exposes the latest scan and the configured competitions.
type ScanReader interface {
	Last() (domain.ScanResult, bool)
	Competitions() []domain.Competition
}

// StatusHandler serves the process status for dashboards.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	scans     ScanReader
}

func NewStatusHandler(mode string, startedAt time.Time, scans ScanReader) *StatusHandler {
	return &StatusHandler{mode: mode, startedAt: startedAt, scans: scans}
}

// Snapshot builds the current status; the websocket hub sends it on connect.
func (h *StatusHandler) Snapshot() domain.Status {
	st := domain.Status{
		Mode:          h.mode,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	for _, c := range h.scans.Competitions() {
		st.Competitions = append(st.Competitions, c.Name)
	}
	if last, ok := h.scans.Last(); ok {
		st.LastScanID = last.ID
		st.LastScanAt = last.FetchedAt
	}
	return st
}

// GetStatus responds with a domain.Status.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Snapshot())
}
