package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
	"github.com/Domadoni/Epl-arb-finder/internal/service"
)

// CycleRunner runs one gate-scan-export-alert cycle.
type CycleRunner interface {
	Run(ctx context.Context, force bool) (service.CycleResult, error)
}

// ScanHistory returns the newest scan summaries from the durable stream.
type ScanHistory interface {
	Recent(ctx context.Context, stream string, count int) ([]domain.StreamMessage, error)
}

// ScanHandler serves scan results and the manual trigger.
type ScanHandler struct {
	scans   ScanReader
	cycle   CycleRunner
	history ScanHistory
	logger  *slog.Logger
}

func NewScanHandler(scans ScanReader, cycle CycleRunner, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{scans: scans, cycle: cycle, logger: logger}
}

// WithHistory enables GET /api/scans/recent.
func (h *ScanHandler) WithHistory(hist ScanHistory) *ScanHandler {
	h.history = hist
	return h
}

// Latest returns the most recent scan result.
// GET /api/scans/latest
func (h *ScanHandler) Latest(w http.ResponseWriter, r *http.Request) {
	res, ok := h.scans.Last()
	if !ok {
		writeError(w, http.StatusNotFound, "no scan has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Opportunities returns the latest scan's opportunities, optionally filtered
// by ?competition= and ?min_roi=.
// GET /api/opportunities
func (h *ScanHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	res, _ := h.scans.Last()
	q := r.URL.Query()
	comp := q.Get("competition")
	minROI, _ := strconv.ParseFloat(q.Get("min_roi"), 64)

	out := make([]domain.Opportunity, 0, len(res.Opportunities))
	for _, o := range res.Opportunities {
		if comp != "" && o.Competition != comp {
			continue
		}
		if o.ROIPct < minROI {
			continue
		}
		out = append(out, o)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scan_id":       res.ID,
		"fetched_at":    res.FetchedAt,
		"opportunities": out,
	})
}

// Trigger runs a cycle now, bypassing the schedule gate.
// POST /api/scans
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	res, err := h.cycle.Run(r.Context(), true)
	switch {
	case errors.Is(err, domain.ErrScanInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "manual scan failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "result": res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Recent returns up to ?limit= (default 20) recent scan summaries.
// GET /api/scans/recent
func (h *ScanHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "scan history requires redis")
		return
	}
	limit := 20
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = min(n, 200)
	}
	msgs, err := h.history.Recent(r.Context(), domain.StreamScanRuns, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "scan history failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "scan history unavailable")
		return
	}
	out := make([]json.RawMessage, len(msgs))
	for i, m := range msgs {
		out[i] = m.Payload
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": out})
}
