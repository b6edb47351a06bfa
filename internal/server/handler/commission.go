package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Domadoni/Epl-arb-finder/internal/arbitrage"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// CommissionEditor reads and changes commission overrides.
type CommissionEditor interface {
	Current(ctx context.Context) arbitrage.Commissions
	Set(ctx context.Context, book string, rate float64) (string, error)
	Delete(ctx context.Context, book string) (string, error)
}

// CommissionHandler manages per-bookmaker commission rates.
type CommissionHandler struct {
	svc    CommissionEditor
	logger *slog.Logger
}

func NewCommissionHandler(svc CommissionEditor, logger *slog.Logger) *CommissionHandler {
	return &CommissionHandler{svc: svc, logger: logger}
}

// List returns the effective rates keyed by normalized bookmaker.
// GET /api/commissions
func (h *CommissionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commissions": h.svc.Current(r.Context())})
}

// Set stores an override.
// PUT /api/commissions/{bookmaker}  {"rate": 0.02}
func (h *CommissionHandler) Set(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rate *float64 `json:"rate"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Rate == nil {
		writeError(w, http.StatusBadRequest, "rate is required")
		return
	}
	key, err := h.svc.Set(r.Context(), r.PathValue("bookmaker"), *body.Rate)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCommission) || errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "set commission failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "could not store commission")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmaker": key, "rate": *body.Rate})
}

// Delete removes an override.
// DELETE /api/commissions/{bookmaker}
func (h *CommissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := h.svc.Delete(r.Context(), r.PathValue("bookmaker"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "delete commission failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "could not delete commission")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmaker": key, "deleted": true})
}
