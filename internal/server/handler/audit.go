package handler

import (
	"log/slog"
	"net/http"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// AuditHandler lists audit log entries.
type AuditHandler struct {
	store  domain.AuditStore
	logger *slog.Logger
}

func NewAuditHandler(store domain.AuditStore, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{store: store, logger: logger}
}

// List returns entries newest first.
// GET /api/audit?limit=50&offset=0&since=RFC3339
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list audit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "audit log unavailable")
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
