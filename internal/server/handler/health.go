package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is a dependency the health check probes (Redis, Postgres, S3).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	deps   map[string]Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. deps may be empty.
func NewHealthHandler(deps map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, logger: logger}
}

// HealthCheck reports "ok", or "degraded" with 503 when a dependency fails
// to answer within two seconds.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			h.logger.WarnContext(ctx, "health check failed",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
