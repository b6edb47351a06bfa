// Package server exposes the arb finder's HTTP API, Prometheus metrics and
// the websocket event feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
	"github.com/Domadoni/Epl-arb-finder/internal/server/handler"
	"github.com/Domadoni/Epl-arb-finder/internal/server/middleware"
	"github.com/Domadoni/Epl-arb-finder/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port               int
	CORSOrigins        []string
	APIKey             string // empty disables authentication
	RateLimitPerMinute int
}

// Handlers aggregates the HTTP handlers. Audit, Metrics and WS are optional.
type Handlers struct {
	Health      *handler.HealthHandler
	Status      *handler.StatusHandler
	Scans       *handler.ScanHandler
	Stake       *handler.StakeHandler
	Commissions *handler.CommissionHandler
	Audit       *handler.AuditHandler
	Metrics     http.Handler
	WS          *ws.Hub
}

// Server is the HTTP + websocket API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route. Reads are public; anything that triggers
// a scan, changes commissions or exposes the audit log needs the API key.
func NewServer(cfg Config, h Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           Routes(cfg, h, limiter, logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// A forced scan fetches every competition before responding.
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Routes builds the handler tree; exported for tests.
func Routes(cfg Config, h Handlers, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	protect := middleware.Auth(cfg.APIKey)

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", h.Status.GetStatus)

	mux.HandleFunc("GET /api/scans/latest", h.Scans.Latest)
	mux.HandleFunc("GET /api/scans/recent", h.Scans.Recent)
	mux.HandleFunc("GET /api/opportunities", h.Scans.Opportunities)
	mux.Handle("POST /api/scans", protect(http.HandlerFunc(h.Scans.Trigger)))

	mux.HandleFunc("POST /api/stake", h.Stake.Calculate)

	mux.HandleFunc("GET /api/commissions", h.Commissions.List)
	mux.Handle("PUT /api/commissions/{bookmaker}", protect(http.HandlerFunc(h.Commissions.Set)))
	mux.Handle("DELETE /api/commissions/{bookmaker}", protect(http.HandlerFunc(h.Commissions.Delete)))

	if h.Audit != nil {
		mux.Handle("GET /api/audit", protect(http.HandlerFunc(h.Audit.List)))
	}
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}
	if h.WS != nil {
		mux.HandleFunc("GET /ws", h.WS.HandleWS)
	}

	var out http.Handler = mux
	if limiter != nil && cfg.RateLimitPerMinute > 0 {
		out = middleware.RateLimit(limiter, cfg.RateLimitPerMinute, time.Minute, logger)(out)
	}
	out = middleware.Logging(logger)(out)
	out = middleware.CORS(cfg.CORSOrigins)(out)
	return out
}

// Start blocks serving until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
