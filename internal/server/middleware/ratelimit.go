package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// RateLimit allows each client IP limit requests per window. Limiter errors
// fail open.
func RateLimit(limiter domain.RateLimiter, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := limiter.Allow(r.Context(), "api:"+ClientIP(r), limit, window)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(max(window/time.Duration(limit), time.Second).Seconds())))
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MemoryLimiter is a per-key token bucket for single-instance deployments.
// Each key refills at limit/window with a burst of limit.
// TODO: evict buckets for clients idle longer than a window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*rate.Limiter)}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lim, ok := m.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		m.buckets[key] = lim
	}
	return lim.Allow(), nil
}

var _ domain.RateLimiter = (*MemoryLimiter)(nil)
