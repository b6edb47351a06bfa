package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strings"
	"sync"

	"github.com/Domadoni/Epl-arb-finder/internal/arbitrage"
	"github.com/Domadoni/Epl-arb-finder/internal/bookmaker"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// CommissionService serves the effective per-bookmaker commission map: the
// configured base rates overlaid with runtime overrides from a
// CommissionStore.
type CommissionService struct {
	base   arbitrage.Commissions
	store  domain.CommissionStore
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewCommissionService creates a CommissionService. A nil store keeps
// overrides in memory for the life of the process; audit may be nil.
func NewCommissionService(base map[string]float64, store domain.CommissionStore, audit domain.AuditStore, logger *slog.Logger) *CommissionService {
	if store == nil {
		store = NewMemoryCommissionStore()
	}
	return &CommissionService{
		base:   arbitrage.NewCommissions(base),
		store:  store,
		audit:  audit,
		logger: logger.With(slog.String("component", "commission_service")),
	}
}

// Current returns the effective commission map. A failing store degrades to
// the base rates with a warning rather than failing the scan.
func (s *CommissionService) Current(ctx context.Context) arbitrage.Commissions {
	over, err := s.store.All(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "commission overrides unavailable; using configured rates",
			slog.String("error", err.Error()),
		)
		return s.base.Merge(nil)
	}
	return s.base.Merge(over)
}

// Set stores an override for book. The rate must be in [0, 1).
func (s *CommissionService) Set(ctx context.Context, book string, rate float64) (string, error) {
	key := bookmaker.Normalize(book)
	if key == "" {
		return "", fmt.Errorf("commission_service: bookmaker name is required: %w", domain.ErrInvalidInput)
	}
	if math.IsNaN(rate) || rate < 0 || rate >= 1 {
		return "", fmt.Errorf("commission_service: %s: %w", key, domain.ErrInvalidCommission)
	}
	if err := s.store.Set(ctx, key, rate); err != nil {
		return "", fmt.Errorf("commission_service: set %s: %w", key, err)
	}
	s.logAudit(ctx, "commission_set", map[string]any{"bookmaker": key, "rate": rate})
	s.logger.InfoContext(ctx, "commission override set",
		slog.String("bookmaker", key),
		slog.Float64("rate", rate),
	)
	return key, nil
}

// Delete removes the override for book, restoring the configured rate.
func (s *CommissionService) Delete(ctx context.Context, book string) (string, error) {
	key := bookmaker.Normalize(book)
	if err := s.store.Delete(ctx, key); err != nil {
		return "", fmt.Errorf("commission_service: delete %s: %w", key, err)
	}
	s.logAudit(ctx, "commission_deleted", map[string]any{"bookmaker": key})
	return key, nil
}

func (s *CommissionService) logAudit(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// MemoryCommissionStore is an in-process CommissionStore.
type MemoryCommissionStore struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// NewMemoryCommissionStore returns an empty store.
func NewMemoryCommissionStore() *MemoryCommissionStore {
	return &MemoryCommissionStore{rates: make(map[string]float64)}
}

func (m *MemoryCommissionStore) All(_ context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.rates), nil
}

func (m *MemoryCommissionStore) Set(_ context.Context, book string, rate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[strings.TrimSpace(book)] = rate
	return nil
}

func (m *MemoryCommissionStore) Delete(_ context.Context, book string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rates, strings.TrimSpace(book))
	return nil
}

var _ domain.CommissionStore = (*MemoryCommissionStore)(nil)
