package arbitrage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// Registry holds market scanners keyed by market type for selection by
// config.
type Registry struct {
	scanners map[domain.MarketType]MarketScanner
	mu       sync.RWMutex
}

// NewRegistry returns an empty registry. Call Register to add scanners.
func NewRegistry() *Registry {
	return &Registry{scanners: make(map[domain.MarketType]MarketScanner)}
}

// Register adds a scanner under its market type, replacing any previous one.
func (r *Registry) Register(s MarketScanner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanners[s.Market()] = s
}

// Get returns the scanner for a market type, or an error if not found.
func (r *Registry) Get(market domain.MarketType) (MarketScanner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scanners[market]
	if !ok {
		return nil, fmt.Errorf("arbitrage: scanner for market %q not found", market)
	}
	return s, nil
}

// Select returns the scanners for the given market types, in order.
func (r *Registry) Select(markets ...domain.MarketType) ([]MarketScanner, error) {
	out := make([]MarketScanner, 0, len(markets))
	for _, m := range markets {
		s, err := r.Get(m)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// List returns all registered market types, sorted.
func (r *Registry) List() []domain.MarketType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]domain.MarketType, 0, len(r.scanners))
	for n := range r.scanners {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
