package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

const defaultLockTTL = 30 * time.Second

// Decision is the outcome of comparing a scan's opportunities with the last
// notified set.
type Decision struct {
	Fingerprint string
	Previous    string
	Changed     bool
	Sent        bool
}

// Deduplicator owns the last-notified fingerprint. The load, compare, send
// and store steps run as one critical section, guarded by a process mutex
// and, when configured, a distributed lock.
type Deduplicator struct {
	store   domain.FingerprintStore
	locks   domain.LockManager
	lockTTL time.Duration
	mu      sync.Mutex
	logger  *slog.Logger
}

// Config configures a Deduplicator. Locks is optional.
type Config struct {
	Store   domain.FingerprintStore
	Locks   domain.LockManager
	LockTTL time.Duration
	Logger  *slog.Logger
}

// New creates a Deduplicator. A nil Store falls back to an empty in-memory
// store.
func New(cfg Config) *Deduplicator {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{
		store:   store,
		locks:   cfg.Locks,
		lockTTL: ttl,
		logger:  logger.With(slog.String("component", "dedup")),
	}
}

// Check compares the fingerprint of opps with the stored one without
// changing state.
func (d *Deduplicator) Check(ctx context.Context, opps []domain.Opportunity) (Decision, error) {
	fp := Fingerprint(opps)
	prev, err := d.store.Load(ctx)
	if err != nil {
		return Decision{Fingerprint: fp}, fmt.Errorf("dedup: load fingerprint: %w", err)
	}
	return Decision{Fingerprint: fp, Previous: prev, Changed: fp != prev}, nil
}

// Commit stores fp as the last notified fingerprint.
func (d *Deduplicator) Commit(ctx context.Context, fp string) error {
	if err := d.store.Save(ctx, fp); err != nil {
		return fmt.Errorf("dedup: save fingerprint: %w", err)
	}
	return nil
}

// Process calls send only when opps differ from the last notified set, and
// stores the new fingerprint only after send succeeds. A failed send leaves
// the previous fingerprint in place so the next scan retries. An empty set
// is never sent and never stored.
func (d *Deduplicator) Process(ctx context.Context, opps []domain.Opportunity, send func(context.Context) error) (Decision, error) {
	if len(opps) == 0 {
		return Decision{}, domain.ErrNoOpportunities
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.locks != nil {
		unlock, err := d.locks.Acquire(ctx, domain.LockKeyDedup, d.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				d.logger.InfoContext(ctx, "dedup lock held elsewhere; skipping")
			}
			return Decision{}, fmt.Errorf("dedup: acquire lock: %w", err)
		}
		defer unlock()
	}

	dec, err := d.Check(ctx, opps)
	if err != nil {
		return dec, err
	}
	if !dec.Changed {
		d.logger.DebugContext(ctx, "opportunities unchanged; not sending",
			slog.String("fingerprint", dec.Fingerprint),
		)
		return dec, nil
	}

	if err := send(ctx); err != nil {
		d.logger.WarnContext(ctx, "send failed; fingerprint not stored",
			slog.String("fingerprint", dec.Fingerprint),
			slog.String("error", err.Error()),
		)
		return dec, fmt.Errorf("dedup: send: %w", err)
	}
	dec.Sent = true

	if err := d.Commit(ctx, dec.Fingerprint); err != nil {
		return dec, err
	}
	d.logger.InfoContext(ctx, "fingerprint updated",
		slog.String("fingerprint", dec.Fingerprint),
		slog.Int("opportunities", len(opps)),
	)
	return dec, nil
}
