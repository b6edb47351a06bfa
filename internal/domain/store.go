package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// FingerprintStore holds the digest of the last notified opportunity set.
// Load returns "" when nothing has been stored yet.
type FingerprintStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, fingerprint string) error
}

// CommissionStore persists per-bookmaker commission overrides keyed by the
// normalized bookmaker name.
type CommissionStore interface {
	All(ctx context.Context) (map[string]float64, error)
	Set(ctx context.Context, bookmaker string, rate float64) error
	Delete(ctx context.Context, bookmaker string) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
