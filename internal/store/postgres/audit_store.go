package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// AuditStore appends digest and commission events to audit_log.
type AuditStore struct {
	pool *pgxpool.Pool
}

func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Log stores detail as JSONB.
func (s *AuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal audit detail: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (event, detail) VALUES ($1, $2)`, event, raw,
	); err != nil {
		return fmt.Errorf("postgres: log audit %s: %w", event, err)
	}
	return nil
}

// List returns entries newest first, filtered by opts.
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	query, args := auditQuery(opts)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AuditEntry, error) {
		var e domain.AuditEntry
		var raw []byte
		if err := row.Scan(&e.ID, &e.Event, &raw, &e.CreatedAt); err != nil {
			return e, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Detail); err != nil {
				return e, err
			}
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan audit: %w", err)
	}
	return entries, nil
}

func auditQuery(opts domain.ListOpts) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, event, detail, created_at FROM audit_log`)

	var where []string
	var args []any
	if opts.Since != nil {
		args = append(args, *opts.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

var _ domain.AuditStore = (*AuditStore)(nil)
