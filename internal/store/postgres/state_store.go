package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// FingerprintStore keeps the last notified fingerprint in the single-row
// arb_state table.
type FingerprintStore struct {
	pool *pgxpool.Pool
}

func NewFingerprintStore(pool *pgxpool.Pool) *FingerprintStore {
	return &FingerprintStore{pool: pool}
}

func (s *FingerprintStore) Load(ctx context.Context) (string, error) {
	var fp string
	err := s.pool.QueryRow(ctx, `SELECT fingerprint FROM arb_state WHERE id = 1`).Scan(&fp)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: load fingerprint: %w", err)
	}
	return fp, nil
}

func (s *FingerprintStore) Save(ctx context.Context, fp string) error {
	const q = `
		INSERT INTO arb_state (id, fingerprint, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET fingerprint = EXCLUDED.fingerprint, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, q, fp); err != nil {
		return fmt.Errorf("postgres: save fingerprint: %w", err)
	}
	return nil
}

// CommissionStore keeps overrides in commission_overrides.
type CommissionStore struct {
	pool *pgxpool.Pool
}

func NewCommissionStore(pool *pgxpool.Pool) *CommissionStore {
	return &CommissionStore{pool: pool}
}

func (s *CommissionStore) All(ctx context.Context) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `SELECT bookmaker, rate FROM commission_overrides`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load commissions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var book string
		var rate float64
		if err := rows.Scan(&book, &rate); err != nil {
			return nil, fmt.Errorf("postgres: scan commission: %w", err)
		}
		out[book] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load commissions: %w", err)
	}
	return out, nil
}

func (s *CommissionStore) Set(ctx context.Context, book string, rate float64) error {
	const q = `
		INSERT INTO commission_overrides (bookmaker, rate, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (bookmaker) DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, q, book, rate); err != nil {
		return fmt.Errorf("postgres: set commission %s: %w", book, err)
	}
	return nil
}

func (s *CommissionStore) Delete(ctx context.Context, book string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM commission_overrides WHERE bookmaker = $1`, book); err != nil {
		return fmt.Errorf("postgres: delete commission %s: %w", book, err)
	}
	return nil
}

var (
	_ domain.FingerprintStore = (*FingerprintStore)(nil)
	_ domain.CommissionStore  = (*CommissionStore)(nil)
)
