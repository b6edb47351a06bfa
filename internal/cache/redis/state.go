package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// FingerprintStore keeps the last notified fingerprint in a plain string key.
type FingerprintStore struct {
	rdb *redis.Client
	key string
}

func NewFingerprintStore(c *Client) *FingerprintStore {
	return &FingerprintStore{rdb: c.Underlying(), key: key("fingerprint")}
}

func (s *FingerprintStore) Load(ctx context.Context) (string, error) {
	v, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis: load fingerprint: %w", err)
	}
	return v, nil
}

func (s *FingerprintStore) Save(ctx context.Context, fp string) error {
	if err := s.rdb.Set(ctx, s.key, fp, 0).Err(); err != nil {
		return fmt.Errorf("redis: save fingerprint: %w", err)
	}
	return nil
}

// CommissionStore keeps overrides in a hash of bookmaker -> rate.
type CommissionStore struct {
	rdb *redis.Client
	key string
}

func NewCommissionStore(c *Client) *CommissionStore {
	return &CommissionStore{rdb: c.Underlying(), key: key("commissions")}
}

// All skips fields that do not parse as floats.
func (s *CommissionStore) All(ctx context.Context) (map[string]float64, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load commissions: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for book, v := range raw {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		out[book] = rate
	}
	return out, nil
}

func (s *CommissionStore) Set(ctx context.Context, book string, rate float64) error {
	v := strconv.FormatFloat(rate, 'f', -1, 64)
	if err := s.rdb.HSet(ctx, s.key, book, v).Err(); err != nil {
		return fmt.Errorf("redis: set commission %s: %w", book, err)
	}
	return nil
}

func (s *CommissionStore) Delete(ctx context.Context, book string) error {
	if err := s.rdb.HDel(ctx, s.key, book).Err(); err != nil {
		return fmt.Errorf("redis: delete commission %s: %w", book, err)
	}
	return nil
}

var (
	_ domain.FingerprintStore = (*FingerprintStore)(nil)
	_ domain.CommissionStore  = (*CommissionStore)(nil)
)
