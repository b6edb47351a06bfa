package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// RateLimiter is a sliding-window limiter over a sorted set, so the HTTP
// API's per-client budget holds across replicas.
type RateLimiter struct {
	rdb    *redis.Client
	script *redis.Script
}

func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:    c.Underlying(),
		script: redis.NewScript(slidingWindowLua),
	}
}

// Allow records a request for name and reports whether it fits in limit
// requests per window.
func (rl *RateLimiter) Allow(ctx context.Context, name string, limit int, window time.Duration) (bool, error) {
	res, err := rl.script.Run(ctx, rl.rdb,
		[]string{key("ratelimit", name)},
		time.Now().UnixMicro(),
		window.Microseconds(),
		limit,
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", name, err)
	}
	if len(res) < 2 {
		return false, fmt.Errorf("redis: rate limit %s: unexpected reply %v", name, res)
	}
	return res[0] == 1, nil
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
