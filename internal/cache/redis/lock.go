package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// releaseLua deletes the lock only while it still carries the caller's token.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager is a SET NX PX lock. Two arb finder processes sharing a Redis
// use it to serialise the check-send-commit step of deduplication.
type LockManager struct {
	rdb     *redis.Client
	release *redis.Script
}

func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:     c.Underlying(),
		release: redis.NewScript(releaseLua),
	}
}

// Acquire takes the lock for ttl. It returns domain.ErrLockHeld when another
// holder has it. The returned unlock is idempotent and runs on its own
// context so it still fires after the caller's context is cancelled.
func (lm *LockManager) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	k := key("lock", name)

	ok, err := lm.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = lm.release.Run(rctx, lm.rdb, []string{k}, token).Err()
		})
	}, nil
}

var _ domain.LockManager = (*LockManager)(nil)
