package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// leaseKey guards the full-inventory recompute across processes.
const leaseKey = "recompute-all"

// unlockScript releases the lease only if this holder still owns it, so a
// slow cycle cannot release a successor's lease after its TTL lapsed.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RecomputeLease is a Redis-backed singleton guard for recompute cycles.
type RecomputeLease struct {
	client *redis.Client
	holder string
}

func NewRecomputeLease(client *redis.Client) *RecomputeLease {
	return &RecomputeLease{
		client: client,
		holder: uuid.NewString(),
	}
}

// Acquire takes the lease with SET NX and a TTL slightly past the cycle
// budget. Returns false when another process holds it.
func (l *RecomputeLease) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, leaseKey, l.holder, ttl+time.Minute).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire recompute lease: %w", err)
	}
	return ok, nil
}

func (l *RecomputeLease) Release(ctx context.Context) error {
	err := unlockScript.Run(ctx, l.client, []string{leaseKey}, l.holder).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release recompute lease: %w", err)
	}
	return nil
}
