package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseOwned deletes KEYS[1] only while it still holds ARGV[1].
var releaseOwned = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var errLockNotConfigured = errors.New("lock client not configured")

// Locker hands out expiring single-owner leases on redis keys.
type Locker struct {
	client redis.UniversalClient
}

func NewLocker(client redis.UniversalClient) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// TryLock takes the lease on key for ttl. It reports false without error
// when another owner holds it; the returned token is needed to release.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil {
		return "", false, errLockNotConfigured
	}
	if key == "" || ttl <= 0 {
		return "", false, fmt.Errorf("invalid lease key=%q ttl=%s", key, ttl)
	}

	token := uuid.NewString()
	err := l.client.SetArgs(ctx, key, token, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return token, true, nil
}

// Release is a no-op for an empty token or a lease that has moved on.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || token == "" {
		return nil
	}
	return releaseOwned.Run(ctx, l.client, []string{key}, token).Err()
}
