package redisstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const refreshLockKey = "checkins:stations:refresh-lock"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RefreshLock serializes directory refreshes across processes.
type RefreshLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRefreshLock returns a lock that expires after ttl if never released.
func NewRefreshLock(client *redis.Client, ttl time.Duration) *RefreshLock {
	return &RefreshLock{client: client, ttl: ttl}
}

// Acquire takes the lock. ok is false when another holder has it.
func (l *RefreshLock) Acquire(ctx context.Context) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, refreshLockKey, token, l.ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Release gives the lock back if token still owns it.
func (l *RefreshLock) Release(ctx context.Context, token string) error {
	return releaseScript.Run(ctx, l.client, []string{refreshLockKey}, token).Err()
}
