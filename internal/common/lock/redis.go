// Package lock provides the TTL-bounded named mutex shared by every worker
// instance.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker is a non-blocking, TTL-bounded mutual-exclusion primitive.
//
// TryAcquire returns acquired=false with a nil error when someone else holds
// key. The returned token identifies this holder and must be passed back to
// Release. A lock whose holder never releases it becomes acquirable again when
// its TTL expires.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}

// releaseScript deletes the key only while it still holds the caller's token,
// so releasing an expired or re-acquired lock is a no-op.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker implements Locker with SET NX PX and a compare-and-delete
// script.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
		script: redis.NewScript(releaseScript),
	}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		return "", false, fmt.Errorf("lock %s: ttl must be positive, got %s", key, ttl)
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("lock %s: acquire: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	if token == "" {
		return nil
	}
	if err := l.script.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("lock %s: release: %w", key, err)
	}
	return nil
}
