package sweep

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker is the single-flight guard around one sweep pass. Acquire returns
// false when another instance already holds the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisLocker implements Locker with SET NX + TTL. The TTL bounds how long
// a crashed holder can block the next run.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, "1", ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

// NoopLocker is used when redis is not configured; single-process
// deployments get single-flight from the ticker itself.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (NoopLocker) Release(context.Context, string) error                        { return nil }
