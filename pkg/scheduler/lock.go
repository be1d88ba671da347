package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrLockNotReleased is returned when a lock expired or changed hands before release.
var ErrLockNotReleased = errors.New("lock not held")

// Locker guards a tenant against overlapping cycles across worker replicas.
type Locker interface {
	// Acquire returns a release function when the lock was taken, or nil when
	// another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(ctx context.Context) error, error)
}

// NoopLocker always grants the lock. Single-replica deployments use it.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker takes locks with SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "leaseflow:cycle:"
	}

	return &RedisLocker{client: client, prefix: prefix}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(ctx context.Context) error, error) {
	token := uuid.NewString()
	fullKey := l.prefix + key

	acquired, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
	}

	if !acquired {
		return nil, nil
	}

	return func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", fullKey, err)
		}

		if deleted == 0 {
			return fmt.Errorf("%w: %s", ErrLockNotReleased, fullKey)
		}

		return nil
	}, nil
}
