package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes and returns a Redis client
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CompletionLock is the fast-path claim for checkout completion. It keeps
// racing completion attempts from hitting the database claim at all; the
// TTL guards against a crashed holder keeping a checkout stuck.
type CompletionLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCompletionLock creates a CompletionLock with the given holder TTL.
func NewCompletionLock(client *redis.Client, ttl time.Duration) *CompletionLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CompletionLock{client: client, ttl: ttl}
}

func (l *CompletionLock) key(token uuid.UUID) string {
	return "checkout:complete:" + token.String()
}

// Claim acquires the lock for the token. It returns false when another
// attempt already holds it.
func (l *CompletionLock) Claim(ctx context.Context, token uuid.UUID) (bool, error) {
	return l.client.SetNX(ctx, l.key(token), 1, l.ttl).Result()
}

// Release drops the lock. Releasing an expired or foreign lock is harmless.
func (l *CompletionLock) Release(ctx context.Context, token uuid.UUID) error {
	return l.client.Del(ctx, l.key(token)).Err()
}
