package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyTTL bounds how long processed event ids are remembered.
// Providers stop retrying well within this window.
const DefaultIdempotencyTTL = 72 * time.Hour

const idempotencyKeyPrefix = "webhook:event:"

// RedisIdempotencyStore is a Redis-backed IdempotencyStore shared across
// server instances. SET NX makes the mark atomic: exactly one instance
// wins the first delivery of any event id.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdempotencyStore creates a store on the given client.
// A non-positive ttl falls back to DefaultIdempotencyTTL.
func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

// MarkProcessed records the event id with SET NX.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	key := idempotencyKeyPrefix + eventID
	first, err := s.client.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return first, nil
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)
