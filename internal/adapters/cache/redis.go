package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReplayStore is the fast-path filter for replayed webhook
// deliveries. SETNX marks an event id atomically; the durable
// webhook_events table remains the arbiter when redis is down.
type RedisReplayStore struct {
	client *redis.Client
}

func NewRedisReplayStore(client *redis.Client) *RedisReplayStore {
	return &RedisReplayStore{client: client}
}

func (s *RedisReplayStore) Seen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	set, err := s.client.SetNX(ctx, "txn:webhook:seen:"+eventID, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
