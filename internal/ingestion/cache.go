package ingestion

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenKeyPrefix = "gw:msg:"

// RedisSeenCache marks processed message ids in redis with a TTL, so the
// poll and webhook entries agree on which messages were already handled.
type RedisSeenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSeenCache creates the idempotency cache.
func NewRedisSeenCache(client *redis.Client, ttl time.Duration) *RedisSeenCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSeenCache{client: client, ttl: ttl}
}

// MarkSeen atomically claims the message id. Returns true when this call
// was the first to see it.
func (c *RedisSeenCache) MarkSeen(ctx context.Context, messageID string) (bool, error) {
	return c.client.SetNX(ctx, seenKeyPrefix+messageID, 1, c.ttl).Result()
}
