package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// processedTTL bounds the fast-path dedup window. Gateways redeliver
// within hours; anything older is caught by the durable store.
const processedTTL = 48 * time.Hour

// RedisCache is the shared fast-path dedup set in front of Postgres.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func processedKey(eventID string) string {
	return "webhook:processed:" + eventID
}

func (c *RedisCache) Processed(ctx context.Context, eventID string) (bool, error) {
	err := c.client.Get(ctx, processedKey(eventID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("checking processed set: %w", err)
	}

	return true, nil
}

func (c *RedisCache) MarkProcessed(ctx context.Context, eventID string) error {
	if err := c.client.Set(ctx, processedKey(eventID), 1, processedTTL).Err(); err != nil {
		return fmt.Errorf("marking event processed: %w", err)
	}

	return nil
}
