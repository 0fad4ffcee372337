package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// HintCache stores generated hints as plain strings under trail:hint:{key}.
type HintCache struct {
	client *redis.Client
}

func NewHintCache(client *redis.Client) *HintCache {
	return &HintCache{client: client}
}

func (c *HintCache) Get(ctx context.Context, key string) (string, bool, error) {
	text, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (c *HintCache) Set(ctx context.Context, key, text string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), text, ttl).Err()
}

func (c *HintCache) key(key string) string {
	return "trail:hint:" + key
}
