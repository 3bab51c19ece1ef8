package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 24 * time.Hour,
	}
}

// RedisCache caches resolved mappings. Mappings are immutable, so the TTL is
// hygiene only, with jitter to avoid synchronized expiry.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (c RedisCache) Get(ctx context.Context, table, externalKey string) (string, error) {
	localID, err := c.client.Get(ctx, cacheKey(table, externalKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return localID, nil
}

func (c RedisCache) Set(ctx context.Context, table, externalKey, localID string) error {
	jitter := time.Duration(rand.Intn(30)) * time.Minute
	if err := c.client.Set(ctx, cacheKey(table, externalKey), localID, c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func cacheKey(table, externalKey string) string {
	return fmt.Sprintf("fk:%s:%s", table, externalKey)
}
