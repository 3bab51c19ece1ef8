package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	cache, _ := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, TableUser, "ext-1", "local-1"))

	got, err := cache.Get(ctx, TableUser, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "local-1", got)
}

func TestRedisCache_MissIsTyped(t *testing.T) {
	cache, _ := setupRedisCache(t)

	_, err := cache.Get(context.Background(), TableUser, "never-set")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_EntriesExpire(t *testing.T) {
	cache, mr := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, TableProduct, "ext-2", "local-2"))

	// Jitter keeps the TTL within base+30m.
	mr.FastForward(25 * time.Hour)

	_, err := cache.Get(ctx, TableProduct, "ext-2")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_KeySpacesAreIsolated(t *testing.T) {
	cache, _ := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, TableUser, "same-key", "user-local"))
	require.NoError(t, cache.Set(ctx, TableProduct, "same-key", "product-local"))

	got, err := cache.Get(ctx, TableUser, "same-key")
	require.NoError(t, err)
	assert.Equal(t, "user-local", got)

	got, err = cache.Get(ctx, TableProduct, "same-key")
	require.NoError(t, err)
	assert.Equal(t, "product-local", got)
}
