package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedisCache starts miniredis and returns a cache bound to it.
func setupTestRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return NewRedisCache(client, "wi:", ttl), mr, client
}

func TestRedisCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c, mr, _ := setupTestRedisCache(t, 5*time.Minute)

	require.NoError(t, c.Set(ctx, "prices:current", priceEntry{USD: 2500}))
	assert.True(t, mr.Exists("wi:prices:current"))

	var got priceEntry
	found, err := c.Get(ctx, "prices:current", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2500.0, got.USD)
}

func TestRedisCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, mr, _ := setupTestRedisCache(t, 5*time.Minute)

	require.NoError(t, c.Set(ctx, "history:bitcoin:30", []float64{1, 2, 3}))
	assert.Equal(t, 5*time.Minute, mr.TTL("wi:history:bitcoin:30"))

	mr.FastForward(4 * time.Minute)
	var got []float64
	found, err := c.Get(ctx, "history:bitcoin:30", &got)
	require.NoError(t, err)
	assert.True(t, found)

	mr.FastForward(time.Minute)
	found, err = c.Get(ctx, "history:bitcoin:30", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_ClearOnlyOwnNamespace(t *testing.T) {
	ctx := context.Background()
	c, mr, client := setupTestRedisCache(t, time.Minute)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, k))
	}
	require.NoError(t, client.Set(ctx, "ratelimit:auth:1.2.3.4", "3", 0).Err())

	require.NoError(t, c.Clear(ctx))

	assert.False(t, mr.Exists("wi:a"))
	assert.False(t, mr.Exists("wi:b"))
	assert.True(t, mr.Exists("ratelimit:auth:1.2.3.4"))
}

func TestRedisCache_BackendError(t *testing.T) {
	ctx := context.Background()
	c, mr, _ := setupTestRedisCache(t, time.Minute)
	mr.Close()

	var got string
	_, err := c.Get(ctx, "k", &got)
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, "k", "v"))
}

func TestRedisCache_ImplementsCache(t *testing.T) {
	var _ Cache = (*RedisCache)(nil)
	var _ Cache = (*MemoryCache)(nil)
}
