package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/config"
)

type cachedBook struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func setupTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.Cache{RedisAddr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl, zap.NewNop()), mr
}

func TestCache_SetAndGet(t *testing.T) {
	c, mr := setupTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, BookKey("Dune"), cachedBook{Name: "Dune", Price: 9.5}))

	var got cachedBook
	assert.True(t, c.Get(ctx, BookKey("Dune"), &got))
	assert.Equal(t, cachedBook{Name: "Dune", Price: 9.5}, got)
	assert.Equal(t, time.Minute, mr.TTL("book:name:Dune"))
	require.NoError(t, c.Ping(ctx))
}

func TestCache_Miss(t *testing.T) {
	c, _ := setupTestCache(t, time.Minute)

	var got cachedBook
	assert.False(t, c.Get(context.Background(), BookKey("Missing"), &got))
}

func TestCache_Expiry(t *testing.T) {
	c, mr := setupTestCache(t, 2*time.Second)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", cachedBook{Name: "Dune"}))

	mr.FastForward(3 * time.Second)

	var got cachedBook
	assert.False(t, c.Get(ctx, "k", &got))
}

func TestCache_DefaultTTL(t *testing.T) {
	c, mr := setupTestCache(t, 0)
	require.NoError(t, c.Set(context.Background(), "k", 1))

	assert.Equal(t, defaultTTL, mr.TTL("k"))
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := setupTestCache(t, time.Minute)
	require.NoError(t, mr.Set("k", "{not json"))

	var got cachedBook
	assert.False(t, c.Get(context.Background(), "k", &got))
}

func TestCache_Delete(t *testing.T) {
	c, mr := setupTestCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1))

	require.NoError(t, c.Delete(ctx, "k"))

	assert.False(t, mr.Exists("k"))
}

func TestCache_UnavailableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c := New(client, time.Minute, zap.NewNop())
	mr.Close()

	var got cachedBook
	assert.False(t, c.Get(context.Background(), "k", &got))
	assert.Error(t, c.Set(context.Background(), "k", 1))
	assert.Error(t, c.Ping(context.Background()))
}

func TestCache_NilIsDisabled(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	var got cachedBook
	assert.False(t, c.Get(ctx, "k", &got))
	assert.NoError(t, c.Set(ctx, "k", 1))
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.Ping(ctx))
}
