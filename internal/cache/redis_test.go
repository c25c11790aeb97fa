package cache

import (
	"context"
	"testing"
	"time"

	"todo-api/internal/config"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return New(redis.NewClient(&redis.Options{Addr: m.Addr()}), ttl, SharedNamespace), m
}

func TestCacheSetGetInvalidate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	gen, ok := c.Generation(ctx)
	require.True(t, ok)
	require.Positive(t, gen)
	_, hit := c.Get(ctx, gen, "stats")
	require.False(t, hit)

	c.Set(ctx, gen, "stats", []byte(`{"total":1}`))
	b, hit := c.Get(ctx, gen, "stats")
	require.True(t, hit)
	require.JSONEq(t, `{"total":1}`, string(b))

	c.Invalidate(ctx)
	next, ok := c.Generation(ctx)
	require.True(t, ok)
	require.Equal(t, gen+1, next)
	_, hit = c.Get(ctx, next, "stats")
	require.False(t, hit)
}

func TestCacheEntriesExpire(t *testing.T) {
	c, m := newTestCache(t, time.Second)
	ctx := context.Background()

	c.Set(ctx, 7, "k", []byte("v"))
	m.FastForward(2 * time.Second)
	_, ok := c.Get(ctx, 7, "k")
	require.False(t, ok)
}

func TestCacheEvictedGenerationNeverRewinds(t *testing.T) {
	c, m := newTestCache(t, time.Minute)
	ctx := context.Background()

	gen, ok := c.Generation(ctx)
	require.True(t, ok)
	c.Set(ctx, gen, "stats", []byte(`{"total":1}`))

	m.Del(c.generationKey())
	after, ok := c.Generation(ctx)
	require.True(t, ok)
	require.Greater(t, after, gen)
	_, hit := c.Get(ctx, after, "stats")
	require.False(t, hit)

	m.Del(c.generationKey())
	c.Invalidate(ctx)
	bumped, ok := c.Generation(ctx)
	require.True(t, ok)
	require.Greater(t, bumped, after)
}

func TestCacheGenerationUnknownWhenRedisFails(t *testing.T) {
	c, m := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok := c.Generation(ctx)
	require.True(t, ok)
	m.Close()
	gen, ok := c.Generation(ctx)
	require.False(t, ok)
	require.Zero(t, gen)
}

func TestNamespacesIsolateEntries(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	ctx := context.Background()

	a := New(rdb, time.Minute, NamespaceFor(config.BackendMemory))
	b := New(rdb, time.Minute, NamespaceFor(config.BackendMemory))
	require.NotEqual(t, a.ns, b.ns)
	require.Equal(t, SharedNamespace, NamespaceFor(config.BackendPostgres))

	gen, ok := a.Generation(ctx)
	require.True(t, ok)
	a.Set(ctx, gen, "stats", []byte(`{"total":1}`))

	genB, ok := b.Generation(ctx)
	require.True(t, ok)
	_, hit := b.Get(ctx, genB, "stats")
	require.False(t, hit)
	_, hit = b.Get(ctx, gen, "stats")
	require.False(t, hit)
}

func TestNilCacheIsAlwaysAMiss(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	require.Nil(t, New(nil, time.Minute, SharedNamespace))
	c.Set(ctx, 0, "k", []byte("v"))
	c.Invalidate(ctx)
	_, ok := c.Get(ctx, 0, "k")
	require.False(t, ok)
	_, ok = c.Generation(ctx)
	require.False(t, ok)
	require.Error(t, c.Ping(ctx))
}
