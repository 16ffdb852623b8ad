package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisGuard(t *testing.T) {
	rdb := setupRedis(t)
	g := NewRedisGuard(rdb, time.Minute)
	ctx := context.Background()
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = g.Release(ctx, key) })

	ok, err := g.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must be rejected")

	require.NoError(t, g.Release(ctx, key))

	ok, err = g.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "released key can be acquired again")

	ttl, err := rdb.TTL(ctx, redisKey(key)).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestNewRedisGuardDefaultTTL(t *testing.T) {
	g := NewRedisGuard(nil, 0)
	assert.Equal(t, DefaultTTL, g.ttl)
}
