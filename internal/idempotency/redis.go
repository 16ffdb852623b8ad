// Package idempotency guards order creation against client retries.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultTTL = 24 * time.Hour

// RedisGuard records idempotency keys in Redis. A key can be acquired once
// until it expires or is released.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func redisKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}

// Acquire reports false when the key is already held.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, redisKey(key), "exists", g.ttl).Result()
}

// Release frees the key so the same request can be retried.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, redisKey(key)).Err()
}
