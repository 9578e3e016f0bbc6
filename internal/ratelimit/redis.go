package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter implements Counter on a shared Redis instance, so that every
// server process enforces one limit. INCR and EXPIRE NX are pipelined: the
// expiry is set only when the key is first created, fixing the window at the
// first attempt.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{
		client: client,
		prefix: "ratelimit:",
	}
}

// Increment records one attempt for key within the current window.
func (c *RedisCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := c.prefix + key

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	ttl := pipe.TTL(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("ratelimit increment failed: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}

// Ensure RedisCounter implements Counter.
var _ Counter = (*RedisCounter)(nil)
