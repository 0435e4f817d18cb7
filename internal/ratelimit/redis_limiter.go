package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veridianhq/hr-api/internal/http/middleware"
)

// RedisFixedWindowLimiter counts attempts in redis so the limit holds
// across replicas. Keys are bucketed by window start; INCR + EXPIRE run in
// one pipeline so a counter never survives its window.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

var _ middleware.Limiter = (*RedisFixedWindowLimiter)(nil)

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (middleware.Decision, error) {
	now := time.Now()
	bucket := now.Truncate(window)
	resetAt := bucket.Add(window)
	redisKey := fmt.Sprintf("%s:{%s}:%d", l.prefix, key, bucket.Unix())

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return middleware.Decision{}, fmt.Errorf("rate limit pipeline: %w", err)
	}

	n := int(count.Val())
	if n > limit {
		return middleware.Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: time.Until(resetAt),
			ResetAt:    resetAt,
		}, nil
	}
	return middleware.Decision{
		Allowed:   true,
		Remaining: limit - n,
		ResetAt:   resetAt,
	}, nil
}
