package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiterForTest(t *testing.T) (*RedisFixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFixedWindowLimiter(client, "test:ratelimit"), mr
}

func TestRedisLimiterEnforcesLimit(t *testing.T) {
	limiter, _ := newRedisLimiterForTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "login:10.0.0.1", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i+1, err)
		}
		if !d.Allowed {
			t.Fatalf("attempt %d should pass", i+1)
		}
		if d.Remaining != 3-(i+1) {
			t.Fatalf("attempt %d: expected remaining %d, got %d", i+1, 3-(i+1), d.Remaining)
		}
	}

	d, err := limiter.Allow(ctx, "login:10.0.0.1", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed {
		t.Fatal("fourth attempt should be denied")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("denied decision should carry a retry delay, got %v", d.RetryAfter)
	}
}

func TestRedisLimiterIsolatesKeys(t *testing.T) {
	limiter, _ := newRedisLimiterForTest(t)
	ctx := context.Background()

	if d, err := limiter.Allow(ctx, "login:10.0.0.1", 1, time.Minute); err != nil || !d.Allowed {
		t.Fatalf("first key should pass: %+v %v", d, err)
	}
	if d, err := limiter.Allow(ctx, "login:10.0.0.2", 1, time.Minute); err != nil || !d.Allowed {
		t.Fatalf("second key must not share the bucket: %+v %v", d, err)
	}
	if d, _ := limiter.Allow(ctx, "login:10.0.0.1", 1, time.Minute); d.Allowed {
		t.Fatal("first key should now be exhausted")
	}
}

func TestRedisLimiterCountersExpire(t *testing.T) {
	limiter, mr := newRedisLimiterForTest(t)
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "login:10.0.0.1", 1, time.Second); err != nil {
		t.Fatalf("allow: %v", err)
	}
	// The counter key must carry a TTL so stale windows clean themselves up.
	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one counter key, got %v", keys)
	}
	if mr.TTL(keys[0]) <= 0 {
		t.Fatalf("counter key should expire, ttl=%v", mr.TTL(keys[0]))
	}
}

func TestRedisLimiterFailsWithBackendDown(t *testing.T) {
	limiter, mr := newRedisLimiterForTest(t)
	mr.Close()

	if _, err := limiter.Allow(context.Background(), "login:10.0.0.1", 1, time.Minute); err == nil {
		t.Fatal("expected an error when redis is unreachable")
	}
}
