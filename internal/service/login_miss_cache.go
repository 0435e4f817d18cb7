package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginMissCache remembers sign-in emails that recently resolved to no
// account, so repeated probing of unknown identities short-circuits before
// the employee lookup. Entries expire on their own; a short TTL keeps a
// freshly onboarded employee from being locked out for long.
type LoginMissCache interface {
	Contains(ctx context.Context, email string) (bool, error)
	Remember(ctx context.Context, email string) error
}

type InMemoryLoginMissCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
}

func NewInMemoryLoginMissCache(ttl time.Duration) *InMemoryLoginMissCache {
	return &InMemoryLoginMissCache{ttl: ttl, entries: make(map[string]time.Time)}
}

func (c *InMemoryLoginMissCache) Contains(_ context.Context, email string) (bool, error) {
	key := missKey(email)
	c.mu.Lock()
	defer c.mu.Unlock()
	expiresAt, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		delete(c.entries, key)
		return false, nil
	}
	return true, nil
}

func (c *InMemoryLoginMissCache) Remember(_ context.Context, email string) error {
	if c.ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[missKey(email)] = time.Now().Add(c.ttl)
	return nil
}

// RedisLoginMissCache shares the miss set across replicas. Keys hold only a
// digest of the email, never the address itself.
type RedisLoginMissCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisLoginMissCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLoginMissCache {
	if prefix == "" {
		prefix = "login_miss"
	}
	return &RedisLoginMissCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisLoginMissCache) Contains(ctx context.Context, email string) (bool, error) {
	_, err := c.client.Get(ctx, c.prefix+":"+missKey(email)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisLoginMissCache) Remember(ctx context.Context, email string) error {
	if c.ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.prefix+":"+missKey(email), "1", c.ttl).Err()
}

func missKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}
