// Package cache stores short-lived suggestion results per user.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SuggestionCache defines the cache contract used by the suggestion service.
type SuggestionCache interface {
	Get(ctx context.Context, tenantID, userID, key string) ([]byte, bool, error)
	Set(ctx context.Context, tenantID, userID, key string, value []byte) error
	InvalidateUser(ctx context.Context, tenantID, userID string) error
}

// NoopCache never stores anything.
type NoopCache struct{}

// Get always misses.
func (NoopCache) Get(context.Context, string, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set performs no action.
func (NoopCache) Set(context.Context, string, string, string, []byte) error { return nil }

// InvalidateUser performs no action.
func (NoopCache) InvalidateUser(context.Context, string, string) error { return nil }

// RedisCache keeps entries in Redis with a TTL and tracks each user's keys in a set so
// they can be dropped together when the catalog or preferences change.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisCache constructs a RedisCache from a redis:// URL.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisCacheWithClient(redis.NewClient(opts), ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "suggestions"}
}

// Get returns the cached payload, if present.
func (c *RedisCache) Get(ctx context.Context, tenantID, userID, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.entryKey(tenantID, userID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

// Set stores value and records the key in the user's index.
func (c *RedisCache) Set(ctx context.Context, tenantID, userID, key string, value []byte) error {
	entry := c.entryKey(tenantID, userID, key)
	index := c.indexKey(tenantID, userID)

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, entry, value, c.ttl)
	pipe.SAdd(ctx, index, entry)
	pipe.Expire(ctx, index, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// InvalidateUser removes every cached entry for the user.
func (c *RedisCache) InvalidateUser(ctx context.Context, tenantID, userID string) error {
	index := c.indexKey(tenantID, userID)
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}
	keys = append(keys, index)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) entryKey(tenantID, userID, key string) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.prefix, tenantID, userID, key)
}

func (c *RedisCache) indexKey(tenantID, userID string) string {
	return fmt.Sprintf("%s:%s:%s:index", c.prefix, tenantID, userID)
}
