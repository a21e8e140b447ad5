// Package cache provides a Redis-backed insight cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/spicewise/internal/model"
	"github.com/Veraticus/spicewise/internal/service"
)

// KeyPrefix namespaces insight keys.
const KeyPrefix = "spicewise:insight:"

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisInsightCache implements service.InsightCache on Redis.
type RedisInsightCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ service.InsightCache = (*RedisInsightCache)(nil)

// NewRedisInsightCache connects to Redis and verifies the connection.
func NewRedisInsightCache(ctx context.Context, opts Options) (*RedisInsightCache, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisInsightCacheFromClient(client, opts.TTL), nil
}

// NewRedisInsightCacheFromClient wraps an existing client.
func NewRedisInsightCacheFromClient(client *redis.Client, ttl time.Duration) *RedisInsightCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisInsightCache{client: client, ttl: ttl}
}

// GetInsight returns the cached insight for period, or nil when absent or expired.
func (c *RedisInsightCache) GetInsight(ctx context.Context, period string) (*model.InsightResult, error) {
	data, err := c.client.Get(ctx, key(period)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read insight %q: %w", period, err)
	}

	var insight model.InsightResult
	if err := json.Unmarshal(data, &insight); err != nil {
		return nil, fmt.Errorf("failed to decode insight %q: %w", period, err)
	}
	return &insight, nil
}

// PutInsight stores insight under its period, replacing any previous value.
func (c *RedisInsightCache) PutInsight(ctx context.Context, insight *model.InsightResult) error {
	if insight == nil || insight.Period == "" {
		return fmt.Errorf("insight period is required")
	}

	data, err := json.Marshal(insight)
	if err != nil {
		return fmt.Errorf("failed to encode insight: %w", err)
	}

	if err := c.client.Set(ctx, key(insight.Period), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store insight %q: %w", insight.Period, err)
	}
	return nil
}

// DeleteInsight removes the cached insight for period.
func (c *RedisInsightCache) DeleteInsight(ctx context.Context, period string) error {
	if err := c.client.Del(ctx, key(period)).Err(); err != nil {
		return fmt.Errorf("failed to delete insight %q: %w", period, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisInsightCache) Close() error {
	return c.client.Close()
}

func key(period string) string {
	return KeyPrefix + period
}
