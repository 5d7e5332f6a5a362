// Package cache provides a JSON read-through cache on top of Redis.
//
// A nil *Cache is valid and behaves as a cache that never hits, so callers
// do not branch on whether caching is enabled.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/config"
)

const defaultTTL = 120 * time.Second

// Client is the subset of the Redis API the cache uses.
type Client interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

var _ Client = (*redis.Client)(nil)

// Cache stores JSON encoded values with a fixed expiry.
type Cache struct {
	client Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.Cache) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// New creates a cache writing through client with the given expiry.
func New(client Client, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{client: client, ttl: ttl, log: log.Named("cache")}
}

// Ping checks the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get decodes the value stored under key into dest and reports whether it
// was there. Redis failures and undecodable entries count as misses.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Debug("failed to unmarshal cached value", zap.String("key", key), zap.Error(err))
		return false
	}
	c.log.Debug("cache hit", zap.String("key", key))
	return true
}

// Set stores value under key. A failed write is logged and reported, the
// caller already has the value and may ignore it.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// BookKey is the cache key of a book looked up by name.
func BookKey(name string) string {
	return "book:name:" + name
}
