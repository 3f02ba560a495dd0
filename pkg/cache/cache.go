package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmpark/tinydesk-backend/config"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Cache is an optional Redis-backed response cache for the heavier read
// endpoints. A nil *Cache is valid and behaves as a permanent miss, so
// callers never branch on whether caching is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis when configured; returns (nil, nil) when the cache
// is disabled.
func New(cfg *config.RedisConfig) (*Cache, error) {
	if !cfg.CacheEnabled() {
		logger.Info("Response cache disabled, REDIS_HOST not set")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Response cache enabled", map[string]interface{}{
		"host":        cfg.Host,
		"ttl_seconds": cfg.CacheTTLSeconds,
	})
	return &Cache{
		client: client,
		ttl:    time.Duration(cfg.CacheTTLSeconds) * time.Second,
	}, nil
}

// GetJSON loads a cached value into out. Returns false on miss or any cache
// failure; the cache is best-effort and never surfaces errors to handlers.
func (c *Cache) GetJSON(ctx context.Context, key string, out interface{}) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn("Cache entry unreadable, ignoring", map[string]interface{}{
			"key": key,
		})
		return false
	}
	return true
}

// SetJSON stores a value under the configured TTL, best-effort.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("Cache write skipped, value not serializable", map[string]interface{}{
			"key": key,
		})
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("Cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
