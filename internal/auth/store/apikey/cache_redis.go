package apikey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"keygate/internal/auth/models"
	"keygate/internal/auth/ports"
)

const cacheKeyPrefix = "apikey:"

// RedisCache is a read-through cache in front of another KeyStore. Only
// found records are cached; misses and store errors always reach the next
// store. A failing Redis degrades to uncached lookups.
type RedisCache struct {
	next    ports.KeyStore
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *CacheMetrics
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithRedisLogger sets the logger for cache errors.
func WithRedisLogger(logger *slog.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRedisMetrics enables lookup metrics.
func WithRedisMetrics(m *CacheMetrics) RedisCacheOption {
	return func(c *RedisCache) {
		c.metrics = m
	}
}

// NewRedisCache wraps next with a Redis cache holding records for ttl.
func NewRedisCache(next ports.KeyStore, client *redis.Client, ttl time.Duration, opts ...RedisCacheOption) (*RedisCache, error) {
	if next == nil {
		return nil, fmt.Errorf("next key store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	c := &RedisCache{next: next, client: client, ttl: ttl, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *RedisCache) Lookup(ctx context.Context, rawKey string) (*models.APIKeyRecord, error) {
	key := cacheKeyPrefix + HashKey(rawKey)

	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var record models.APIKeyRecord
		if jsonErr := json.Unmarshal(cached, &record); jsonErr == nil {
			c.metrics.incLookup("redis", "hit")
			return &record, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable api key cache entry")
		c.metrics.incLookup("redis", "error")
	case errors.Is(err, redis.Nil):
		c.metrics.incLookup("redis", "miss")
	default:
		c.logger.WarnContext(ctx, "api key cache read failed", "error", err)
		c.metrics.incLookup("redis", "error")
	}

	record, err := c.next.Lookup(ctx, rawKey)
	if err != nil || record == nil {
		return record, err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return record, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "api key cache write failed", "error", err)
	}
	return record, nil
}

// Invalidate drops the cached record for rawKey.
func (c *RedisCache) Invalidate(ctx context.Context, rawKey string) error {
	return c.client.Del(ctx, cacheKeyPrefix+HashKey(rawKey)).Err()
}
