package apikey

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"keygate/internal/auth/models"
	"keygate/internal/auth/ports"
)

// LRUCache is an in-process read-through cache used when Redis is not
// configured. Like RedisCache it only remembers found records.
type LRUCache struct {
	next    ports.KeyStore
	records *expirable.LRU[string, models.APIKeyRecord]
	metrics *CacheMetrics
}

// LRUCacheOption configures an LRUCache.
type LRUCacheOption func(*LRUCache)

// WithLRUMetrics enables lookup metrics.
func WithLRUMetrics(m *CacheMetrics) LRUCacheOption {
	return func(c *LRUCache) {
		c.metrics = m
	}
}

// NewLRUCache wraps next with a cache of at most size records living ttl.
func NewLRUCache(next ports.KeyStore, size int, ttl time.Duration, opts ...LRUCacheOption) (*LRUCache, error) {
	if next == nil {
		return nil, fmt.Errorf("next key store is required")
	}
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive")
	}
	c := &LRUCache{
		next:    next,
		records: expirable.NewLRU[string, models.APIKeyRecord](size, nil, ttl),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *LRUCache) Lookup(ctx context.Context, rawKey string) (*models.APIKeyRecord, error) {
	digest := HashKey(rawKey)
	if record, ok := c.records.Get(digest); ok {
		c.metrics.incLookup("lru", "hit")
		return cloneRecord(&record), nil
	}
	c.metrics.incLookup("lru", "miss")

	record, err := c.next.Lookup(ctx, rawKey)
	if err != nil || record == nil {
		return record, err
	}
	c.records.Add(digest, *cloneRecord(record))
	return record, nil
}

// Invalidate drops the cached record for rawKey.
func (c *LRUCache) Invalidate(rawKey string) {
	c.records.Remove(HashKey(rawKey))
}
