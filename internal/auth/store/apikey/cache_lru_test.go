package apikey

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/internal/auth/models"
	"keygate/pkg/platform/sentinel"
)

type countingStore struct {
	*InMemoryStore
	lookups int
}

func (c *countingStore) Lookup(ctx context.Context, rawKey string) (*models.APIKeyRecord, error) {
	c.lookups++
	return c.InMemoryStore.Lookup(ctx, rawKey)
}

func TestNewLRUCache_Validation(t *testing.T) {
	_, err := NewLRUCache(nil, 10, time.Minute)
	require.Error(t, err)
	_, err = NewLRUCache(NewInMemoryStore(), 0, time.Minute)
	require.Error(t, err)
}

func TestLRUCache_CachesFoundRecords(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{InMemoryStore: NewInMemoryStore()}
	key := uuid.NewString()
	next.Put(ctx, key, &models.APIKeyRecord{ID: "key-1", Scopes: []string{"read"}})

	cache, err := NewLRUCache(next, 10, time.Minute)
	require.NoError(t, err)

	for range 3 {
		record, err := cache.Lookup(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, models.APIKeyID("key-1"), record.ID)
	}
	assert.Equal(t, 1, next.lookups)

	cache.Invalidate(key)
	_, err = cache.Lookup(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, next.lookups)
}

func TestLRUCache_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{InMemoryStore: NewInMemoryStore()}
	cache, err := NewLRUCache(next, 10, time.Minute)
	require.NoError(t, err)

	key := uuid.NewString()
	_, err = cache.Lookup(ctx, key)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	next.Put(ctx, key, &models.APIKeyRecord{ID: "late"})
	record, err := cache.Lookup(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.APIKeyID("late"), record.ID)
	assert.Equal(t, 2, next.lookups)
}

func TestLRUCache_Expires(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{InMemoryStore: NewInMemoryStore()}
	key := uuid.NewString()
	next.Put(ctx, key, &models.APIKeyRecord{ID: "key-1"})

	cache, err := NewLRUCache(next, 10, 20*time.Millisecond)
	require.NoError(t, err)

	_, err = cache.Lookup(ctx, key)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = cache.Lookup(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, next.lookups)
}

func TestLRUCache_RecordsLookupsOnInjectedRegistry(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{InMemoryStore: NewInMemoryStore()}
	key := uuid.NewString()
	next.Put(ctx, key, &models.APIKeyRecord{ID: "key-1"})

	reg := prometheus.NewRegistry()
	metrics := NewCacheMetrics(reg)
	cache, err := NewLRUCache(next, 10, time.Minute, WithLRUMetrics(metrics))
	require.NoError(t, err)

	for range 2 {
		_, err := cache.Lookup(ctx, key)
		require.NoError(t, err)
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "keygate_apikey_cache_lookups_total")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Lookups.WithLabelValues("lru", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Lookups.WithLabelValues("lru", "hit")))
}

func TestCacheMetrics_NilIsSafe(t *testing.T) {
	var metrics *CacheMetrics
	assert.NotPanics(t, func() { metrics.incLookup("lru", "hit") })
}
