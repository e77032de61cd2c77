//go:build integration

package apikey_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"keygate/internal/auth/models"
	"keygate/internal/auth/store/apikey"
	"keygate/pkg/platform/sentinel"
	"keygate/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	next  *apikey.InMemoryStore
	cache *apikey.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.next = apikey.NewInMemoryStore()

	var err error
	s.cache, err = apikey.NewRedisCache(s.next, s.redis.Client, time.Minute,
		apikey.WithRedisLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
}

func (s *RedisCacheSuite) TestServesFromCacheAfterFirstLookup() {
	ctx := context.Background()
	key := uuid.NewString()
	s.next.Put(ctx, key, &models.APIKeyRecord{ID: "key-1", Scopes: []string{"read"}})

	first, err := s.cache.Lookup(ctx, key)
	s.Require().NoError(err)

	// Remove from the backing store: the cached copy must still answer.
	s.next.Delete(ctx, key)
	second, err := s.cache.Lookup(ctx, key)
	s.Require().NoError(err)
	s.Equal(first, second)

	s.Require().NoError(s.cache.Invalidate(ctx, key))
	_, err = s.cache.Lookup(ctx, key)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestMissesAreNotCached() {
	ctx := context.Background()
	key := uuid.NewString()

	_, err := s.cache.Lookup(ctx, key)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.next.Put(ctx, key, &models.APIKeyRecord{ID: "late"})
	record, err := s.cache.Lookup(ctx, key)
	s.Require().NoError(err)
	s.Equal(models.APIKeyID("late"), record.ID)
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	cache, err := apikey.NewRedisCache(s.next, s.redis.Client, time.Second)
	s.Require().NoError(err)

	key := uuid.NewString()
	s.next.Put(ctx, key, &models.APIKeyRecord{ID: "short-lived"})
	_, err = cache.Lookup(ctx, key)
	s.Require().NoError(err)

	s.next.Delete(ctx, key)
	s.Eventually(func() bool {
		_, err := cache.Lookup(ctx, key)
		return err != nil
	}, 5*time.Second, 100*time.Millisecond)
}
