package apikey

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"keygate/internal/auth/models"
	"keygate/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) TestLookup() {
	ctx := context.Background()
	key := uuid.NewString()
	s.store.Put(ctx, key, &models.APIKeyRecord{ID: "key-1", Scopes: []string{"read"}})

	s.Run("found", func() {
		record, err := s.store.Lookup(ctx, key)
		s.Require().NoError(err)
		s.Equal(models.APIKeyID("key-1"), record.ID)
		s.Equal([]string{"read"}, record.Scopes)
	})

	s.Run("case insensitive", func() {
		_, err := s.store.Lookup(ctx, strings.ToUpper(key))
		s.NoError(err)
	})

	s.Run("unknown key", func() {
		_, err := s.store.Lookup(ctx, uuid.NewString())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned records are copies", func() {
		record, err := s.store.Lookup(ctx, key)
		s.Require().NoError(err)
		record.Scopes[0] = "admin"

		again, err := s.store.Lookup(ctx, key)
		s.Require().NoError(err)
		s.Equal([]string{"read"}, again.Scopes)
	})
}

func (s *InMemoryStoreSuite) TestDelete() {
	ctx := context.Background()
	key := uuid.NewString()
	s.store.Put(ctx, key, &models.APIKeyRecord{ID: "key-2"})
	s.Equal(1, s.store.Len())

	s.store.Delete(ctx, key)
	_, err := s.store.Lookup(ctx, key)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(0, s.store.Len())
}

func (s *InMemoryStoreSuite) TestHashKeyDoesNotLeakRawKey() {
	key := uuid.NewString()
	digest := HashKey(key)
	s.Len(digest, 64)
	s.NotContains(digest, key)
	s.Equal(digest, HashKey(" "+strings.ToUpper(key)+" "))
}
