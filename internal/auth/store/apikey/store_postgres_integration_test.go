//go:build integration

package apikey_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"keygate/internal/auth/models"
	"keygate/internal/auth/store/apikey"
	"keygate/pkg/platform/sentinel"
	"keygate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *apikey.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = apikey.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.postgres.DB.Exec(`TRUNCATE api_keys`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestMigrateIsIdempotent() {
	s.NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) TestPutAndLookup() {
	ctx := context.Background()
	key := uuid.NewString()
	record := &models.APIKeyRecord{
		ID:                   "key-1",
		Scopes:               []string{"read", "search:read"},
		ReferrerRestrictions: []string{"https://app.example.com/*"},
		IPRestrictions:       []string{"10.0.0.0/8", "192.168.1.1"},
	}
	s.Require().NoError(s.store.Put(ctx, key, record))

	got, err := s.store.Lookup(ctx, strings.ToUpper(key))
	s.Require().NoError(err)
	s.Equal(record, got)
}

func (s *PostgresStoreSuite) TestLookupWithoutRestrictions() {
	ctx := context.Background()
	key := uuid.NewString()
	s.Require().NoError(s.store.Put(ctx, key, &models.APIKeyRecord{ID: "key-2"}))

	got, err := s.store.Lookup(ctx, key)
	s.Require().NoError(err)
	s.Empty(got.Scopes)
	s.Empty(got.ReferrerRestrictions)
	s.Empty(got.IPRestrictions)
}

func (s *PostgresStoreSuite) TestLookupUnknownKey() {
	_, err := s.store.Lookup(context.Background(), uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestPutRotatesKey() {
	ctx := context.Background()
	oldKey, newKey := uuid.NewString(), uuid.NewString()
	s.Require().NoError(s.store.Put(ctx, oldKey, &models.APIKeyRecord{ID: "key-3"}))
	s.Require().NoError(s.store.Put(ctx, newKey, &models.APIKeyRecord{ID: "key-3"}))

	_, err := s.store.Lookup(ctx, oldKey)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Lookup(ctx, newKey)
	s.NoError(err)
}
