package apikey

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"keygate/internal/auth/models"
	"keygate/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// PostgresStore reads key records from the api_keys table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed key store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the api_keys table when it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate api_keys: %w", err)
	}
	return nil
}

func (s *PostgresStore) Lookup(ctx context.Context, rawKey string) (*models.APIKeyRecord, error) {
	var (
		id        string
		scopes    []string
		referrers []string
		ipRanges  []string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scopes, referrer_restrictions, ip_restrictions
		FROM api_keys
		WHERE key_hash = $1
	`, HashKey(rawKey)).Scan(&id, pq.Array(&scopes), pq.Array(&referrers), pq.Array(&ipRanges))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	return &models.APIKeyRecord{
		ID:                   models.APIKeyID(id),
		Scopes:               scopes,
		ReferrerRestrictions: referrers,
		IPRestrictions:       ipRanges,
	}, nil
}

// Put inserts or replaces the record for rawKey. Provisioning lives outside
// the gateway; this exists for seeding and tests.
func (s *PostgresStore) Put(ctx context.Context, rawKey string, record *models.APIKeyRecord) error {
	if record == nil {
		return fmt.Errorf("api key record is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, key_hash, scopes, referrer_restrictions, ip_restrictions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			scopes = EXCLUDED.scopes,
			referrer_restrictions = EXCLUDED.referrer_restrictions,
			ip_restrictions = EXCLUDED.ip_restrictions
	`,
		string(record.ID),
		HashKey(rawKey),
		pq.Array(nonNil(record.Scopes)),
		pq.Array(nonNil(record.ReferrerRestrictions)),
		pq.Array(nonNil(record.IPRestrictions)),
	)
	if err != nil {
		return fmt.Errorf("put api key: %w", err)
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
