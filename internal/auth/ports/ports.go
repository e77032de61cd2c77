// Package ports declares the collaborators the authenticators consume.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/ports.go -package=mocks KeyStore,TokenVerifier

import (
	"context"

	"keygate/internal/auth/models"
)

// KeyStore resolves a raw API key to its record. Implementations return
// sentinel.ErrNotFound (optionally wrapped) when no record exists.
type KeyStore interface {
	Lookup(ctx context.Context, rawKey string) (*models.APIKeyRecord, error)
}

// TokenVerifier checks a bearer token's signature, expiry and purpose and
// returns its claims.
type TokenVerifier interface {
	Verify(purpose models.TokenPurpose, rawToken string) (*models.TokenClaims, error)
}
