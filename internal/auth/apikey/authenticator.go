// Package apikey authenticates requests presenting an opaque API key.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"keygate/internal/auth/models"
	"keygate/internal/auth/ports"
	"keygate/internal/auth/restriction"
	"keygate/pkg/platform/sentinel"
)

// Authenticator resolves an API key to an APIKeyIdentity.
//
// It returns models.ErrNoCredential when the request carries nothing that
// looks like a key, or when the key is unknown. Unknown keys and store
// outages are deliberately indistinguishable to the caller. A recognized key
// that fails a restriction yields a *models.Rejection.
type Authenticator struct {
	store   ports.KeyStore
	matcher *restriction.Matcher
	logger  *slog.Logger
}

// Option configures the Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger used for store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMatcher shares a restriction matcher (and its pattern cache).
func WithMatcher(m *restriction.Matcher) Option {
	return func(a *Authenticator) {
		if m != nil {
			a.matcher = m
		}
	}
}

// New creates an API key authenticator backed by store.
func New(store ports.KeyStore, opts ...Option) (*Authenticator, error) {
	if store == nil {
		return nil, fmt.Errorf("key store is required")
	}
	a := &Authenticator{
		store:   store,
		matcher: restriction.New(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate runs the API key scheme against req.
func (a *Authenticator) Authenticate(ctx context.Context, req models.RequestContext) (models.Identity, error) {
	cred, ok := req.APIKeyCredential()
	if !ok || !IsWellFormed(cred.Raw) {
		return nil, models.ErrNoCredential
	}

	record, err := a.store.Lookup(ctx, cred.Raw)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			a.logger.WarnContext(ctx, "api key lookup failed, treating key as absent",
				"error", err,
			)
		}
		return nil, models.ErrNoCredential
	}
	if record == nil {
		return nil, models.ErrNoCredential
	}

	if !a.matcher.MatchesReferrer(req.Referrer(), record.ReferrerRestrictions) {
		return nil, models.Reject(models.ReasonReferrerRestriction)
	}
	if !a.matcher.MatchesIP(req.ClientIP, record.IPRestrictions) {
		return nil, models.Reject(models.ReasonIPRestriction)
	}

	return models.APIKeyIdentity{
		ID:     record.ID,
		Scopes: record.Scopes,
	}, nil
}

// IsWellFormed reports whether raw is shaped like an API key: an RFC 4122
// UUID of version 1 to 5, or the nil UUID, in its canonical 36 character form.
func IsWellFormed(raw string) bool {
	if len(raw) != 36 {
		return false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return false
	}
	if id == uuid.Nil {
		return true
	}
	return id.Variant() == uuid.RFC4122 && id.Version() >= 1 && id.Version() <= 5
}
