// Package token authenticates requests presenting a signed bearer token.
package token

import (
	"context"
	"fmt"
	"log/slog"

	"keygate/internal/auth/models"
	"keygate/internal/auth/ports"
)

// Authenticator resolves a bearer token to a UserIdentity.
//
// It is the terminal scheme: a missing token is a rejection, not a
// fallthrough. Every verification or claim failure collapses to
// models.ReasonInvalidToken so callers cannot learn why a token failed.
type Authenticator struct {
	verifier     ports.TokenVerifier
	issuerDomain string
	logger       *slog.Logger
}

// Option configures the Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger used for debug output on rejected tokens.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates a token authenticator that only accepts subjects minted for
// issuerDomain.
func New(verifier ports.TokenVerifier, issuerDomain string, opts ...Option) (*Authenticator, error) {
	if verifier == nil {
		return nil, fmt.Errorf("token verifier is required")
	}
	if issuerDomain == "" {
		return nil, fmt.Errorf("issuer domain is required")
	}
	a := &Authenticator{
		verifier:     verifier,
		issuerDomain: issuerDomain,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate runs the bearer token scheme against req.
func (a *Authenticator) Authenticate(ctx context.Context, req models.RequestContext) (models.Identity, error) {
	cred, ok := req.BearerCredential()
	if !ok {
		return nil, models.Reject(models.ReasonNoToken)
	}

	claims, err := a.verifier.Verify(models.PurposeLoginAccess, cred.Raw)
	if err != nil || claims == nil {
		a.logger.DebugContext(ctx, "bearer token verification failed", "error", err)
		return nil, models.Reject(models.ReasonInvalidToken)
	}

	id, err := ParseSubject(claims.Subject, a.issuerDomain)
	if err != nil {
		a.logger.DebugContext(ctx, "bearer token subject rejected", "error", err)
		return nil, models.Reject(models.ReasonInvalidToken)
	}

	return models.UserIdentity{
		ID:     id,
		Scopes: claims.Scopes,
	}, nil
}
