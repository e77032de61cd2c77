package jwttoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"keygate/internal/auth/models"
	"keygate/pkg/platform/sentinel"
)

// ErrInvalidToken is returned for any token that fails parsing, signature,
// purpose or claim checks. Expired tokens wrap sentinel.ErrExpired instead.
var ErrInvalidToken = errors.New("invalid token")

// AccessTokenClaims is the JWT payload of a login access token.
type AccessTokenClaims struct {
	Purpose string   `json:"purpose"`
	Scopes  []string `json:"scopes"`
	jwt.RegisteredClaims
}

// Verifier checks HMAC-signed tokens. It does not issue tokens.
type Verifier struct {
	signingKey []byte
	issuer     string
	leeway     time.Duration
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithIssuer requires the registered "iss" claim to equal issuer.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) {
		v.issuer = issuer
	}
}

// WithLeeway tolerates clock skew on exp/nbf/iat.
func WithLeeway(leeway time.Duration) Option {
	return func(v *Verifier) {
		v.leeway = leeway
	}
}

func NewVerifier(signingKey string, opts ...Option) (*Verifier, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("signing key is required")
	}
	v := &Verifier{signingKey: []byte(signingKey)}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify parses rawToken, checks its signature and expiry, and requires the
// purpose claim to match. It satisfies ports.TokenVerifier.
func (v *Verifier) Verify(purpose models.TokenPurpose, rawToken string) (*models.TokenClaims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(v.leeway))
	}

	parsed, err := jwt.ParseWithClaims(rawToken, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token has expired: %w", sentinel.ErrExpired)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}
	if claims.Purpose != string(purpose) {
		return nil, fmt.Errorf("%w: purpose mismatch", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Scopes == nil {
		return nil, fmt.Errorf("%w: missing scopes", ErrInvalidToken)
	}

	return &models.TokenClaims{
		Subject: claims.Subject,
		Scopes:  claims.Scopes,
	}, nil
}
