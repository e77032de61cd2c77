// Package resolver turns an inbound request into exactly one authenticated
// identity or one uniform 401 failure.
//
// Schemes run in a fixed order:
//
//  1. API key. An identity ends resolution. A rejection (restriction failure)
//     also ends it: a recognized key that fails its restrictions must not be
//     able to retry as a bearer token. ErrNoCredential moves on.
//  2. Bearer token. An identity or a rejection ends resolution.
//
// Anything else, including a panic inside a collaborator, ends as
// "invalid token".
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keygate/internal/auth/models"
)

const schemeNone = "none"

// Authenticator is one credential scheme.
type Authenticator interface {
	Authenticate(ctx context.Context, req models.RequestContext) (models.Identity, error)
}

// Resolver orchestrates the API key and bearer token schemes. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	apiKey  Authenticator
	token   Authenticator
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithLogger sets the logger that receives rejection reasons.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Resolver) {
		if tp != nil {
			r.tracer = tp.Tracer("keygate/auth/resolver")
		}
	}
}

// New creates a Resolver trying apiKey first, then token.
func New(apiKey, token Authenticator, opts ...Option) (*Resolver, error) {
	if apiKey == nil {
		return nil, fmt.Errorf("api key authenticator is required")
	}
	if token == nil {
		return nil, fmt.Errorf("token authenticator is required")
	}
	r := &Resolver{
		apiKey: apiKey,
		token:  token,
		logger: slog.Default(),
		tracer: otel.Tracer("keygate/auth/resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve authenticates req. On failure the error is always a
// *models.AuthFailure carrying a 401 status.
func (r *Resolver) Resolve(ctx context.Context, req models.RequestContext) (identity models.Identity, err error) {
	ctx, span := r.tracer.Start(ctx, "auth.Resolve")
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "panic during credential resolution", "panic", fmt.Sprint(p))
			identity, err = nil, r.fail(ctx, span, schemeNone, models.ReasonInvalidToken)
		}
	}()

	identity, err = r.apiKey.Authenticate(ctx, req)
	switch {
	case err == nil && identity != nil:
		return r.succeed(ctx, span, identity), nil
	case err == nil, errors.Is(err, models.ErrNoCredential):
		// No usable key: fall through to the bearer token scheme.
	default:
		return nil, r.fail(ctx, span, string(models.SchemeAPIKey), reasonOf(err))
	}

	identity, err = r.token.Authenticate(ctx, req)
	if err == nil && identity != nil {
		return r.succeed(ctx, span, identity), nil
	}
	if err == nil || errors.Is(err, models.ErrNoCredential) {
		return nil, r.fail(ctx, span, schemeNone, models.ReasonInvalidToken)
	}
	return nil, r.fail(ctx, span, string(models.SchemeUser), reasonOf(err))
}

func (r *Resolver) succeed(ctx context.Context, span trace.Span, identity models.Identity) models.Identity {
	scheme := string(identity.Scheme())
	span.SetAttributes(
		attribute.String("auth.scheme", scheme),
		attribute.String("auth.outcome", "success"),
	)
	if r.metrics != nil {
		r.metrics.IncSuccess(scheme)
	}
	r.logger.DebugContext(ctx, "credential resolved", "scheme", scheme)
	return identity
}

func (r *Resolver) fail(ctx context.Context, span trace.Span, scheme, reason string) error {
	span.SetAttributes(
		attribute.String("auth.scheme", scheme),
		attribute.String("auth.outcome", "failure"),
	)
	span.SetStatus(codes.Error, reason)
	if r.metrics != nil {
		r.metrics.IncFailure(scheme, reason)
	}
	r.logger.InfoContext(ctx, "credential resolution failed",
		"scheme", scheme,
		"reason", reason,
	)
	return models.NewAuthFailure(reason)
}

// reasonOf keeps a Rejection's reason and collapses any other error to the
// generic invalid token reason.
func reasonOf(err error) string {
	var rejection *models.Rejection
	if errors.As(err, &rejection) && rejection.Reason != "" {
		return rejection.Reason
	}
	return models.ReasonInvalidToken
}
