package auth

import (
	"context"
	"log/slog"
	"net/http"

	"keygate/internal/auth/models"
	"keygate/pkg/requestcontext"
)

// Resolver turns a request into an identity or an *models.AuthFailure.
type Resolver interface {
	Resolve(ctx context.Context, req models.RequestContext) (models.Identity, error)
}

// EventSubmitter accepts fire-and-forget records; the index queue satisfies it.
type EventSubmitter interface {
	Submit(index string, record map[string]any)
}

// Option configures RequireIdentity.
type Option func(*options)

type options struct {
	events      EventSubmitter
	eventsIndex string
}

// WithAuthEvents records every authentication attempt in index.
func WithAuthEvents(events EventSubmitter, index string) Option {
	return func(o *options) {
		if events != nil && index != "" {
			o.events = events
			o.eventsIndex = index
		}
	}
}

// writeJSONError writes the fixed JSON error envelope.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errCode + `","error_description":"` + errDesc + `"}`))
}

// WriteUnauthorized writes the uniform 401 body. The rejection reason never
// reaches the client.
func WriteUnauthorized(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
}

// RequireIdentity resolves the caller with resolver and stores the identity in
// the request context. Any failure ends the request with the uniform 401.
func RequireIdentity(resolver Resolver, logger *slog.Logger, opts ...Option) func(http.Handler) http.Handler {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req := models.FromHTTPRequest(r, requestcontext.ClientIP(ctx))

			identity, err := resolver.Resolve(ctx, req)
			if err != nil {
				reason := models.ReasonInvalidToken
				if failure, ok := models.AsAuthFailure(err); ok {
					reason = failure.Reason
				}
				logger.WarnContext(ctx, "unauthorized access",
					"reason", reason,
					"client_ip", req.ClientIP,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				o.record(ctx, r, "failure", "", reason)
				WriteUnauthorized(w)
				return
			}

			o.record(ctx, r, "success", string(identity.Scheme()), "")
			next.ServeHTTP(w, r.WithContext(requestcontext.WithIdentity(ctx, identity)))
		})
	}
}

// RequireScope rejects identities that were not granted scope with 403. It
// must run after RequireIdentity.
func RequireScope(scope string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, ok := requestcontext.Identity(ctx)
			if !ok {
				logger.ErrorContext(ctx, "identity missing from context despite auth middleware",
					"request_id", requestcontext.RequestID(ctx),
				)
				WriteUnauthorized(w)
				return
			}
			if !models.HasScope(identity, scope) {
				logger.InfoContext(ctx, "forbidden - missing scope",
					"scope", scope,
					"scheme", identity.Scheme(),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Insufficient scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (o *options) record(ctx context.Context, r *http.Request, outcome, scheme, reason string) {
	if o.events == nil {
		return
	}
	o.events.Submit(o.eventsIndex, map[string]any{
		"date":       requestcontext.Now(ctx).UTC(),
		"outcome":    outcome,
		"scheme":     scheme,
		"reason":     reason,
		"client_ip":  requestcontext.ClientIP(ctx),
		"path":       r.URL.Path,
		"request_id": requestcontext.RequestID(ctx),
	})
}
