package metadata

import (
	"net"
	"net/http"
	"strings"

	"keygate/pkg/requestcontext"
)

// Option configures ClientMetadata.
type Option func(*config)

type config struct {
	trustProxyHeaders bool
}

// TrustProxyHeaders makes the client IP come from X-Forwarded-For or
// X-Real-IP. Enable it only behind a proxy that overwrites those headers:
// IP restrictions on API keys are enforced against this address.
func TrustProxyHeaders(trust bool) Option {
	return func(c *config) {
		c.trustProxyHeaders = trust
	}
}

// ClientMetadata resolves the client IP address and User-Agent once and
// stores them in the request context. Apply it before authentication.
func ClientMetadata(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIPFromRequest(r, cfg.trustProxyHeaders)
			ctx := requestcontext.WithClientMetadata(r.Context(), ip, r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPFromRequest extracts the client IP. Proxy headers are consulted only
// when trustProxyHeaders is set; otherwise the connection's remote address is
// used.
func ClientIPFromRequest(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		// X-Forwarded-For lists client, proxy1, proxy2, ...
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	if r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
