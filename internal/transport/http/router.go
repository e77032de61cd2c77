package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"keygate/internal/platform/metrics"
	"keygate/internal/platform/middleware"
	"keygate/pkg/platform/middleware/auth"
	"keygate/pkg/platform/middleware/metadata"
	"keygate/pkg/platform/middleware/requesttime"
)

const (
	ScopeSearchRead  = "search:read"
	ScopeEventsWrite = "events:write"
)

// Dependencies are the collaborators the router wires together.
type Dependencies struct {
	Resolver auth.Resolver
	Indexer  Indexer
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Checks   map[string]HealthCheck

	TrustProxyHeaders bool
	// AuthEventsIndex, when set, receives one record per authentication
	// attempt and is closed to client writes.
	AuthEventsIndex string
	RequestTimeout  time.Duration
}

// NewRouter builds the HTTP surface.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	h := NewHandler(deps.Indexer, logger, deps.AuthEventsIndex)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata(metadata.TrustProxyHeaders(deps.TrustProxyHeaders)))
	r.Use(middleware.Logger(logger))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}

	r.Get("/healthz", healthHandler(deps.Checks, logger))
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))
	}

	var authOpts []auth.Option
	if deps.Indexer != nil {
		authOpts = append(authOpts, auth.WithAuthEvents(deps.Indexer, deps.AuthEventsIndex))
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(chimw.Timeout(timeout))
		v1.Use(auth.RequireIdentity(deps.Resolver, logger, authOpts...))

		v1.Get("/me", h.handleMe)
		v1.With(auth.RequireScope(ScopeSearchRead, logger)).Post("/search/{index}", h.handleSearch)
		v1.With(auth.RequireScope(ScopeEventsWrite, logger)).Post("/events/{index}", h.handleSubmitEvent)
	})

	return otelhttp.NewHandler(r, "keygate")
}
