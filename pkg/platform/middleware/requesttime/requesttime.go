// Package requesttime captures one timestamp per request so every record
// produced while serving it (auth events, logs) agrees on "now".
package requesttime

import (
	"net/http"
	"time"

	"keygate/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
