// Package requesttime captures one "now" per request so audit timestamps,
// token expiries and reset-code deadlines agree within a request.
package requesttime

import (
	"net/http"
	"time"

	"biblioteca/pkg/requestcontext"
)

// Middleware stamps the request context with the current time.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock is Middleware with an injectable clock for tests.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), now())))
		})
	}
}
