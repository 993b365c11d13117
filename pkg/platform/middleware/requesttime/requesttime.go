// Package requesttime stamps each request with a single "now" and a request
// ID so every log line, audit event and domain timestamp of one request agree.
package requesttime

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/DaniilOrchikov/blps-l1/pkg/requestcontext"
)

const RequestIDHeader = "X-Request-ID"

// Middleware captures the current time and a request ID (taken from the
// X-Request-ID header when present) and stores both in the context.
func Middleware(next http.Handler) http.Handler {
	return MiddlewareWithClock(time.Now)(next)
}

// MiddlewareWithClock is Middleware with an injectable clock.
func MiddlewareWithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			ctx := requestcontext.WithTime(r.Context(), now())
			ctx = requestcontext.WithRequestID(ctx, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
