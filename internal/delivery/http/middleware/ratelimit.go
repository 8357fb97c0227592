package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	h "meetsync/internal/delivery/http/helpers"
)

// RateLimitByIP limits each client IP to requests per window. Rejected requests get 429 with the flat
// {"error": "..."} body used by the /api endpoints.
func RateLimitByIP(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			h.WriteLegacyError(w, http.StatusTooManyRequests, "too many requests")
		}),
	)
}

// Limit adapts a handler middleware to the http.HandlerFunc wrappers used by the router.
func Limit(limiter func(http.Handler) http.Handler) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return limiter(next).ServeHTTP
	}
}
