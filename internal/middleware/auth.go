package middleware

import (
	"crypto/subtle"
	"net/http"

	"roulette-bot/pkg/apierror"
)

// AdminKeyHeader carries the operator key.
const AdminKeyHeader = "X-Admin-Key"

// NewAdminAuth rejects requests without the configured admin key. An empty
// key disables the protected routes entirely.
func NewAdminAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				apierror.Forbidden("admin API is disabled").Write(w)
				return
			}

			provided := r.Header.Get(AdminKeyHeader)
			if provided == "" {
				apierror.Unauthorized("Authentication required. Use the " + AdminKeyHeader + " header.").Write(w)
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				apierror.Unauthorized("Invalid admin key").Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
