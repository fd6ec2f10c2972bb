package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"roulette-bot/pkg/apierror"
)

// NewRecovery turns handler panics into a 500 response.
func NewRecovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error().
						Interface("panic", err).
						Bytes("stack", debug.Stack()).
						Str("request_id", GetRequestID(r.Context())).
						Str("path", r.URL.Path).
						Msg("recovered from panic")

					apierror.InternalError("internal server error").Write(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
