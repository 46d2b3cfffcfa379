package middleware

import (
	"net/http"
	"runtime/debug"

	phttp "driftwatch/internal/platform/net/http"

	perr "driftwatch/internal/platform/errors"
	"driftwatch/internal/platform/logger"
)

// RecoverJSON converts panics into a JSON 500 envelope instead of chi's plain text
func RecoverJSON() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.C(r.Context()).Error().
						Interface("panic", rec).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					phttp.RespondError(w, r, perr.PanicErrf("internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
