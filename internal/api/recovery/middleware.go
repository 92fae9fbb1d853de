// Package recovery turns handler panics into clean 500 responses, so a
// malformed webhook delivery can never take the server down.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/taskivo/taskivo/internal/api/respond"
)

// Middleware recovers panics from downstream handlers. The panic value
// and stack go to the log; the caller only ever sees a generic 500 body.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				log.Error().
					Interface("panic", v).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")
				respond.WriteInternalError(w, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
