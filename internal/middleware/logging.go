package middleware

import (
	"net/http"
	"time"

	"github.com/okhrimenko/schoolgw/internal/observability"
)

// Logging emits one structured log entry per request with method, path,
// status, and elapsed time.
func Logging(logger observability.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrapResponseWriter(w)

			next.ServeHTTP(rw, r)

			logger.WithContext(r.Context()).Info("request completed",
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.Int("status", rw.status),
				observability.Duration("elapsed", time.Since(start)),
				observability.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
