package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/okhrimenko/schoolgw/internal/observability"
)

// Recovery converts handler panics into a 500 response. The panic value
// and stack go to the log, never into the response body.
func Recovery(logger observability.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithContext(r.Context()).Error("handler panicked",
						observability.Any("panic", rec),
						observability.String("method", r.Method),
						observability.String("path", r.URL.Path),
						observability.String("stack", string(debug.Stack())),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"detail": "internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
