package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/okhrimenko/schoolgw/internal/observability"
)

// HeaderRequestID is the request correlation header.
const HeaderRequestID = "X-Request-ID"

// RequestID assigns each request a correlation ID, reusing the inbound
// header value when present. The ID is stored in the request context
// and echoed on the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := observability.ContextWithRequestID(r.Context(), requestID)
			w.Header().Set(HeaderRequestID, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
