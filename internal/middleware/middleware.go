// Package middleware provides the HTTP middleware chain for the
// gateway: request IDs, structured request logging, panic recovery,
// security headers, rate limiting, and response timing.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to handler in order: the first middleware
// in the list is the outermost.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// responseWriter captures the status code and whether the header has
// been written.
type responseWriter struct {
	http.ResponseWriter
	status  int
	written bool

	// beforeWrite runs once, immediately before the header is written.
	beforeWrite func(status int)
}

func (w *responseWriter) WriteHeader(status int) {
	if w.written {
		return
	}
	w.written = true
	w.status = status
	if w.beforeWrite != nil {
		w.beforeWrite(status)
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher when the underlying writer does.
func (w *responseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController, so
// flush and hijack reach it through the wrapper.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}
