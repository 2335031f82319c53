package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// HeaderProcessTime reports gateway processing time in seconds.
const HeaderProcessTime = "X-Process-Time"

// ProcessTime stamps each response with the time spent inside the
// gateway. The header is set just before the response header is
// written, so it covers routing, authentication, and the upstream wait.
func ProcessTime() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrapResponseWriter(w)
			rw.beforeWrite = func(int) {
				elapsed := time.Since(start).Seconds()
				rw.Header().Set(HeaderProcessTime, strconv.FormatFloat(elapsed, 'f', 6, 64))
			}

			next.ServeHTTP(rw, r)
		})
	}
}
