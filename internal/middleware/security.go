package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecurityHeaders applies the standard response hardening headers to
// every response, error responses included.
func SecurityHeaders() Middleware {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
	})

	return func(next http.Handler) http.Handler {
		return sec.Handler(next)
	}
}
