package auth

import (
	"net/http"
	"strings"
)

// bearerPrefix is the credential scheme accepted in Authorization
// headers.
const bearerPrefix = "Bearer "

// ExtractBearerToken extracts a bearer token from the Authorization
// header. It returns an empty string when no bearer credential is
// present.
func ExtractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(header[len(bearerPrefix):])
}
