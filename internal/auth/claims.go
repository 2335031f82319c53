// Package auth turns bearer credentials into validated claims, either
// by checking the HS256 signature locally or by delegating to a remote
// authentication authority.
package auth

import (
	"time"

	"github.com/okhrimenko/schoolgw/internal/authz"
)

// Claims is the decoded payload carried by a validated credential. A
// Claims value is never mutated after creation and is discarded when
// the request completes.
type Claims struct {
	// Subject is the unique identifier of the caller.
	Subject string `json:"sub"`

	// Role is the caller's role in the hierarchy.
	Role authz.Role `json:"role"`

	// Permissions is an optional fine-grained permission list.
	Permissions []string `json:"permissions,omitempty"`

	// ExpiresAt is the absolute expiry of the credential.
	ExpiresAt time.Time `json:"exp"`
}

// HasPermission reports whether the claims carry a specific permission.
func (c *Claims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ClaimsFromMap builds Claims from a decoded payload map, applying the
// defensive defaulting rules: a missing subject is a hard failure
// (authentication cannot proceed without identity), a missing or
// non-string role defaults to the lowest-privilege role, never to an
// elevated one.
func ClaimsFromMap(payload map[string]interface{}) (*Claims, error) {
	subject, _ := payload["sub"].(string)
	if subject == "" {
		return nil, ErrMissingSubject
	}

	role := authz.RoleStudent
	if s, ok := payload["role"].(string); ok && s != "" {
		role = authz.Role(s)
	}

	claims := &Claims{
		Subject:     subject,
		Role:        role,
		Permissions: stringSlice(payload["permissions"]),
	}

	if exp := parseUnixTime(payload["exp"]); exp != nil {
		claims.ExpiresAt = *exp
	}

	return claims, nil
}

// stringSlice coerces a decoded JSON value into a string slice.
func stringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

// parseUnixTime coerces a decoded JSON value into a timestamp.
func parseUnixTime(value interface{}) *time.Time {
	switch v := value.(type) {
	case float64:
		t := time.Unix(int64(v), 0)
		return &t
	case int64:
		t := time.Unix(v, 0)
		return &t
	case int:
		t := time.Unix(int64(v), 0)
		return &t
	default:
		return nil
	}
}
