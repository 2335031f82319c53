package auth

import (
	"errors"
	"fmt"
)

// ErrInvalidCredential is the single failure surfaced to callers. Every
// verification failure wraps it so that handlers respond with a uniform
// 401 and cannot be used as an oracle against the token format. The
// specific wrapped error is for logging only.
var ErrInvalidCredential = errors.New("invalid credential")

// Internal failure reasons. All unwrap to ErrInvalidCredential.
var (
	// ErrNoCredential indicates no bearer credential was presented.
	ErrNoCredential = fmt.Errorf("%w: no bearer credential presented", ErrInvalidCredential)

	// ErrTokenMalformed indicates the credential could not be decoded.
	ErrTokenMalformed = fmt.Errorf("%w: token is malformed", ErrInvalidCredential)

	// ErrTokenExpired indicates the credential's expiry is not in the future.
	ErrTokenExpired = fmt.Errorf("%w: token has expired", ErrInvalidCredential)

	// ErrMissingSubject indicates the claims carry no identity.
	ErrMissingSubject = fmt.Errorf("%w: subject claim is missing", ErrInvalidCredential)

	// ErrAuthorityUnavailable indicates the remote authority did not answer.
	ErrAuthorityUnavailable = fmt.Errorf("%w: authentication authority unavailable", ErrInvalidCredential)

	// ErrAuthorityRejected indicates the remote authority answered with a
	// non-success status.
	ErrAuthorityRejected = fmt.Errorf("%w: rejected by authentication authority", ErrInvalidCredential)
)

// IsInvalidCredential reports whether err represents any verification
// failure.
func IsInvalidCredential(err error) bool {
	return errors.Is(err, ErrInvalidCredential)
}
