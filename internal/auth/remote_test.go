package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okhrimenko/schoolgw/internal/authz"
)

// newAuthority returns a fake authentication authority that accepts
// exactly one token value.
func newAuthority(t *testing.T, accepted string, payload map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, verifyPath, r.URL.Path)

		if r.Header.Get("Authorization") != bearerPrefix+accepted {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
}

func TestRemoteVerifier_ValidToken(t *testing.T) {
	t.Parallel()

	authority := newAuthority(t, "good-token", map[string]interface{}{
		"sub":  "u1",
		"role": "parent",
		"exp":  float64(time.Now().Add(time.Hour).Unix()),
	})
	defer authority.Close()

	verifier, err := NewRemoteVerifier(authority.URL)
	require.NoError(t, err)

	claims, err := verifier.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, authz.RoleParent, claims.Role)
}

func TestRemoteVerifier_RejectedToken(t *testing.T) {
	t.Parallel()

	authority := newAuthority(t, "good-token", nil)
	defer authority.Close()

	verifier, err := NewRemoteVerifier(authority.URL)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "bad-token")
	require.Error(t, err)
	assert.True(t, IsInvalidCredential(err))
}

func TestRemoteVerifier_EmptyCredential(t *testing.T) {
	t.Parallel()

	// The verifier must short-circuit without any network call.
	verifier, err := NewRemoteVerifier("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsInvalidCredential(err))
}

func TestRemoteVerifier_UnreachableAuthority(t *testing.T) {
	t.Parallel()

	verifier, err := NewRemoteVerifier("http://127.0.0.1:1",
		WithRemoteTimeout(time.Second),
	)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "any-token")
	require.Error(t, err)
	assert.True(t, IsInvalidCredential(err))
}

func TestRemoteVerifier_FallbackOnUnreachable(t *testing.T) {
	t.Parallel()

	local := newTestService(t)
	token, err := local.Mint(&Claims{Subject: "u1", Role: authz.RoleTeacher}, time.Hour)
	require.NoError(t, err)

	verifier, err := NewRemoteVerifier("http://127.0.0.1:1",
		WithRemoteTimeout(time.Second),
		WithLocalFallback(local),
	)
	require.NoError(t, err)

	claims, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
}

// A definitive rejection by the authority must not be retried locally,
// even when a fallback is configured.
func TestRemoteVerifier_NoFallbackOnRejection(t *testing.T) {
	t.Parallel()

	local := newTestService(t)
	token, err := local.Mint(&Claims{Subject: "u1", Role: authz.RoleTeacher}, time.Hour)
	require.NoError(t, err)

	authority := newAuthority(t, "some-other-token", nil)
	defer authority.Close()

	verifier, err := NewRemoteVerifier(authority.URL, WithLocalFallback(local))
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	require.Error(t, err)
	assert.True(t, IsInvalidCredential(err))
}

func TestRemoteVerifier_MissingSubjectInResponse(t *testing.T) {
	t.Parallel()

	authority := newAuthority(t, "good-token", map[string]interface{}{
		"role": "admin",
	})
	defer authority.Close()

	verifier, err := NewRemoteVerifier(authority.URL)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "good-token")
	require.Error(t, err)
	assert.True(t, IsInvalidCredential(err))
}
