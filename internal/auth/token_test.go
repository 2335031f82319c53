package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okhrimenko/schoolgw/internal/authz"
)

var testKey = []byte("test-signing-key")

func newTestService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testKey)
	require.NoError(t, err)
	return svc
}

// signRaw signs an arbitrary payload with the test key, bypassing Mint,
// so tests can produce tokens with missing or malformed claims.
func signRaw(t *testing.T, payload jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(testKey)
	require.NoError(t, err)
	return token
}

func TestNewTokenService_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService(nil)
	assert.Error(t, err)
}

func TestTokenService_MintAndVerify(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	token, err := svc.Mint(&Claims{
		Subject: "u1",
		Role:    authz.RoleTeacher,
	}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, authz.RoleTeacher, claims.Role)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestTokenService_Mint_RequiresSubject(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	_, err := svc.Mint(nil, time.Hour)
	assert.Error(t, err)

	_, err = svc.Mint(&Claims{Role: authz.RoleAdmin}, time.Hour)
	assert.Error(t, err)
}

func TestTokenService_Verify_ExpiredToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	token := signRaw(t, jwt.MapClaims{
		"sub":  "u1",
		"role": "teacher",
		"exp":  time.Now().Add(-time.Minute).Unix(),
	})

	_, err := svc.Verify(context.Background(), token)
	require.Error(t, err)
	assert.True(t, IsInvalidCredential(err))
}

func TestTokenService_Verify_Failures(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	exp := time.Now().Add(time.Hour).Unix()

	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "exp": exp,
	}).SignedString([]byte("some-other-key"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1", "exp": exp,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name       string
		credential string
	}{
		{name: "empty credential", credential: ""},
		{name: "garbage", credential: "not-a-token"},
		{name: "wrong signing key", credential: otherKey},
		{name: "unsigned token", credential: unsigned},
		{name: "missing subject", credential: signRaw(t, jwt.MapClaims{"role": "admin", "exp": exp})},
		{name: "missing expiry", credential: signRaw(t, jwt.MapClaims{"sub": "u1", "role": "admin"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := svc.Verify(context.Background(), tt.credential)
			require.Error(t, err)
			assert.Nil(t, claims)

			// All failures collapse to the same caller-visible error.
			assert.True(t, IsInvalidCredential(err))
		})
	}
}

func TestTokenService_Verify_MissingRoleDefaultsToStudent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	token := signRaw(t, jwt.MapClaims{
		"sub": "u2",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleStudent, claims.Role)
}

func TestTokenService_Mint_CarriesPermissions(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	token, err := svc.Mint(&Claims{
		Subject:     "u3",
		Role:        authz.RoleAdmin,
		Permissions: []string{"grades:write"},
	}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, claims.HasPermission("grades:write"))
	assert.False(t, claims.HasPermission("grades:delete"))
}
