package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/healx/internal/config"
	"github.com/smallbiznis/healx/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTVerifierAcceptsValidToken(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		Role: "clinician",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "4f1c2a",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	p, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, identity.Principal{UserID: "4f1c2a", Role: identity.RoleClinician}, p)
}

func TestJWTVerifierRejectsBadTokens(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	ctx := context.Background()

	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
	})
	noSubject := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{})
	unknownRole := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		Role:             "root",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
	})
	wrongAlg := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
	})

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong key":    wrongKey,
		"no subject":   noSubject,
		"unknown role": unknownRole,
		"wrong alg":    wrongAlg,
		"garbage":      "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(ctx, token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestDevVerifier(t *testing.T) {
	ctx := context.Background()

	p, err := DevVerifier{}.Verify(ctx, "user-123")
	require.NoError(t, err)
	assert.Equal(t, identity.Principal{UserID: "user-123", Role: identity.RolePatient}, p)

	p, err = DevVerifier{}.Verify(ctx, "admin:ops-1")
	require.NoError(t, err)
	assert.Equal(t, identity.Principal{UserID: "ops-1", Role: identity.RoleAdmin}, p)

	_, err = DevVerifier{}.Verify(ctx, "admin:")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestNewVerifierSelection(t *testing.T) {
	log := zap.NewNop()

	v, err := NewVerifier(config.Config{AuthJWTSecret: testSecret}, log)
	require.NoError(t, err)
	assert.IsType(t, &JWTVerifier{}, v)

	v, err = NewVerifier(config.Config{AuthDevTokens: true, Environment: "development"}, log)
	require.NoError(t, err)
	assert.IsType(t, DevVerifier{}, v)

	_, err = NewVerifier(config.Config{AuthDevTokens: true, Environment: "production"}, log)
	assert.ErrorIs(t, err, ErrAuthNotConfigured)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	_, err = BearerToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = BearerToken("Basic dXNlcjpwYXNz")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = BearerToken("Bearer ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
