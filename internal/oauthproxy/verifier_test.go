package oauthproxy

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key-with-enough-entropy"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return token
}

func TestStaticVerifier(t *testing.T) {
	v := StaticVerifier{ClientID: "client-a"}

	info, err := v.Verify(context.Background(), "any-token")
	require.NoError(t, err)
	assert.Equal(t, "any-token", info.Token)
	assert.Equal(t, "client-a", info.ClientID)
	assert.Equal(t, DefaultStaticScopes, info.Scopes)
	assert.True(t, info.ExpiresAt.IsZero())

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier(JWTVerifierConfig{
		Algorithm: "HS256",
		Key:       testSigningKey,
		Issuer:    "https://idp.example.com/",
	})
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	t.Run("valid", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"iss":   "https://idp.example.com/",
			"azp":   "client-b",
			"scope": "openid email",
			"exp":   exp.Unix(),
		})
		info, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "client-b", info.ClientID)
		assert.Equal(t, []string{"openid", "email"}, info.Scopes)
		assert.True(t, exp.Equal(info.ExpiresAt))
		assert.True(t, info.HasScopes([]string{"email"}))
		assert.False(t, info.HasScopes([]string{"admin"}))
	})

	t.Run("scp array", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"iss":       "https://idp.example.com/",
			"client_id": "client-c",
			"scp":       []string{"read", "write"},
			"exp":       exp.Unix(),
		})
		info, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, []string{"read", "write"}, info.Scopes)
	})

	wrongSignature, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "https://idp.example.com/",
		"sub": "x",
		"exp": exp.Unix(),
	}).SignedString([]byte("other-key"))
	require.NoError(t, err)

	rejected := map[string]string{
		"expired":         signToken(t, jwt.MapClaims{"iss": "https://idp.example.com/", "sub": "x", "exp": time.Now().Add(-time.Minute).Unix()}),
		"wrong issuer":    signToken(t, jwt.MapClaims{"iss": "https://evil.example.com/", "sub": "x", "exp": exp.Unix()}),
		"no expiry":       signToken(t, jwt.MapClaims{"iss": "https://idp.example.com/", "sub": "x"}),
		"no client":       signToken(t, jwt.MapClaims{"iss": "https://idp.example.com/", "exp": exp.Unix()}),
		"garbage":         "not.a.jwt",
		"wrong signature": wrongSignature,
	}
	for name, token := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewJWTVerifier_Errors(t *testing.T) {
	_, err := NewJWTVerifier(JWTVerifierConfig{})
	assert.Error(t, err)

	_, err = NewJWTVerifier(JWTVerifierConfig{Key: "k", Algorithm: "none"})
	assert.Error(t, err)

	_, err = NewJWTVerifier(JWTVerifierConfig{Key: "not pem", Algorithm: "RS256"})
	assert.Error(t, err)
}
