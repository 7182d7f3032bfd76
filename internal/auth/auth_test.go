package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	secret := "my_super_secret_key_for_testing"
	verifier := NewHMACVerifier(secret, "fylr")

	tokenString, err := GenerateToken("user_123", "a@example.com", secret, "fylr", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := verifier.Verify(tokenString)
	require.NoError(t, err)
	require.Equal(t, "user_123", claims.OwnerID())
	require.Equal(t, "a@example.com", claims.Email)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	_, err = NewHMACVerifier("wrong_secret", "fylr").Verify(tokenString)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwt.ErrSignatureInvalid)

	_, err = NewHMACVerifier(secret, "someone-else").Verify(tokenString)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestHMACVerifier_Expired(t *testing.T) {
	secret := "secret"
	tokenString, err := GenerateToken("user_123", "", secret, "", -time.Minute)
	require.NoError(t, err)

	_, err = NewHMACVerifier(secret, "").Verify(tokenString)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestHMACVerifier_MissingSubject(t *testing.T) {
	secret := "secret"
	tokenString, err := GenerateToken("", "", secret, "", time.Hour)
	require.NoError(t, err)

	_, err = NewHMACVerifier(secret, "").Verify(tokenString)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func newJWKSServer(t *testing.T, key *rsa.PublicKey, kid string) *httptest.Server {
	t.Helper()
	jwks := map[string]interface{}{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := newJWKSServer(t, &key.PublicKey, "key-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	verifier, err := NewJWKSVerifier(ctx, srv.URL, "https://idp.example.com", zap.NewNop())
	require.NoError(t, err)

	valid := &Claims{
		Email: "b@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_abc",
			Issuer:    "https://idp.example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("valid token", func(t *testing.T) {
		claims, err := verifier.Verify(signRS256(t, key, "key-1", valid))
		require.NoError(t, err)
		require.Equal(t, "user_abc", claims.OwnerID())
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := *valid
		other.Issuer = "https://evil.example.com"
		_, err := verifier.Verify(signRS256(t, key, "key-1", &other))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown signing key", func(t *testing.T) {
		otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = verifier.Verify(signRS256(t, otherKey, "key-1", valid))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("hmac token rejected", func(t *testing.T) {
		hs, err := GenerateToken("user_abc", "", "secret", "https://idp.example.com", time.Hour)
		require.NoError(t, err)
		_, err = verifier.Verify(hs)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewJWKSVerifier_EmptyURL(t *testing.T) {
	_, err := NewJWKSVerifier(context.Background(), "", "", zap.NewNop())
	require.Error(t, err)
}
