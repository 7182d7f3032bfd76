package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// JWKSVerifier validates tokens issued by an external identity provider
// against its published key set. Keys are cached and refreshed by keyfunc
// for as long as the context passed to NewJWKSVerifier is alive.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	issuer string
	logger *zap.Logger
}

func NewJWKSVerifier(ctx context.Context, jwksURL, issuer string, logger *zap.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", zap.String("jwks_url", jwksURL))

	return &JWKSVerifier{jwks: jwks, issuer: issuer, logger: logger}, nil
}

func (v *JWKSVerifier) Verify(tokenString string) (*Claims, error) {
	// Only asymmetric algorithms; an HS256 token keyed with the public key must not pass.
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "ES256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.jwks.Keyfunc, opts...)
	if err != nil {
		v.logger.Debug("token parse failed", zap.Error(err))
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, ErrInvalidToken
	}

	return claims, nil
}
