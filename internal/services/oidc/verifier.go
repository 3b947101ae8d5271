package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims are the identity claims the API relies on.
type Claims struct {
	Sub           string
	Email         string
	Name          string
	EmailVerified bool
}

// Verifier verifies JWT tokens
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
	audience    string
	jwksURL     string
}

// NewVerifier creates a JWT verifier. An empty audience skips the aud check.
func NewVerifier(jwksManager *JWKSManager, settings Settings) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      settings.Issuer,
		audience:    settings.ClientID,
		jwksURL:     settings.JWKSURL,
	}
}

// Verify verifies a JWT token and extracts claims
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	opts := []jwt.ParseOption{jwt.WithKeySet(keys), jwt.WithValidate(true), jwt.WithIssuer(v.issuer)}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}
	if token.Subject() == "" {
		return nil, errors.New("token missing subject claim")
	}

	claims := &Claims{Sub: token.Subject()}
	if email, ok := token.Get("email"); ok {
		claims.Email, _ = email.(string)
	}
	if name, ok := token.Get("name"); ok {
		claims.Name, _ = name.(string)
	}
	if verified, ok := token.Get("email_verified"); ok {
		claims.EmailVerified, _ = verified.(bool)
	}
	return claims, nil
}
