package oidc

import (
	"context"
	"errors"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
	"github.com/target/punchlist-gateway/internal/ports"
)

// TokenVerifier validates bearer ID tokens sent by the dashboard's API calls.
type TokenVerifier struct {
	verifier *gooidc.IDTokenVerifier
}

var _ ports.TokenVerifier = (*TokenVerifier)(nil)

// NewTokenVerifier wraps a go-oidc verifier.
func NewTokenVerifier(v *gooidc.IDTokenVerifier) *TokenVerifier {
	return &TokenVerifier{verifier: v}
}

// Verify checks signature, issuer, audience and expiry, then returns the token's identity.
func (v *TokenVerifier) Verify(ctx context.Context, rawToken string) (domainauth.Identity, error) {
	if v == nil || v.verifier == nil {
		return domainauth.Identity{}, errors.New("token verifier is not configured")
	}

	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("verify id_token: %w", err)
	}

	var claims profileClaims
	if err := tok.Claims(&claims); err != nil {
		return domainauth.Identity{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	if claims.Subject == "" {
		claims.Subject = tok.Subject
	}

	identity := claims.identity()
	identity.ExpiresAt = tok.Expiry
	return identity, nil
}
