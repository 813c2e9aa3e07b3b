// Package oidc authenticates dashboard users against an OpenID Connect identity provider.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
	"github.com/target/punchlist-gateway/internal/ports"
	"golang.org/x/oauth2"
)

const stateLength = 32

// Provider implements ports.AuthProvider using the authorization code flow.
type Provider struct {
	config       *oauth2.Config
	logoutURL    string
	httpClient   *http.Client
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

var _ ports.AuthProvider = (*Provider)(nil)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	LogoutURL    string
	HTTPClient   *http.Client // Optional
}

// DiscoveryDocument is the subset of the discovery document the provider relies on.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider runs discovery against config.DiscoveryURL and prepares the OAuth2 client.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	switch {
	case config.ClientID == "":
		return nil, errors.New("client ID is required")
	case config.ClientSecret == "":
		return nil, errors.New("client secret is required")
	case config.RedirectURL == "":
		return nil, errors.New("redirect URL is required")
	case config.DiscoveryURL == "":
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = gooidc.ClientContext(ctx, httpClient)
	op, err := gooidc.NewProvider(ctx, issuerFromDiscoveryURL(config.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       strings.Fields(config.Scope),
			Endpoint:     op.Endpoint(),
		},
		logoutURL:    config.LogoutURL,
		httpClient:   httpClient,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
	}, nil
}

func issuerFromDiscoveryURL(raw string) string {
	issuer := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	return strings.TrimSuffix(issuer, "/")
}

// LogoutURL returns the IdP end-session URL, if configured.
func (p *Provider) LogoutURL() string { return p.logoutURL }

// TokenVerifier returns a verifier for bearer ID tokens issued to this client.
func (p *Provider) TokenVerifier() *TokenVerifier {
	return NewTokenVerifier(p.verifier)
}

// Begin generates state and nonce and returns the IdP authorization URL.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := generateRandomString(stateLength)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(stateLength)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	// redirect_uri must match the registered RedirectURL, so in.RedirectURL is
	// only the post-login destination and travels in a cookie.
	authURL := p.config.AuthCodeURL(state, gooidc.Nonce(nonce))
	return authURL, state, nonce, nil
}

// Exchange trades the code for tokens and builds the identity from the ID token,
// filling gaps from the userinfo endpoint.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	var claims profileClaims
	if slices.Contains(p.config.Scopes, gooidc.ScopeOpenID) {
		rawID, idErr := idTokenFromToken(token)
		if idErr != nil {
			return domainauth.Identity{}, idErr
		}
		idTok, verifyErr := p.verifier.Verify(ctx, rawID)
		if verifyErr != nil {
			return domainauth.Identity{}, fmt.Errorf("verify id_token: %w", verifyErr)
		}
		if idTok.Nonce != in.Nonce {
			return domainauth.Identity{}, errors.New("invalid nonce")
		}
		if claimsErr := idTok.Claims(&claims); claimsErr != nil {
			return domainauth.Identity{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
		}
	}

	if claims.Subject == "" || claims.Email == "" {
		ui, uiErr := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
		if uiErr != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", uiErr)
		}
		var fromUserInfo profileClaims
		if claimsErr := ui.Claims(&fromUserInfo); claimsErr != nil {
			return domainauth.Identity{}, fmt.Errorf("decode user info: %w", claimsErr)
		}
		claims.fillFrom(fromUserInfo)
	}

	identity := claims.identity()
	identity.ExpiresAt = time.Now().Add(time.Hour)
	if !token.Expiry.IsZero() {
		identity.ExpiresAt = token.Expiry
	}
	return identity, nil
}

// profileClaims are the standard OIDC profile claims the dashboard shows.
type profileClaims struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
}

func (c *profileClaims) fillFrom(other profileClaims) {
	if c.Subject == "" {
		c.Subject = other.Subject
	}
	if c.Email == "" {
		c.Email = other.Email
	}
	if c.GivenName == "" {
		c.GivenName = other.GivenName
	}
	if c.FamilyName == "" {
		c.FamilyName = other.FamilyName
	}
	if c.Name == "" {
		c.Name = other.Name
	}
}

func (c profileClaims) identity() domainauth.Identity {
	first, last := c.GivenName, c.FamilyName
	if first == "" && last == "" && c.Name != "" {
		first, last, _ = strings.Cut(c.Name, " ")
	}
	return domainauth.Identity{
		UserID:    c.Subject,
		FirstName: first,
		LastName:  last,
		Email:     c.Email,
	}
}

func idTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

// generateRandomString returns a URL-safe random string of exactly length characters.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	b := make([]byte, (length*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}
