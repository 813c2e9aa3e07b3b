package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/punchlist-gateway/internal/ports"
)

const testClientID = "punchlist-client"

// testIdP is an in-process identity provider serving discovery, JWKS, token and userinfo.
type testIdP struct {
	t        *testing.T
	server   *httptest.Server
	key      *rsa.PrivateKey
	nonce    string
	claims   map[string]any
	userinfo map[string]any
}

func newTestIdP(t *testing.T) *testIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &testIdP{t: t, key: key, claims: map[string]any{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(DiscoveryDocument{
			Issuer:                idp.server.URL,
			AuthorizationEndpoint: idp.server.URL + "/authorize",
			TokenEndpoint:         idp.server.URL + "/token",
			UserinfoEndpoint:      idp.server.URL + "/userinfo",
			JwksURI:               idp.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
			Key: &key.PublicKey, KeyID: "k1", Algorithm: string(jose.RS256), Use: "sig",
		}}})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idp.sign(idp.idClaims()),
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(idp.userinfo)
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (idp *testIdP) idClaims() map[string]any {
	claims := map[string]any{
		"iss":   idp.server.URL,
		"aud":   testClientID,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
		"nonce": idp.nonce,
	}
	for k, v := range idp.claims {
		claims[k] = v
	}
	return claims
}

func (idp *testIdP) sign(claims map[string]any) string {
	idp.t.Helper()
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: idp.key, KeyID: "k1"}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(idp.t, err)
	payload, err := json.Marshal(claims)
	require.NoError(idp.t, err)
	jws, err := signer.Sign(payload)
	require.NoError(idp.t, err)
	raw, err := jws.CompactSerialize()
	require.NoError(idp.t, err)
	return raw
}

func (idp *testIdP) provider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     testClientID,
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Scope:        "openid profile email",
		DiscoveryURL: idp.server.URL + "/.well-known/openid-configuration",
		LogoutURL:    idp.server.URL + "/logout",
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_Discovery(t *testing.T) {
	idp := newTestIdP(t)
	p := idp.provider(t)

	assert.Equal(t, idp.server.URL+"/authorize", p.config.Endpoint.AuthURL)
	assert.Equal(t, idp.server.URL+"/token", p.config.Endpoint.TokenURL)
	assert.Equal(t, idp.server.URL+"/logout", p.LogoutURL())
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name:   "missing client ID",
			config: ProviderConfig{ClientSecret: "s", RedirectURL: "http://x/cb", DiscoveryURL: "http://idp"},
			errMsg: "client ID is required",
		},
		{
			name:   "missing client secret",
			config: ProviderConfig{ClientID: "c", RedirectURL: "http://x/cb", DiscoveryURL: "http://idp"},
			errMsg: "client secret is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{ClientID: "c", ClientSecret: "s", DiscoveryURL: "http://idp"},
			errMsg: "redirect URL is required",
		},
		{
			name:   "missing discovery URL",
			config: ProviderConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "http://x/cb"},
			errMsg: "discovery URL is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestIssuerFromDiscoveryURL(t *testing.T) {
	assert.Equal(t, "https://login.example.com", issuerFromDiscoveryURL("https://login.example.com/.well-known/openid-configuration"))
	assert.Equal(t, "https://login.example.com/tenant", issuerFromDiscoveryURL(" https://login.example.com/tenant/ "))
}

func TestProvider_Begin(t *testing.T) {
	p := newTestIdP(t).provider(t)

	authURL, state, nonce, err := p.Begin(context.Background(), ports.BeginInput{RedirectURL: "/projects"})
	require.NoError(t, err)
	assert.Len(t, state, stateLength)
	assert.Len(t, nonce, stateLength)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, nonce, q.Get("nonce"))
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/auth/callback", q.Get("redirect_uri"))

	_, _, _, err = p.Begin(context.Background(), ports.BeginInput{})
	assert.Error(t, err)
}

func TestProvider_Exchange(t *testing.T) {
	idp := newTestIdP(t)
	idp.nonce = "nonce-1"
	idp.claims = map[string]any{
		"sub":         "3f1c-uuid",
		"email":       "ada@example.com",
		"given_name":  "Ada",
		"family_name": "Lovelace",
	}
	p := idp.provider(t)

	identity, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "c", State: "s", Nonce: "nonce-1"})
	require.NoError(t, err)
	assert.Equal(t, "3f1c-uuid", identity.UserID)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, "Ada", identity.FirstName)
	assert.Equal(t, "Lovelace", identity.LastName)
	assert.WithinDuration(t, time.Now().Add(time.Hour), identity.ExpiresAt, time.Minute)
}

func TestProvider_ExchangeFillsFromUserInfo(t *testing.T) {
	idp := newTestIdP(t)
	idp.nonce = "n"
	idp.claims = map[string]any{"sub": "sub-2"}
	idp.userinfo = map[string]any{"sub": "sub-2", "email": "cora@example.com", "name": "Cora Field"}
	p := idp.provider(t)

	identity, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "c", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, "cora@example.com", identity.Email)
	assert.Equal(t, "Cora", identity.FirstName)
	assert.Equal(t, "Field", identity.LastName)
}

func TestProvider_ExchangeRejectsWrongNonce(t *testing.T) {
	idp := newTestIdP(t)
	idp.nonce = "issued"
	idp.claims = map[string]any{"sub": "sub-3", "email": "x@example.com"}
	p := idp.provider(t)

	_, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "c", State: "s", Nonce: "expected"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid nonce")
}

func TestProvider_ExchangeValidation(t *testing.T) {
	p := &Provider{}
	ctx := context.Background()

	_, err := p.Exchange(ctx, ports.ExchangeInput{State: "s", Nonce: "n"})
	assert.ErrorContains(t, err, "authorization code is required")
	_, err = p.Exchange(ctx, ports.ExchangeInput{Code: "c", Nonce: "n"})
	assert.ErrorContains(t, err, "state is required")
	_, err = p.Exchange(ctx, ports.ExchangeInput{Code: "c", State: "s"})
	assert.ErrorContains(t, err, "nonce is required")
}

func TestTokenVerifier(t *testing.T) {
	idp := newTestIdP(t)
	v := idp.provider(t).TokenVerifier()
	ctx := context.Background()

	raw := idp.sign(map[string]any{
		"iss":   idp.server.URL,
		"aud":   testClientID,
		"sub":   "bearer-sub",
		"email": "api@example.com",
		"exp":   time.Now().Add(10 * time.Minute).Unix(),
	})
	identity, err := v.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "bearer-sub", identity.UserID)
	assert.Equal(t, "api@example.com", identity.Email)

	wrongAudience := idp.sign(map[string]any{
		"iss": idp.server.URL, "aud": "someone-else", "sub": "x", "exp": time.Now().Add(time.Minute).Unix(),
	})
	_, err = v.Verify(ctx, wrongAudience)
	assert.Error(t, err)

	expired := idp.sign(map[string]any{
		"iss": idp.server.URL, "aud": testClientID, "sub": "x", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	_, err = v.Verify(ctx, expired)
	assert.Error(t, err)

	_, err = v.Verify(ctx, "not-a-jwt")
	assert.Error(t, err)

	var nilVerifier *TokenVerifier
	_, err = nilVerifier.Verify(ctx, raw)
	assert.Error(t, err)
}

func TestGenerateRandomString(t *testing.T) {
	a, err := generateRandomString(32)
	require.NoError(t, err)
	b, err := generateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	empty, err := generateRandomString(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
