// Package ports declares the interfaces the gateway's services depend on.
// Adapters in internal/adapters implement them.
package ports

import (
	"context"

	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
)

// BeginInput is what the gateway knows when a visitor starts signing in.
type BeginInput struct {
	// RedirectURL overrides the provider's registered callback when set.
	RedirectURL string
}

// ExchangeInput carries the callback parameters plus the state and nonce the
// gateway stored in cookies when the flow began.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// AuthProvider runs the interactive sign-in against the identity provider.
// It only proves who the visitor is; roles come from a RoleStore.
type AuthProvider interface {
	// Begin returns the provider URL to send the browser to, together with
	// the state and nonce that Exchange must later be given back.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange redeems the callback code and returns the verified identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// TokenVerifier checks a bearer ID token sent by API clients in place of a
// session cookie.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (domainauth.Identity, error)
}

// SessionStore keeps signed-in sessions keyed by the opaque session cookie.
// Get reports a missing or expired session as an error.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}
