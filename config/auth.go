package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"punchlist"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"punchlist"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`

	// SignUpURL and ResetPasswordURL point at the identity provider's hosted
	// registration and password-reset pages. When empty, the gateway lets the
	// dashboard render its own pages for those public paths.
	SignUpURL        string `env:"SIGNUP_URL"`
	ResetPasswordURL string `env:"RESET_PASSWORD_URL"`

	// AcceptBearer enables verification of "Authorization: Bearer <id_token>"
	// headers as an identity source alongside the session cookie.
	AcceptBearer bool `env:"ACCEPT_BEARER" envDefault:"true"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID    string `env:"USER_ID"    envDefault:"dev-user"`
	Email     string `env:"EMAIL"      envDefault:"dev@example.com"`
	FirstName string `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string `env:"LAST_NAME"  envDefault:"User"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// SessionTTL caps how long a session is kept when the identity provider
	// does not supply an expiry.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`

	// SessionKeyPrefix namespaces session keys in Redis.
	SessionKeyPrefix string `env:"SESSION_KEY_PREFIX" envDefault:"punchlist:session:"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	a.OAuth.SignUpURL = strings.TrimSpace(a.OAuth.SignUpURL)
	a.OAuth.ResetPasswordURL = strings.TrimSpace(a.OAuth.ResetPasswordURL)
	a.OAuth.LogoutURL = strings.TrimSpace(a.OAuth.LogoutURL)
	if a.SessionTTL <= 0 {
		a.SessionTTL = 8 * time.Hour
	}
	if strings.TrimSpace(a.SessionKeyPrefix) == "" {
		a.SessionKeyPrefix = "punchlist:session:"
	}
}
