package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
	"github.com/target/punchlist-gateway/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider
	Sessions ports.SessionStore
	// Verifier validates bearer ID tokens. Optional; bearer auth is refused without it.
	Verifier ports.TokenVerifier
	// SessionTTL caps session lifetime. Zero keeps the IdP expiry as-is.
	SessionTTL time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// AuthService orchestrates authentication flows by coordinating the provider and session persistence.
// It establishes who a user is; what they may see is decided per request by RoutePolicy.
type AuthService struct {
	provider   ports.AuthProvider
	sessions   ports.SessionStore
	verifier   ports.TokenVerifier
	sessionTTL time.Duration
	now        func() time.Time
}

var (
	errSessionExpired   = errors.New("session expired")
	errBearerDisabled   = errors.New("bearer authentication is not enabled")
	errMissingSubject   = errors.New("identity has no subject")
	errSessionIDMissing = errors.New("session ID is required")
)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		provider:   opts.Provider,
		sessions:   opts.Sessions,
		verifier:   opts.Verifier,
		sessionTTL: opts.SessionTTL,
		now:        now,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{
		AuthURL: authURL,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin exchanges the code for an identity and persists a session for it.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if identity.UserID == "" {
		return nil, errMissingSubject
	}

	session := domainauth.Session{
		ID:        generateSessionID(),
		UserID:    identity.UserID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		ExpiresAt: s.sessionExpiry(identity.ExpiresAt),
	}

	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	return &CompleteLoginResult{Session: session}, nil
}

func (s *AuthService) sessionExpiry(idpExpiry time.Time) time.Time {
	if s.sessionTTL <= 0 {
		return idpExpiry
	}
	limit := s.now().Add(s.sessionTTL)
	if idpExpiry.IsZero() || idpExpiry.After(limit) {
		return limit
	}
	return idpExpiry
}

// GetSession retrieves a session by ID. Expired sessions are deleted and reported as errors.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errSessionIDMissing
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(s.now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

// VerifyBearer validates a raw bearer ID token and returns the identity it carries.
func (s *AuthService) VerifyBearer(ctx context.Context, rawToken string) (domainauth.Identity, error) {
	if s.verifier == nil {
		return domainauth.Identity{}, errBearerDisabled
	}
	if rawToken == "" {
		return domainauth.Identity{}, errors.New("bearer token is empty")
	}

	identity, err := s.verifier.Verify(ctx, rawToken)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("verify bearer token: %w", err)
	}
	if identity.UserID == "" {
		return domainauth.Identity{}, errMissingSubject
	}
	return identity, nil
}

// Logout removes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil // Nothing to logout
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// generateSessionID creates a random session ID.
func generateSessionID() string {
	return uuid.New().String()
}
