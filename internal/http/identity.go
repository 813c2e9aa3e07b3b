package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
)

// SessionCookieName holds the gateway session id.
const SessionCookieName = "session_id"

// IdentitySource resolves the credentials a request carries.
type IdentitySource interface {
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	VerifyBearer(ctx context.Context, rawToken string) (domainauth.Identity, error)
}

// identityFromRequest tries the session cookie first, then a bearer ID token.
// Invalid credentials are logged at debug and treated as absent.
func identityFromRequest(r *http.Request, src IdentitySource, logger *slog.Logger) (domainauth.Identity, bool) {
	if src == nil {
		return domainauth.Identity{}, false
	}
	ctx := r.Context()

	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		sess, sessErr := src.GetSession(ctx, c.Value)
		if sessErr == nil && sess != nil && sess.UserID != "" {
			return sess.Identity(), true
		}
		logger.DebugContext(ctx, "session cookie rejected", "error", sessErr)
	}

	if raw, ok := bearerToken(r); ok {
		id, err := src.VerifyBearer(ctx, raw)
		if err == nil && id.UserID != "" {
			return id, true
		}
		logger.DebugContext(ctx, "bearer token rejected", "error", err)
	}

	return domainauth.Identity{}, false
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
