package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/punchlist-gateway/internal/domain/access"
	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
	"github.com/target/punchlist-gateway/internal/service"
)

const (
	stateCookieName    = "oauth_state"
	nonceCookieName    = "oauth_nonce"
	redirectCookieName = "post_login_redirect"
	oauthCookieMaxAge  = 600
)

// AuthServiceInterface defines the auth service operations the handlers need.
type AuthServiceInterface interface {
	IdentitySource
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlers provides the sign-in, callback, sign-out and status endpoints.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	// SignUpURL and ResetPasswordURL point at IdP pages. When empty the
	// request is handed to the dashboard like any other public route.
	SignUpURL        string
	ResetPasswordURL string
	// LogoutURL is the IdP end-session URL visited after sign-out.
	LogoutURL string
	// Upstream renders the dashboard. It may be nil in development.
	Upstream http.Handler
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// SignIn starts the login flow.
// GET /auth/sign-in?redirect_uri=<relative path>.
//
// A request that already carries a valid session is not sent back to the IdP.
// Users without a usable role land here from "/", and starting the flow again
// would loop through the IdP and back to "/" forever. No role is looked up.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	if identity, ok := IdentityFromContext(r.Context()); ok {
		if h.Upstream != nil {
			h.Upstream.ServeHTTP(w, r)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"user":          userPayload(identity),
		})
		return
	}

	redirectURI := safeRedirectPath(r.URL.Query().Get(access.ReturnToQueryParam))

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin login failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: err})
		return
	}

	h.setOAuthCookies(w, r, oauthCookieParams{State: result.State, Nonce: result.Nonce, RedirectURI: redirectURI})
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// SignUp sends the visitor to the IdP registration page.
// GET /auth/sign-up.
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	h.externalOrUpstream(w, r, h.SignUpURL)
}

// ResetPassword sends the visitor to the IdP password reset page.
// GET /auth/reset-password.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	h.externalOrUpstream(w, r, h.ResetPasswordURL)
}

func (h *AuthHandlers) externalOrUpstream(w http.ResponseWriter, r *http.Request, target string) {
	if target != "" {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	if h.Upstream != nil {
		h.Upstream.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

// Callback completes the login flow.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if idpErr := q.Get("error"); idpErr != "" {
		h.logger().WarnContext(r.Context(), "identity provider returned an error",
			"error", idpErr, "description", q.Get("error_description"))
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "login_denied", Err: errors.New(idpErr)})
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_code", Err: errors.New("authorization code is required")})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_state", Err: errors.New("state parameter is required")})
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_state", Err: errors.New("invalid or missing state parameter")})
		return
	}
	nonceCookie, err := r.Cookie(nonceCookieName)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_nonce", Err: errors.New("missing nonce parameter")})
		return
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		h.logger().ErrorContext(r.Context(), "complete login failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_completion_failed", Err: err})
		return
	}

	h.setSessionCookie(w, r, result.Session)
	h.clearCookie(w, r, stateCookieName)
	h.clearCookie(w, r, nonceCookieName)

	h.logger().InfoContext(r.Context(), "user signed in", "user_id", result.Session.UserID)
	http.Redirect(w, r, h.postLoginRedirect(w, r), http.StatusFound)
}

// SignOut deletes the session and leaves through the IdP logout page when configured.
// POST /auth/sign-out.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), c.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}
	h.clearCookie(w, r, SessionCookieName)

	target := access.RootPath
	if h.LogoutURL != "" {
		target = h.LogoutURL
	}

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Status reports the current session.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	session, err := h.Svc.GetSession(r.Context(), c.Value)
	if err != nil {
		h.clearCookie(w, r, SessionCookieName)
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          userPayload(session.Identity()),
		"expires_at":    session.ExpiresAt,
	})
}

func userPayload(id domainauth.Identity) map[string]string {
	return map[string]string{
		"id":         id.UserID,
		"first_name": id.FirstName,
		"last_name":  id.LastName,
		"email":      id.Email,
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *AuthHandlers) cookie(r *http.Request, name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// clearCookie mirrors the attributes used when setting so browsers delete it.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	c := h.cookie(r, name, "", -1)
	c.Expires = time.Unix(0, 0).UTC()
	http.SetCookie(w, c)
}

type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	http.SetCookie(w, h.cookie(r, stateCookieName, p.State, oauthCookieMaxAge))
	http.SetCookie(w, h.cookie(r, nonceCookieName, p.Nonce, oauthCookieMaxAge))
	http.SetCookie(w, h.cookie(r, redirectCookieName, url.QueryEscape(p.RedirectURI), oauthCookieMaxAge))
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	maxAge := 0
	if !s.ExpiresAt.IsZero() {
		maxAge = max(int(time.Until(s.ExpiresAt).Seconds()), 1)
	}
	http.SetCookie(w, h.cookie(r, SessionCookieName, s.ID, maxAge))
}

// postLoginRedirect returns the saved destination and clears its cookie.
func (h *AuthHandlers) postLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(redirectCookieName)
	if err != nil {
		return access.RootPath
	}
	h.clearCookie(w, r, redirectCookieName)
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return access.RootPath
	}
	return safeRedirectPath(raw)
}

// safeRedirectPath keeps redirects on this origin: a relative path starting
// with a single "/". Anything else becomes "/".
func safeRedirectPath(candidate string) string {
	if candidate == "" || strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, "/\\") {
		return access.RootPath
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return access.RootPath
	}
	return candidate
}
