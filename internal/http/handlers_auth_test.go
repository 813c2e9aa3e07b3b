package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
	"github.com/target/punchlist-gateway/internal/service"
)

// mockAuthService is a test double for service.AuthService.
type mockAuthService struct {
	beginLoginFunc    func(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	completeLoginFunc func(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	getSessionFunc    func(ctx context.Context, sessionID string) (*domainauth.Session, error)
	verifyBearerFunc  func(ctx context.Context, rawToken string) (domainauth.Identity, error)
	logoutFunc        func(ctx context.Context, sessionID string) error

	beginCalls int
}

func (m *mockAuthService) BeginLogin(
	ctx context.Context,
	redirectURL string,
) (*service.BeginLoginResult, error) {
	m.beginCalls++
	if m.beginLoginFunc != nil {
		return m.beginLoginFunc(ctx, redirectURL)
	}
	return &service.BeginLoginResult{
		AuthURL: "https://idp.example.com/authorize?state=test-state&nonce=test-nonce",
		State:   "test-state",
		Nonce:   "test-nonce",
	}, nil
}

func (m *mockAuthService) CompleteLogin(
	ctx context.Context,
	input service.CompleteLoginInput,
) (*service.CompleteLoginResult, error) {
	if m.completeLoginFunc != nil {
		return m.completeLoginFunc(ctx, input)
	}
	return &service.CompleteLoginResult{
		Session: domainauth.Session{
			ID:        "session-123",
			UserID:    "U1",
			Email:     "u1@example.com",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}, nil
}

func (m *mockAuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID)
	}
	return nil, errors.New("session not found")
}

func (m *mockAuthService) VerifyBearer(ctx context.Context, rawToken string) (domainauth.Identity, error) {
	if m.verifyBearerFunc != nil {
		return m.verifyBearerFunc(ctx, rawToken)
	}
	return domainauth.Identity{}, errors.New("bearer authentication is not enabled")
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, sessionID)
	}
	return nil
}

// sessionsFor returns a getSessionFunc that knows the given session id to user id pairs.
func sessionsFor(sessions map[string]string) func(context.Context, string) (*domainauth.Session, error) {
	return func(_ context.Context, id string) (*domainauth.Session, error) {
		userID, ok := sessions[id]
		if !ok {
			return nil, errors.New("session not found")
		}
		return &domainauth.Session{ID: id, UserID: userID, Email: userID + "@example.com"}, nil
	}
}

func findCookie(t *testing.T, cookies []*http.Cookie, name string) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestAuthHandlers_SignIn_BeginsLogin(t *testing.T) {
	var gotRedirect string
	svc := &mockAuthService{
		beginLoginFunc: func(_ context.Context, redirectURL string) (*service.BeginLoginResult, error) {
			gotRedirect = redirectURL
			return &service.BeginLoginResult{AuthURL: "https://idp.example.com/authorize", State: "s1", Nonce: "n1"}, nil
		},
	}
	h := &AuthHandlers{Svc: svc}

	req := httptest.NewRequest(http.MethodGet, "/auth/sign-in?redirect_uri=%2Fadmin%2Fdashboard%3Ftab%3Dpunches", nil)
	w := httptest.NewRecorder()
	h.SignIn(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://idp.example.com/authorize", w.Header().Get("Location"))
	assert.Equal(t, "/admin/dashboard?tab=punches", gotRedirect)

	cookies := w.Result().Cookies()
	assert.Equal(t, "s1", findCookie(t, cookies, stateCookieName).Value)
	assert.Equal(t, "n1", findCookie(t, cookies, nonceCookieName).Value)
	redirect := findCookie(t, cookies, redirectCookieName)
	assert.Equal(t, url.QueryEscape("/admin/dashboard?tab=punches"), redirect.Value)
	assert.True(t, redirect.HttpOnly)
	assert.Equal(t, oauthCookieMaxAge, redirect.MaxAge)
}

func TestAuthHandlers_SignIn_RejectsOffsiteRedirect(t *testing.T) {
	var gotRedirect string
	svc := &mockAuthService{
		beginLoginFunc: func(_ context.Context, redirectURL string) (*service.BeginLoginResult, error) {
			gotRedirect = redirectURL
			return &service.BeginLoginResult{AuthURL: "https://idp.example.com/authorize", State: "s", Nonce: "n"}, nil
		},
	}
	h := &AuthHandlers{Svc: svc}

	req := httptest.NewRequest(http.MethodGet, "/auth/sign-in?redirect_uri=https://evil.example.com/", nil)
	h.SignIn(httptest.NewRecorder(), req)

	assert.Equal(t, "/", gotRedirect)
}

func TestAuthHandlers_SignIn_BeginError(t *testing.T) {
	svc := &mockAuthService{
		beginLoginFunc: func(context.Context, string) (*service.BeginLoginResult, error) {
			return nil, errors.New("idp down")
		},
	}
	h := &AuthHandlers{Svc: svc}

	w := httptest.NewRecorder()
	h.SignIn(w, httptest.NewRequest(http.MethodGet, "/auth/sign-in", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "idp down")
}

func TestAuthHandlers_SignIn_AlreadySignedIn(t *testing.T) {
	identity := domainauth.Identity{UserID: "U1", Email: "u1@example.com"}

	t.Run("served by upstream", func(t *testing.T) {
		svc := &mockAuthService{}
		upstream := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		h := &AuthHandlers{Svc: svc, Upstream: upstream}

		req := httptest.NewRequest(http.MethodGet, "/auth/sign-in", nil)
		req = req.WithContext(SetIdentityInContext(req.Context(), identity))
		w := httptest.NewRecorder()
		h.SignIn(w, req)

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Zero(t, svc.beginCalls)
	})

	t.Run("json without upstream", func(t *testing.T) {
		svc := &mockAuthService{}
		h := &AuthHandlers{Svc: svc}

		req := httptest.NewRequest(http.MethodGet, "/auth/sign-in", nil)
		req = req.WithContext(SetIdentityInContext(req.Context(), identity))
		w := httptest.NewRecorder()
		h.SignIn(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, svc.beginCalls)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["authenticated"])
		assert.NotContains(t, body, "role_assigned")
		assert.NotContains(t, body, "message")
	})
}

func TestAuthHandlers_SignUpAndResetPassword(t *testing.T) {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	tests := []struct {
		name     string
		handlers *AuthHandlers
		call     func(h *AuthHandlers) http.HandlerFunc
		status   int
		location string
	}{
		{
			name:     "sign-up redirects to idp",
			handlers: &AuthHandlers{SignUpURL: "https://idp.example.com/register", Upstream: upstream},
			call:     func(h *AuthHandlers) http.HandlerFunc { return h.SignUp },
			status:   http.StatusFound,
			location: "https://idp.example.com/register",
		},
		{
			name:     "reset-password redirects to idp",
			handlers: &AuthHandlers{ResetPasswordURL: "https://idp.example.com/reset"},
			call:     func(h *AuthHandlers) http.HandlerFunc { return h.ResetPassword },
			status:   http.StatusFound,
			location: "https://idp.example.com/reset",
		},
		{
			name:     "sign-up falls back to upstream",
			handlers: &AuthHandlers{Upstream: upstream},
			call:     func(h *AuthHandlers) http.HandlerFunc { return h.SignUp },
			status:   http.StatusAccepted,
		},
		{
			name:     "reset-password without target",
			handlers: &AuthHandlers{},
			call:     func(h *AuthHandlers) http.HandlerFunc { return h.ResetPassword },
			status:   http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.call(tt.handlers)(w, httptest.NewRequest(http.MethodGet, "/auth/sign-up", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}

func TestAuthHandlers_Callback_Success(t *testing.T) {
	var gotInput service.CompleteLoginInput
	svc := &mockAuthService{
		completeLoginFunc: func(_ context.Context, in service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
			gotInput = in
			return &service.CompleteLoginResult{Session: domainauth.Session{
				ID:        "session-123",
				UserID:    "U1",
				ExpiresAt: time.Now().Add(time.Hour),
			}}, nil
		},
	}
	h := &AuthHandlers{Svc: svc}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "s1"})
	req.AddCookie(&http.Cookie{Name: nonceCookieName, Value: "n1"})
	req.AddCookie(&http.Cookie{Name: redirectCookieName, Value: url.QueryEscape("/completion/punches?page=2")})
	w := httptest.NewRecorder()
	h.Callback(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/completion/punches?page=2", w.Header().Get("Location"))
	assert.Equal(t, service.CompleteLoginInput{Code: "abc", State: "s1", Nonce: "n1"}, gotInput)

	cookies := w.Result().Cookies()
	session := findCookie(t, cookies, SessionCookieName)
	assert.Equal(t, "session-123", session.Value)
	assert.Positive(t, session.MaxAge)
	assert.Equal(t, -1, findCookie(t, cookies, stateCookieName).MaxAge)
	assert.Equal(t, -1, findCookie(t, cookies, redirectCookieName).MaxAge)
}

func TestAuthHandlers_Callback_DefaultsToRoot(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{}}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "s1"})
	req.AddCookie(&http.Cookie{Name: nonceCookieName, Value: "n1"})
	w := httptest.NewRecorder()
	h.Callback(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestAuthHandlers_Callback_Errors(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		cookies []*http.Cookie
		svc     *mockAuthService
		status  int
		errCode string
	}{
		{
			name:    "idp error",
			target:  "/auth/callback?error=access_denied&error_description=nope",
			status:  http.StatusUnauthorized,
			errCode: "login_denied",
		},
		{
			name:    "missing code",
			target:  "/auth/callback?state=s1",
			status:  http.StatusBadRequest,
			errCode: "missing_code",
		},
		{
			name:    "missing state",
			target:  "/auth/callback?code=abc",
			status:  http.StatusBadRequest,
			errCode: "missing_state",
		},
		{
			name:    "state mismatch",
			target:  "/auth/callback?code=abc&state=s1",
			cookies: []*http.Cookie{{Name: stateCookieName, Value: "other"}},
			status:  http.StatusBadRequest,
			errCode: "invalid_state",
		},
		{
			name:    "missing nonce",
			target:  "/auth/callback?code=abc&state=s1",
			cookies: []*http.Cookie{{Name: stateCookieName, Value: "s1"}},
			status:  http.StatusBadRequest,
			errCode: "missing_nonce",
		},
		{
			name:   "exchange failure",
			target: "/auth/callback?code=abc&state=s1",
			cookies: []*http.Cookie{
				{Name: stateCookieName, Value: "s1"},
				{Name: nonceCookieName, Value: "n1"},
			},
			svc: &mockAuthService{
				completeLoginFunc: func(context.Context, service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
					return nil, errors.New("exchange failed")
				},
			},
			status:  http.StatusInternalServerError,
			errCode: "login_completion_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := tt.svc
			if svc == nil {
				svc = &mockAuthService{}
			}
			h := &AuthHandlers{Svc: svc}

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for _, c := range tt.cookies {
				req.AddCookie(c)
			}
			w := httptest.NewRecorder()
			h.Callback(w, req)

			require.Equal(t, tt.status, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.errCode, body["error"])
		})
	}
}

func TestAuthHandlers_SignOut(t *testing.T) {
	var loggedOut string
	svc := &mockAuthService{
		logoutFunc: func(_ context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}

	t.Run("redirects to idp logout", func(t *testing.T) {
		h := &AuthHandlers{Svc: svc, LogoutURL: "https://idp.example.com/logout"}
		req := httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "session-123"})
		w := httptest.NewRecorder()
		h.SignOut(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "https://idp.example.com/logout", w.Header().Get("Location"))
		assert.Equal(t, "session-123", loggedOut)
		assert.Equal(t, -1, findCookie(t, w.Result().Cookies(), SessionCookieName).MaxAge)
	})

	t.Run("json clients", func(t *testing.T) {
		h := &AuthHandlers{Svc: svc}
		req := httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		h.SignOut(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "/", body["redirect_to"])
	})

	t.Run("logout failure still clears cookie", func(t *testing.T) {
		failing := &mockAuthService{
			logoutFunc: func(context.Context, string) error { return errors.New("redis down") },
		}
		h := &AuthHandlers{Svc: failing}
		req := httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "session-123"})
		w := httptest.NewRecorder()
		h.SignOut(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Equal(t, -1, findCookie(t, w.Result().Cookies(), SessionCookieName).MaxAge)
	})
}

func TestAuthHandlers_Status(t *testing.T) {
	svc := &mockAuthService{getSessionFunc: sessionsFor(map[string]string{"session-123": "U1"})}
	h := &AuthHandlers{Svc: svc}

	tests := []struct {
		name          string
		cookie        string
		authenticated bool
	}{
		{name: "no cookie"},
		{name: "unknown session", cookie: "stale"},
		{name: "valid session", cookie: "session-123", authenticated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			h.Status(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.authenticated, body["authenticated"])
			if tt.authenticated {
				user, ok := body["user"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "U1", user["id"])
			}
		})
	}
}

func TestSafeRedirectPath(t *testing.T) {
	tests := map[string]string{
		"":                          "/",
		"/admin/dashboard":          "/admin/dashboard",
		"/completion?page=2":        "/completion?page=2",
		"//evil.example.com":        "/",
		"/\\evil.example.com":       "/",
		"https://evil.example.com/": "/",
		"javascript:alert(1)":       "/",
		"relative/path":             "/",
		"/admin/dashboard#projects": "/admin/dashboard#projects",
	}

	for in, want := range tests {
		t.Run(strings.ReplaceAll(in, "/", "_"), func(t *testing.T) {
			assert.Equal(t, want, safeRedirectPath(in))
		})
	}
}

func TestIsSecureRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, isSecureRequest(req))

	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	assert.True(t, isSecureRequest(req))
}
