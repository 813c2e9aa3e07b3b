package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/punchlist-gateway/internal/domain/access"
	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
	mocks "github.com/target/punchlist-gateway/internal/mocks/auth"
)

// fixedRoles is a RoleLookup returning a fixed role and counting calls.
type fixedRoles struct {
	mu    sync.Mutex
	role  domainauth.Role
	calls int
}

func (f *fixedRoles) Resolve(_ context.Context, _ string) domainauth.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.role
}

func newPolicy(roles RoleLookup) (*RoutePolicy, *fakeAccessMetrics) {
	metrics := &fakeAccessMetrics{}
	logger, _ := newBufferLogger()
	return NewRoutePolicy(RoutePolicyOptions{Roles: roles, Logger: logger, Metrics: metrics}), metrics
}

func TestRoutePolicy_PublicPathsAlwaysAllowed(t *testing.T) {
	paths := []string{"/auth/sign-in", "/auth/sign-up", "/auth/reset-password", "/auth/sign-in/factor-two"}
	roles := []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleCompletion, domainauth.RoleUnknown}

	for _, p := range paths {
		for _, userID := range []string{"", "U1"} {
			for _, role := range roles {
				lookup := &fixedRoles{role: role}
				policy, _ := newPolicy(lookup)

				d := policy.Decide(context.Background(), RouteRequest{Path: p, RequestURI: p, UserID: userID})

				assert.True(t, d.Allowed(), "path=%s user=%q role=%s", p, userID, role)
				assert.Equal(t, access.StatePublicRoute, d.State)
				assert.Zero(t, lookup.calls, "public paths never look up roles")
			}
		}
	}
}

func TestRoutePolicy_UnauthenticatedRedirectsToSignIn(t *testing.T) {
	uris := []string{
		"/",
		"/admin",
		"/admin/dashboard",
		"/admin/dashboard/systems?project=7",
		"/completion",
		"/completion/punches/12",
		"/api/punches/stats",
		"/projects",
	}

	for _, uri := range uris {
		t.Run(uri, func(t *testing.T) {
			lookup := &fixedRoles{role: domainauth.RoleAdmin}
			policy, _ := newPolicy(lookup)
			u, err := url.ParseRequestURI(uri)
			require.NoError(t, err)

			d := policy.Decide(context.Background(), RouteRequest{Path: u.Path, RequestURI: uri})

			require.Equal(t, access.OutcomeRedirect, d.Outcome)
			assert.Equal(t, access.StateUnauthenticated, d.State)
			loc, err := url.Parse(d.Location)
			require.NoError(t, err)
			assert.Equal(t, access.SignInPath, loc.Path)
			assert.Equal(t, uri, loc.Query().Get(access.ReturnToQueryParam))
			assert.Zero(t, lookup.calls)
		})
	}
}

func TestRoutePolicy_UnauthenticatedFallsBackToPath(t *testing.T) {
	policy, _ := newPolicy(&fixedRoles{})

	d := policy.Decide(context.Background(), RouteRequest{Path: "/admin/dashboard"})

	assert.Equal(t, "/auth/sign-in?redirect_uri=%2Fadmin%2Fdashboard", d.Location)
}

func TestRoutePolicy_Matrix(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		role      domainauth.Role
		wantState access.State
		wantLoc   string // empty means allowed
	}{
		{"root admin", "/", domainauth.RoleAdmin, access.StateAuthenticatedRoot, "/admin/dashboard"},
		{"root completion", "/", domainauth.RoleCompletion, access.StateAuthenticatedRoot, "/completion"},
		{"root unknown", "/", domainauth.RoleUnknown, access.StateAuthenticatedRoot, "/auth/sign-in"},

		{"admin section admin", "/admin/dashboard", domainauth.RoleAdmin, access.StatePassThrough, ""},
		{"admin section completion", "/admin/dashboard", domainauth.RoleCompletion, access.StateAdminGuard, "/completion"},
		{"admin section unknown", "/admin/dashboard", domainauth.RoleUnknown, access.StateAdminGuard, "/"},
		{"admin bare prefix completion", "/admin", domainauth.RoleCompletion, access.StateAdminGuard, "/completion"},

		{"completion section completion", "/completion/punches", domainauth.RoleCompletion, access.StatePassThrough, ""},
		{"completion section admin", "/completion/punches", domainauth.RoleAdmin, access.StateCompletionGuard, "/admin/dashboard"},
		{"completion section unknown", "/completion", domainauth.RoleUnknown, access.StateCompletionGuard, "/"},

		{"other admin", "/projects/9", domainauth.RoleAdmin, access.StatePassThrough, ""},
		{"other unknown", "/api/users", domainauth.RoleUnknown, access.StatePassThrough, ""},
		{"lookalike prefix", "/administrator", domainauth.RoleUnknown, access.StatePassThrough, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fixedRoles{role: tt.role}
			policy, metrics := newPolicy(lookup)

			d := policy.Decide(context.Background(), RouteRequest{Path: tt.path, RequestURI: tt.path, UserID: "U1"})

			assert.Equal(t, tt.wantState, d.State)
			if tt.wantLoc == "" {
				assert.True(t, d.Allowed())
				assert.Empty(t, d.Location)
			} else {
				assert.Equal(t, access.OutcomeRedirect, d.Outcome)
				assert.Equal(t, tt.wantLoc, d.Location)
			}
			assert.LessOrEqual(t, lookup.calls, 1, "at most one role lookup per request")
			require.Len(t, metrics.decisions, 1)
			assert.Equal(t, d, metrics.decisions[0])
		})
	}
}

func TestRoutePolicy_LookupOnlyWhenNeeded(t *testing.T) {
	lookup := &fixedRoles{role: domainauth.RoleAdmin}
	policy, _ := newPolicy(lookup)

	policy.Decide(context.Background(), RouteRequest{Path: "/projects", UserID: "U1"})
	assert.Zero(t, lookup.calls)

	policy.Decide(context.Background(), RouteRequest{Path: "/admin/dashboard/systems", UserID: "U1"})
	assert.Equal(t, 1, lookup.calls)
}

// Scenarios run through the real resolver so that store failures are covered end to end.
func TestRoutePolicy_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		roles    map[string]string
		storeErr error
		path     string
		wantLoc  string
	}{
		{name: "unauthenticated admin dashboard", path: "/admin/dashboard", wantLoc: "/auth/sign-in?redirect_uri=%2Fadmin%2Fdashboard"},
		{name: "admin at root", userID: "U1", roles: map[string]string{"U1": "admin"}, path: "/", wantLoc: "/admin/dashboard"},
		{name: "completion in admin area", userID: "U1", roles: map[string]string{"U1": "completion"}, path: "/admin/dashboard/agents", wantLoc: "/completion"},
		{name: "lookup failure in admin area", userID: "U1", storeErr: errors.New("store unreachable"), path: "/admin/dashboard", wantLoc: "/"},
		{name: "admin in admin area", userID: "U1", roles: map[string]string{"U1": "admin"}, path: "/admin/dashboard/systems"},
		{name: "lookup failure at root", userID: "U1", storeErr: errors.New("store unreachable"), path: "/", wantLoc: "/auth/sign-in"},
		{name: "lookup failure in completion area", userID: "U1", storeErr: errors.New("store unreachable"), path: "/completion", wantLoc: "/"},
		{name: "missing record in completion area", userID: "U1", roles: map[string]string{}, path: "/completion", wantLoc: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewStaticRoleStore(tt.roles)
			store.Err = tt.storeErr
			logger, _ := newBufferLogger()
			resolver := NewRoleResolver(RoleResolverOptions{Store: store, Logger: logger})
			policy, _ := newPolicy(resolver)

			d := policy.Decide(context.Background(), RouteRequest{Path: tt.path, RequestURI: tt.path, UserID: tt.userID})

			if tt.wantLoc == "" {
				assert.True(t, d.Allowed())
			} else {
				assert.Equal(t, access.OutcomeRedirect, d.Outcome)
				assert.Equal(t, tt.wantLoc, d.Location)
			}
			assert.LessOrEqual(t, len(store.Calls()), 1)
		})
	}
}
