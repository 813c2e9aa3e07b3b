package service

import (
	"context"
	"log/slog"

	"github.com/target/punchlist-gateway/internal/domain/access"
	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
)

// RoutePolicyOptions groups dependencies for RoutePolicy.
type RoutePolicyOptions struct {
	Roles   RoleLookup
	Logger  *slog.Logger
	Metrics AccessMetrics
}

// RoutePolicy decides, per request, whether to let it through or where to redirect it.
// It holds no per-request state and is safe for concurrent use.
type RoutePolicy struct {
	roles   RoleLookup
	logger  *slog.Logger
	metrics AccessMetrics
}

// RouteRequest is the input to a policy decision.
type RouteRequest struct {
	// Path is the decoded request path used for classification.
	Path string
	// RequestURI is the path plus query as requested; it becomes the post-login return target.
	RequestURI string
	// UserID is the authenticated identity, empty when there is none.
	UserID string
}

// NewRoutePolicy constructs a RoutePolicy.
func NewRoutePolicy(opts RoutePolicyOptions) *RoutePolicy {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics AccessMetrics = noopAccessMetrics{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}
	return &RoutePolicy{
		roles:   opts.Roles,
		logger:  logger.With("component", "route_policy"),
		metrics: metrics,
	}
}

// Decide evaluates req. Checks run in a fixed order and the first terminal one wins:
// public route, missing identity, root, admin section, completion section, pass-through.
// At most one role lookup is made.
func (p *RoutePolicy) Decide(ctx context.Context, req RouteRequest) access.Decision {
	d := p.decide(ctx, req)
	p.logger.DebugContext(ctx, "route decision",
		"path", req.Path,
		"user_id", req.UserID,
		"state", d.State,
		"outcome", d.Outcome,
		"location", d.Location,
	)
	p.metrics.RecordDecision(ctx, d)
	return d
}

func (p *RoutePolicy) decide(ctx context.Context, req RouteRequest) access.Decision {
	class := access.Classify(req.Path)

	if class == access.ClassPublic {
		return access.Allow(access.StatePublicRoute)
	}

	if req.UserID == "" {
		returnTo := req.RequestURI
		if returnTo == "" {
			returnTo = req.Path
		}
		return access.Redirect(access.StateUnauthenticated, access.SignInURL(returnTo))
	}

	if access.IsRoot(req.Path) {
		switch p.roles.Resolve(ctx, req.UserID) {
		case domainauth.RoleAdmin:
			return access.Redirect(access.StateAuthenticatedRoot, access.AdminDashboardPath)
		case domainauth.RoleCompletion:
			return access.Redirect(access.StateAuthenticatedRoot, access.CompletionRootPath)
		default:
			return access.Redirect(access.StateAuthenticatedRoot, access.SignInPath)
		}
	}

	switch class {
	case access.ClassAdmin:
		switch p.roles.Resolve(ctx, req.UserID) {
		case domainauth.RoleAdmin:
			return access.Allow(access.StatePassThrough)
		case domainauth.RoleCompletion:
			return access.Redirect(access.StateAdminGuard, access.CompletionRootPath)
		default:
			return access.Redirect(access.StateAdminGuard, access.RootPath)
		}
	case access.ClassCompletion:
		switch p.roles.Resolve(ctx, req.UserID) {
		case domainauth.RoleCompletion:
			return access.Allow(access.StatePassThrough)
		case domainauth.RoleAdmin:
			return access.Redirect(access.StateCompletionGuard, access.AdminDashboardPath)
		default:
			return access.Redirect(access.StateCompletionGuard, access.RootPath)
		}
	}

	return access.Allow(access.StatePassThrough)
}
