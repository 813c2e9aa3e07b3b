package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
	obserrors "github.com/target/punchlist-gateway/internal/observability/errors"
	"github.com/target/punchlist-gateway/internal/ports"
)

// DefaultRoleLookupTimeout bounds a role read when no timeout is configured.
const DefaultRoleLookupTimeout = 2 * time.Second

// RoleLookup translates a user identity into a role.
type RoleLookup interface {
	Resolve(ctx context.Context, userID string) domainauth.Role
}

// RoleResolverOptions groups dependencies for RoleResolver.
type RoleResolverOptions struct {
	Store   ports.RoleStore
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics AccessMetrics
}

// RoleResolver reads a user's role from the role store. Every call performs
// exactly one read; nothing is cached and nothing is retried. Any failure
// resolves to RoleUnknown and is logged, never returned.
type RoleResolver struct {
	store   ports.RoleStore
	timeout time.Duration
	logger  *slog.Logger
	metrics AccessMetrics
}

var _ RoleLookup = (*RoleResolver)(nil)

// NewRoleResolver constructs a RoleResolver.
func NewRoleResolver(opts RoleResolverOptions) *RoleResolver {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRoleLookupTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics AccessMetrics = noopAccessMetrics{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}
	return &RoleResolver{
		store:   opts.Store,
		timeout: timeout,
		logger:  logger.With("component", "role_resolver"),
		metrics: metrics,
	}
}

// Resolve returns the role for userID, or RoleUnknown if it cannot be determined.
func (r *RoleResolver) Resolve(ctx context.Context, userID string) (role domainauth.Role) {
	if userID == "" {
		return domainauth.RoleUnknown
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(ctx, userID, LookupResultPanic, fmt.Errorf("role store panic: %v", rec), time.Since(start))
			role = domainauth.RoleUnknown
		}
	}()

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.store.LookupRole(lookupCtx, userID)
	elapsed := time.Since(start)
	if err != nil {
		r.fail(ctx, userID, classifyLookupError(ctx, lookupCtx, err), err, elapsed)
		return domainauth.RoleUnknown
	}

	if strings.TrimSpace(raw) == "" {
		r.logger.InfoContext(ctx, "user has no role assigned", "user_id", userID)
		r.metrics.RecordRoleLookup(ctx, LookupResultNoRole, elapsed)
		return domainauth.RoleUnknown
	}

	parsed, ok := domainauth.ParseRole(raw)
	if !ok {
		r.logger.WarnContext(ctx, "unrecognised role value",
			"user_id", userID,
			"value", raw,
		)
		r.metrics.RecordRoleLookup(ctx, LookupResultMalformed, elapsed)
		return domainauth.RoleUnknown
	}

	r.logger.DebugContext(ctx, "role resolved", "user_id", userID, "role", parsed, "duration", elapsed)
	r.metrics.RecordRoleLookup(ctx, LookupResultOK, elapsed)
	return parsed
}

func (r *RoleResolver) fail(ctx context.Context, userID, result string, err error, elapsed time.Duration) {
	level := slog.LevelWarn
	if result == LookupResultNotFound {
		level = slog.LevelInfo
	}
	r.logger.Log(ctx, level, "role lookup failed",
		"user_id", userID,
		"result", result,
		"error", err,
		"error_class", obserrors.Classify(err),
		"duration", elapsed,
	)
	r.metrics.RecordRoleLookup(ctx, result, elapsed)
}

func classifyLookupError(parent, lookupCtx context.Context, err error) string {
	switch {
	case errors.Is(err, ports.ErrRoleRecordNotFound):
		return LookupResultNotFound
	case parent.Err() != nil:
		return LookupResultCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
		return LookupResultTimeout
	default:
		return LookupResultError
	}
}
