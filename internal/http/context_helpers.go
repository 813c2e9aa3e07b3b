package httpx

import (
	"context"

	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
)

type identityKey struct{}

type requestIDKey struct{}

// SetIdentityInContext returns a child context carrying the authenticated identity.
func SetIdentityInContext(ctx context.Context, id domainauth.Identity) context.Context {
	if id.UserID == "" {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity placed by RouteAuthorization, if any.
func IdentityFromContext(ctx context.Context) (domainauth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domainauth.Identity)
	return id, ok && id.UserID != ""
}

// SetRequestIDInContext stores the request correlation id.
func SetRequestIDInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request correlation id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
