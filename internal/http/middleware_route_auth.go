package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/target/punchlist-gateway/internal/domain/access"
	"github.com/target/punchlist-gateway/internal/service"
)

// AuthenticatedUserHeader tells the dashboard which identity the gateway authenticated.
// Inbound copies are always stripped.
const AuthenticatedUserHeader = "X-Authenticated-User"

// RouteDecider evaluates the route policy for one request.
type RouteDecider interface {
	Decide(ctx context.Context, req service.RouteRequest) access.Decision
}

// RouteAuthOptions groups dependencies for RouteAuthorization.
type RouteAuthOptions struct {
	Policy   RouteDecider
	Identity IdentitySource
	Logger   *slog.Logger
}

// RouteAuthorization runs the route policy before every non-asset request.
// Redirect decisions end the request with 307; allowed requests continue with
// the identity in context and in the X-Authenticated-User header. It never
// writes an error response of its own.
func RouteAuthorization(opts RouteAuthOptions) Middleware {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "route_authorization")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(AuthenticatedUserHeader)

			if access.IsAsset(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			identity, authenticated := identityFromRequest(r, opts.Identity, logger)
			decision := opts.Policy.Decide(r.Context(), service.RouteRequest{
				Path:       r.URL.Path,
				RequestURI: r.URL.RequestURI(),
				UserID:     identity.UserID,
			})

			if !decision.Allowed() {
				http.Redirect(w, r, decision.Location, http.StatusTemporaryRedirect)
				return
			}

			if authenticated {
				r = r.WithContext(SetIdentityInContext(r.Context(), identity))
				r.Header.Set(AuthenticatedUserHeader, identity.UserID)
			}
			next.ServeHTTP(w, r)
		})
	}
}
