package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/punchlist-gateway/internal/domain/access"
)

// Infrastructure paths served before the authorization middleware.
const (
	HealthzPath    = "/healthz"
	ReadyzPath     = "/readyz"
	CallbackPath   = "/auth/callback"
	SignOutPath    = "/auth/sign-out"
	AuthStatusPath = "/auth/status"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth   AuthServiceInterface
	Policy RouteDecider
	// Upstream is the dashboard; LandingHandler is used when nil.
	Upstream http.Handler
	// Metrics receives per-request observations. Optional.
	Metrics HTTPRecorder
	// MetricsHandler is mounted at MetricsPath when set.
	MetricsHandler  http.Handler
	MetricsPath     string
	ReadinessChecks map[string]ReadinessCheck

	CookieDomain     string
	SignUpURL        string
	ResetPasswordURL string
	LogoutURL        string
	Logger           *slog.Logger
}

// NewRouter builds the gateway handler. Infrastructure endpoints are matched
// first; every other request passes through RouteAuthorization before it
// reaches the sign-in handlers or the dashboard.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandlers := &AuthHandlers{
		Svc:              services.Auth,
		CookieDomain:     services.CookieDomain,
		SignUpURL:        services.SignUpURL,
		ResetPasswordURL: services.ResetPasswordURL,
		LogoutURL:        services.LogoutURL,
		Upstream:         services.Upstream,
		Logger:           logger,
	}

	dashboard := services.Upstream
	if dashboard == nil {
		dashboard = LandingHandler()
	}

	app := http.NewServeMux()
	app.HandleFunc("GET "+access.SignInPath, authHandlers.SignIn)
	app.HandleFunc("GET "+access.SignUpPath, authHandlers.SignUp)
	app.HandleFunc("GET "+access.ResetPasswordPath, authHandlers.ResetPassword)
	app.Handle("/", dashboard)

	guarded := RouteAuthorization(RouteAuthOptions{
		Policy:   services.Policy,
		Identity: services.Auth,
		Logger:   logger,
	})(app)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+HealthzPath, healthHandler)
	mux.HandleFunc("HEAD "+HealthzPath, healthHandler)
	mux.Handle("GET "+ReadyzPath, readyHandler(services.ReadinessChecks, logger))
	if services.MetricsHandler != nil && services.MetricsPath != "" {
		mux.Handle("GET "+services.MetricsPath, services.MetricsHandler)
	}
	mux.HandleFunc("GET "+CallbackPath, authHandlers.Callback)
	mux.HandleFunc("POST "+SignOutPath, authHandlers.SignOut)
	mux.HandleFunc("GET "+AuthStatusPath, authHandlers.Status)
	mux.Handle("/", guarded)

	return Chain(mux,
		RequestID(),
		Logging(logger),
		Metrics(services.Metrics),
		Recover(logger),
	)
}

// routeLabel is the low-cardinality route tag used for request metrics.
func routeLabel(path string) string {
	switch {
	case path == HealthzPath || path == ReadyzPath:
		return "health"
	case strings.HasPrefix(path, "/auth/") && access.Classify(path) != access.ClassPublic:
		return "auth"
	case access.IsAsset(path):
		return "asset"
	default:
		return access.Classify(path).String()
	}
}
