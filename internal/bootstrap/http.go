package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/target/punchlist-gateway/config"
	httpx "github.com/target/punchlist-gateway/internal/http"
	"golang.org/x/sync/errgroup"
)

// HTTPHandlerConfig contains everything the gateway handler is built from.
type HTTPHandlerConfig struct {
	HTTP            config.HTTPConfig
	Auth            config.AuthConfig
	AuthComponents  AuthComponents
	Policy          httpx.RouteDecider
	Observability   *ObservabilityContainer
	ReadinessChecks map[string]httpx.ReadinessCheck
	Logger          *slog.Logger
}

// BuildHTTPHandler assembles the router, including the upstream proxy when configured.
func BuildHTTPHandler(cfg HTTPHandlerConfig) (http.Handler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var upstream http.Handler
	if cfg.HTTP.UpstreamURL != "" {
		proxy, err := httpx.NewUpstreamProxy(cfg.HTTP.UpstreamURL, logger)
		if err != nil {
			return nil, fmt.Errorf("create upstream proxy: %w", err)
		}
		upstream = proxy
	} else {
		logger.Warn("UPSTREAM_URL not set; allowed requests get a JSON landing response")
	}

	services := httpx.RouterServices{
		Auth:             cfg.AuthComponents.Service,
		Policy:           cfg.Policy,
		Upstream:         upstream,
		ReadinessChecks:  cfg.ReadinessChecks,
		CookieDomain:     cfg.HTTP.CookieDomain,
		SignUpURL:        cfg.Auth.OAuth.SignUpURL,
		ResetPasswordURL: cfg.Auth.OAuth.ResetPasswordURL,
		LogoutURL:        cfg.AuthComponents.LogoutURL,
		Logger:           logger,
	}
	if obs := cfg.Observability; obs != nil {
		if obs.Recorder != nil {
			services.Metrics = obs.Recorder
		}
		services.MetricsHandler = obs.MetricsHandler
		services.MetricsPath = obs.MetricsPath
	}

	return httpx.NewRouter(services), nil
}

// NewServer returns an http.Server for handler with the configured timeouts.
func NewServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeHTTP runs server on ln until ctx is cancelled, then shuts it down
// within shutdownTimeout. A serve failure cancels the shutdown waiter.
func ServeHTTP(
	ctx context.Context,
	server *http.Server,
	ln net.Listener,
	shutdownTimeout time.Duration,
	logger *slog.Logger,
) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}
