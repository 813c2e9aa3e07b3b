package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/punchlist-gateway/config"
	"github.com/target/punchlist-gateway/internal/adapters/devauth"
	"github.com/target/punchlist-gateway/internal/adapters/oidc"
	redisadapter "github.com/target/punchlist-gateway/internal/adapters/redis"
	"github.com/target/punchlist-gateway/internal/ports"
	"github.com/target/punchlist-gateway/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// AuthComponents is what the HTTP layer needs from authentication.
type AuthComponents struct {
	Service *service.AuthService
	// LogoutURL is the IdP end-session URL, empty in mock mode.
	LogoutURL string
}

// BuildAuthService creates an auth service for the configured auth mode.
// Sessions always live in Redis.
func BuildAuthService(ctx context.Context, cfg AuthConfig) (AuthComponents, error) {
	if cfg.RedisClient == nil {
		return AuthComponents{}, errors.New("auth requires a redis client for sessions")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessions := redisadapter.NewSessionStore(cfg.RedisClient, redisadapter.SessionStoreOptions{
		Prefix:      cfg.Auth.SessionKeyPrefix,
		FallbackTTL: cfg.Auth.SessionTTL,
	})

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		return buildDevAuthService(cfg, sessions, logger)
	case config.AuthModeOAuth:
		return buildOAuthService(ctx, cfg, sessions, logger)
	default:
		return AuthComponents{}, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func buildDevAuthService(cfg AuthConfig, sessions ports.SessionStore, logger *slog.Logger) (AuthComponents, error) {
	prov, err := devauth.NewProvider(devauth.Config{
		UserID:          cfg.Auth.DevAuth.UserID,
		Email:           cfg.Auth.DevAuth.Email,
		FirstName:       cfg.Auth.DevAuth.FirstName,
		LastName:        cfg.Auth.DevAuth.LastName,
		SessionDuration: cfg.Auth.SessionTTL,
	})
	if err != nil {
		return AuthComponents{}, fmt.Errorf("create dev auth provider: %w", err)
	}

	logger.Warn("dev auth enabled; every sign-in becomes the configured user", "user_id", cfg.Auth.DevAuth.UserID)
	return AuthComponents{
		Service: service.NewAuthService(service.AuthServiceOptions{
			Provider:   prov,
			Sessions:   sessions,
			SessionTTL: cfg.Auth.SessionTTL,
		}),
	}, nil
}

func buildOAuthService(
	ctx context.Context,
	cfg AuthConfig,
	sessions ports.SessionStore,
	logger *slog.Logger,
) (AuthComponents, error) {
	oauth := cfg.Auth.OAuth
	prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
		LogoutURL:    oauth.LogoutURL,
	})
	if err != nil {
		return AuthComponents{}, fmt.Errorf("create oidc provider: %w", err)
	}

	opts := service.AuthServiceOptions{
		Provider:   prov,
		Sessions:   sessions,
		SessionTTL: cfg.Auth.SessionTTL,
	}
	if oauth.AcceptBearer {
		opts.Verifier = prov.TokenVerifier()
	}

	logger.Info("oidc auth enabled", "discovery_url", oauth.DiscoveryURL, "accept_bearer", oauth.AcceptBearer)
	return AuthComponents{
		Service:   service.NewAuthService(opts),
		LogoutURL: prov.LogoutURL(),
	}, nil
}
