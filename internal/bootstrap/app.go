package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/redis/go-redis/v9"
	"github.com/target/punchlist-gateway/config"
	httpx "github.com/target/punchlist-gateway/internal/http"
	"github.com/target/punchlist-gateway/internal/service"
)

// Infrastructure holds the external connections the gateway owns.
type Infrastructure struct {
	DB    *sql.DB // nil unless the postgres role store is used
	Redis redis.UniversalClient
}

// ConnectInfrastructure opens the connections cfg needs.
func ConnectInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{}

	if cfg.UsesPostgres() {
		db, err := ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		infra.DB = db
	}

	client, err := ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("connect redis: %w", err), infra.Close())
	}
	infra.Redis = client
	return infra, nil
}

// Close releases every open connection.
func (i *Infrastructure) Close() error {
	var errs []error
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ReadinessChecks returns one check per open connection.
func (i *Infrastructure) ReadinessChecks() map[string]httpx.ReadinessCheck {
	checks := map[string]httpx.ReadinessCheck{}
	if i.DB != nil {
		checks["postgres"] = i.DB.PingContext
	}
	if i.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return i.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Gateway is a fully wired gateway ready to serve.
type Gateway struct {
	Config        *config.AppConfig
	Infra         *Infrastructure
	Observability *ObservabilityContainer
	Policy        *service.RoutePolicy
	Resolver      *service.RoleResolver
	Auth          AuthComponents

	handlerCfg HTTPHandlerConfig
	logger     *slog.Logger
}

// NewGateway wires the gateway from cfg over already connected infrastructure.
func NewGateway(ctx context.Context, cfg *config.AppConfig, infra *Infrastructure, logger *slog.Logger) (*Gateway, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	obs, err := BuildObservability(ctx, cfg.Observability, logger)
	if err != nil {
		return nil, err
	}

	store, err := BuildRoleStore(RoleStoreConfig{Roles: cfg.Roles, DB: infra.DB})
	if err != nil {
		return nil, errors.Join(err, obs.Shutdown(ctx))
	}

	policy, resolver := BuildRoutePolicy(PolicyDeps{
		Store:   store,
		Roles:   cfg.Roles,
		Metrics: obs.Recorder,
		Logger:  logger,
	})

	auth, err := BuildAuthService(ctx, AuthConfig{Auth: cfg.Auth, RedisClient: infra.Redis, Logger: logger})
	if err != nil {
		return nil, errors.Join(err, obs.Shutdown(ctx))
	}

	return &Gateway{
		Config:        cfg,
		Infra:         infra,
		Observability: obs,
		Policy:        policy,
		Resolver:      resolver,
		Auth:          auth,
		handlerCfg: HTTPHandlerConfig{
			HTTP:            cfg.HTTP,
			Auth:            cfg.Auth,
			AuthComponents:  auth,
			Policy:          policy,
			Observability:   obs,
			ReadinessChecks: infra.ReadinessChecks(),
			Logger:          logger,
		},
		logger: logger,
	}, nil
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	handler, err := BuildHTTPHandler(g.handlerCfg)
	if err != nil {
		return err
	}

	server := NewServer(g.Config.HTTP, handler)
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Addr, err)
	}

	runErr := ServeHTTP(ctx, server, ln, g.Config.HTTP.ShutdownTimeout, g.logger)
	if shutdownErr := g.Observability.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
		runErr = errors.Join(runErr, shutdownErr)
	}
	return runErr
}
