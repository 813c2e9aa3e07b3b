package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/punchlist-gateway/config"
	"github.com/target/punchlist-gateway/internal/adapters/rolestore"
	"github.com/target/punchlist-gateway/internal/data"
	"github.com/target/punchlist-gateway/internal/ports"
	"github.com/target/punchlist-gateway/internal/service"
)

// RoleStoreConfig selects and configures the role store backend.
type RoleStoreConfig struct {
	Roles config.RolesConfig
	// DB is required for the postgres backend.
	DB *sql.DB
}

// BuildRoleStore returns the configured ports.RoleStore.
//
//nolint:ireturn // the backend is chosen at runtime.
func BuildRoleStore(cfg RoleStoreConfig) (ports.RoleStore, error) {
	switch cfg.Roles.Store {
	case config.RoleStorePostgres, "":
		if cfg.DB == nil {
			return nil, errors.New("postgres role store requires a database connection")
		}
		return data.NewUserRepo(cfg.DB), nil
	case config.RoleStoreHTTP:
		store, err := rolestore.NewHTTPStore(rolestore.HTTPStoreConfig{
			URLTemplate:    cfg.Roles.HTTP.URLTemplate,
			AuthHeader:     cfg.Roles.HTTP.AuthHeader,
			APIKey:         cfg.Roles.HTTP.APIKey,
			RoleExpression: cfg.Roles.HTTP.RoleExpression,
		})
		if err != nil {
			return nil, fmt.Errorf("create http role store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported role store %q", cfg.Roles.Store)
	}
}

// PolicyDeps groups what the route policy is built from.
type PolicyDeps struct {
	Store   ports.RoleStore
	Roles   config.RolesConfig
	Metrics service.AccessMetrics
	Logger  *slog.Logger
}

// BuildRoutePolicy wires the role resolver into the route policy.
func BuildRoutePolicy(deps PolicyDeps) (*service.RoutePolicy, *service.RoleResolver) {
	resolver := service.NewRoleResolver(service.RoleResolverOptions{
		Store:   deps.Store,
		Timeout: deps.Roles.LookupTimeout,
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
	})
	policy := service.NewRoutePolicy(service.RoutePolicyOptions{
		Roles:   resolver,
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
	})
	return policy, resolver
}
