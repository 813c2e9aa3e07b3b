package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/punchlist-gateway/config"
	"github.com/target/punchlist-gateway/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		slog.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger, logCloser := bootstrap.InitLogger(cfg.Observability.Log)
	defer func() {
		if cerr := logCloser.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "close log file: %v\n", cerr)
		}
	}()

	logStartupInfo(ctx, logger, &cfg)

	if err = bootstrap.ValidateConfig(&cfg); err != nil {
		return err
	}

	infra, err := bootstrap.ConnectInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := infra.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close infrastructure failed", "error", cerr)
		}
	}()

	if infra.DB != nil && cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, infra.DB, logger); err != nil {
			return err
		}
	} else if infra.DB != nil {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	gateway, err := bootstrap.NewGateway(ctx, &cfg, infra, logger)
	if err != nil {
		return err
	}
	return gateway.Run(ctx)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	attrs := []any{
		"addr", cfg.HTTP.Addr,
		"auth_mode", cfg.Auth.Mode,
		"role_store", cfg.Roles.Store,
		"role_lookup_timeout", cfg.Roles.LookupTimeout,
		"upstream", cfg.HTTP.UpstreamURL,
		"dev", cfg.IsDev,
	}
	if cfg.UsesPostgres() {
		attrs = append(attrs,
			"db_host", cfg.Postgres.Host,
			"db_port", cfg.Postgres.Port,
			"db_name", cfg.Postgres.Name,
		)
	}
	logger.InfoContext(ctx, "starting punch-list gateway", attrs...)
}
