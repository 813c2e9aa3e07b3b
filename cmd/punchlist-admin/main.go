package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/target/punchlist-gateway/config"
	"github.com/target/punchlist-gateway/internal/bootstrap"
	apperrors "github.com/target/punchlist-gateway/internal/errors"
)

var (
	appConfig config.AppConfig
	logger    = slog.Default()

	rootCmd = &cobra.Command{
		Use:           "punchlist-admin",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Operator commands for the punch-list gateway.",
		Long: `
Usage: punchlist-admin <command> [options]

  Operator commands for the punch-list gateway. Configuration is read from
  the same environment variables (and optional .env file) as the gateway.

  Apply the users schema:

      $ punchlist-admin migrate

  Give a user access to the admin dashboard:

      $ punchlist-admin users set-role 0b9c... admin

  See where the gateway would send a user:

      $ punchlist-admin explain /admin/projects --user 0b9c...

  Exit status is 2 for invalid input, 3 when a user does not exist and
  4 when a backend is unavailable.
`,
		PersistentPreRunE: loadConfig,
	}
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(resolveRoleCmd)
	rootCmd.AddCommand(explainCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(apperrors.ExitCode(err)) //nolint:forbidigo // CLI must report failures to shell scripts
	}
}

func loadConfig(_ *cobra.Command, _ []string) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	// Commands log to stdout only; the gateway owns the rotating log file.
	cfg.Observability.Log.File = ""
	logger, _ = bootstrap.InitLogger(cfg.Observability.Log)
	appConfig = cfg
	return nil
}

// openDB connects to the users database. The caller closes it.
func openDB(ctx context.Context) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(ctx, appConfig.Postgres, logger)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "connect to users database")
	}
	return db, nil
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("close database failed", "error", err)
	}
}
