package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/target/punchlist-gateway/internal/bootstrap"
	"github.com/target/punchlist-gateway/internal/migrate"
)

const defaultMigrationTimeout = 5 * time.Minute

var (
	migrateTimeout time.Duration
	migrateList    bool

	migrateCmd = &cobra.Command{
		Use:           "migrate",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "This command applies the users schema migrations.",
		Long: `
Usage: punchlist-admin migrate [options]

  Applies every embedded migration that has not run yet. Running it again
  is a no-op.

  Apply migrations with a shorter deadline:

      $ punchlist-admin migrate --timeout=30s

  List the embedded migration versions without connecting:

      $ punchlist-admin migrate --list
`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}
)

func init() {
	migrateCmd.Flags().DurationVar(&migrateTimeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for migrations to complete")
	migrateCmd.Flags().BoolVar(&migrateList, "list", false, "Print the embedded migration versions and exit")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if migrateList {
		versions, err := migrate.Versions()
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Fprintln(out, v)
		}
		return nil
	}
	if migrateTimeout <= 0 {
		return errors.New("--timeout must be greater than zero")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancel()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := bootstrap.RunMigrations(ctx, db, logger); err != nil {
		return err
	}
	fmt.Fprintln(out, "Migrations applied.")
	return nil
}
