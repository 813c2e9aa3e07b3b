package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"github.com/target/punchlist-gateway/internal/bootstrap"
	apperrors "github.com/target/punchlist-gateway/internal/errors"
	"github.com/target/punchlist-gateway/internal/service"
)

var (
	explainUser string

	resolveRoleCmd = &cobra.Command{
		Use:           "resolve-role <user-id>",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "This command resolves a user's role the way the gateway does.",
		Long: `
Usage: punchlist-admin resolve-role <user-id>

  Looks the user up through the configured role store (ROLE_STORE) with the
  gateway's lookup timeout and prints the resolved role. Lookup failures
  resolve to "unknown", exactly as they do for live requests; check the log
  output for the cause.

      $ punchlist-admin resolve-role 0b9c...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRoutePolicy(cmd.Context(), func(_ *service.RoutePolicy, resolver *service.RoleResolver) error {
				role := resolver.Resolve(cmd.Context(), args[0])
				fmt.Fprintln(cmd.OutOrStdout(), role)
				return nil
			})
		},
	}

	explainCmd = &cobra.Command{
		Use:           "explain <path> [--user <user-id>]",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "This command shows the gateway's decision for a request.",
		Long: `
Usage: punchlist-admin explain <path> [options]

  Runs the route policy for a request to <path>, optionally as an
  authenticated user, and prints which check decided it and where the
  request would be redirected.

  Anonymous request:

      $ punchlist-admin explain '/projects/12?tab=systems'

  Request by a signed-in user:

      $ punchlist-admin explain /admin/dashboard --user 0b9c...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseRouteRequest(args[0], explainUser)
			if err != nil {
				return err
			}
			return withRoutePolicy(cmd.Context(), func(policy *service.RoutePolicy, _ *service.RoleResolver) error {
				return explainDecision(cmd.Context(), policy, cmd.OutOrStdout(), req)
			})
		},
	}
)

func init() {
	explainCmd.Flags().StringVar(&explainUser, "user", "", "Authenticated user id; omit for an anonymous request")
}

func withRoutePolicy(ctx context.Context, fn func(*service.RoutePolicy, *service.RoleResolver) error) error {
	var db *sql.DB
	if appConfig.UsesPostgres() {
		var err error
		if db, err = openDB(ctx); err != nil {
			return err
		}
		defer closeDB(db)
	}

	store, err := bootstrap.BuildRoleStore(bootstrap.RoleStoreConfig{Roles: appConfig.Roles, DB: db})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "build role store")
	}
	policy, resolver := bootstrap.BuildRoutePolicy(bootstrap.PolicyDeps{
		Store:  store,
		Roles:  appConfig.Roles,
		Logger: logger,
	})
	return fn(policy, resolver)
}

func parseRouteRequest(rawPath, userID string) (service.RouteRequest, error) {
	if !strings.HasPrefix(rawPath, "/") {
		return service.RouteRequest{}, apperrors.ValidationField("path", "path must start with /")
	}
	u, err := url.ParseRequestURI(rawPath)
	if err != nil {
		return service.RouteRequest{}, apperrors.ValidationField("path", fmt.Sprintf("invalid path: %v", err))
	}
	return service.RouteRequest{
		Path:       u.Path,
		RequestURI: u.RequestURI(),
		UserID:     strings.TrimSpace(userID),
	}, nil
}

func explainDecision(ctx context.Context, policy *service.RoutePolicy, out io.Writer, req service.RouteRequest) error {
	d := policy.Decide(ctx, req)
	fmt.Fprintf(out, "state:    %s\n", d.State)
	fmt.Fprintf(out, "outcome:  %s\n", d.Outcome)
	if !d.Allowed() {
		fmt.Fprintf(out, "location: %s\n", d.Location)
	}
	return nil
}
