package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/target/punchlist-gateway/internal/data"
	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
	"github.com/target/punchlist-gateway/internal/domain/model"
	apperrors "github.com/target/punchlist-gateway/internal/errors"
)

// userStore is the part of data.UserRepo the user commands need.
type userStore interface {
	GetByUUID(ctx context.Context, uuid string) (*model.User, error)
	List(ctx context.Context, opts data.UserListOptions) ([]model.User, error)
	Upsert(ctx context.Context, req *model.UpsertUserRequest) (*model.User, error)
	SetRole(ctx context.Context, uuid string, role *domainauth.Role) (domainauth.Role, error)
	Delete(ctx context.Context, uuid string) error
}

var _ userStore = (*data.UserRepo)(nil)

const roleNone = "none"

var (
	listLimit  int
	listOffset int
	listRole   string
	listFormat string

	getFormat string

	upsertUUID    string
	upsertEmail   string
	upsertName    string
	upsertSurname string
	upsertRole    string

	usersCmd = &cobra.Command{
		Use:   "users",
		Short: "This command groups subcommands for managing dashboard users and their roles.",
		Long: `
Usage: punchlist-admin users <subcommand> [options]

  This command groups subcommands for managing rows of the users table. A
  user's role decides which area of the dashboard the gateway lets them into:
  "admin" for /admin, "completion" for /completion. Users without a role can
  sign in but are sent back to the sign-in page from the root.

  List users waiting for a role:

      $ punchlist-admin users list --role=none

  Assign a role:

      $ punchlist-admin users set-role <uuid> completion
`,
	}

	usersListCmd = &cobra.Command{
		Use:           "list",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "This command lists users ordered by email.",
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseRoleFilter(listRole)
			if err != nil {
				return err
			}
			return withUserStore(cmd.Context(), func(store userStore) error {
				return listUsers(cmd.Context(), store, cmd.OutOrStdout(), data.UserListOptions{
					Limit:  listLimit,
					Offset: listOffset,
					Role:   filter,
				}, listFormat)
			})
		},
	}

	usersGetCmd = &cobra.Command{
		Use:           "get <uuid>",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "This command prints one user.",
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd.Context(), func(store userStore) error {
				return getUser(cmd.Context(), store, cmd.OutOrStdout(), args[0], getFormat)
			})
		},
	}

	usersSetRoleCmd = &cobra.Command{
		Use:           "set-role <uuid> <admin|completion|none>",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "This command assigns or clears a user's role.",
		Args:          cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd.Context(), func(store userStore) error {
				return setRole(cmd.Context(), store, cmd.OutOrStdout(), args[0], args[1])
			})
		},
	}

	usersUpsertCmd = &cobra.Command{
		Use:           "upsert",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "This command creates a user or refreshes its profile.",
		Long: `
Usage: punchlist-admin users upsert --uuid=<subject> --email=<email> [options]

  Creates the users row for an identity provider subject, or updates the
  profile fields of an existing one. The role is only changed when --role
  is given.

      $ punchlist-admin users upsert --uuid=auth0|42 --email=pm@example.com --role=admin
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := buildUpsertRequest(upsertUUID, upsertEmail, upsertName, upsertSurname, upsertRole)
			if err != nil {
				return err
			}
			return withUserStore(cmd.Context(), func(store userStore) error {
				return upsertUser(cmd.Context(), store, cmd.OutOrStdout(), req)
			})
		},
	}

	usersDeleteCmd = &cobra.Command{
		Use:           "delete <uuid>",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "This command removes a user.",
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd.Context(), func(store userStore) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s.\n", args[0])
				return nil
			})
		},
	}
)

func init() {
	usersListCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum number of users to return")
	usersListCmd.Flags().IntVar(&listOffset, "offset", 0, "Number of users to skip")
	usersListCmd.Flags().StringVar(&listRole, "role", "", "Only list users with this role (admin, completion or none)")
	usersListCmd.Flags().StringVar(&listFormat, "format", "table", "Output format (table or json)")

	usersGetCmd.Flags().StringVar(&getFormat, "format", "table", "Output format (table or json)")

	usersUpsertCmd.Flags().StringVar(&upsertUUID, "uuid", "", "Identity provider subject of the user")
	usersUpsertCmd.Flags().StringVar(&upsertEmail, "email", "", "Email address")
	usersUpsertCmd.Flags().StringVar(&upsertName, "name", "", "First name")
	usersUpsertCmd.Flags().StringVar(&upsertSurname, "surname", "", "Last name")
	usersUpsertCmd.Flags().StringVar(&upsertRole, "role", "", "Role to assign (admin or completion); omit to keep the current role")
	_ = usersUpsertCmd.MarkFlagRequired("uuid")
	_ = usersUpsertCmd.MarkFlagRequired("email")

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersGetCmd)
	usersCmd.AddCommand(usersSetRoleCmd)
	usersCmd.AddCommand(usersUpsertCmd)
	usersCmd.AddCommand(usersDeleteCmd)
}

func withUserStore(ctx context.Context, fn func(userStore) error) error {
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)
	return fn(data.NewUserRepo(db))
}

// parseAssignableRole maps "admin", "completion" and "none" to a role
// pointer; "none" is nil and clears the assignment.
func parseAssignableRole(raw string) (*domainauth.Role, error) {
	if strings.EqualFold(strings.TrimSpace(raw), roleNone) {
		return nil, nil
	}
	role, ok := domainauth.ParseRole(raw)
	if !ok || !role.Assignable() {
		return nil, apperrors.ValidationField("role", fmt.Sprintf("invalid role %q (valid options: admin, completion, none)", raw))
	}
	return &role, nil
}

// parseRoleFilter is parseAssignableRole for the list filter, where "none"
// selects users without a role and "" disables filtering.
func parseRoleFilter(raw string) (*domainauth.Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case roleNone:
		unknown := domainauth.RoleUnknown
		return &unknown, nil
	}
	return parseAssignableRole(raw)
}

func buildUpsertRequest(uuid, email, name, surname, role string) (*model.UpsertUserRequest, error) {
	req := &model.UpsertUserRequest{UUID: uuid, Email: email, Name: name, Surname: surname}
	if strings.TrimSpace(role) != "" {
		parsed, err := parseAssignableRole(role)
		if err != nil {
			return nil, err
		}
		if parsed == nil {
			return nil, apperrors.ValidationField("role", "upsert cannot clear a role; use set-role <uuid> none")
		}
		req.Role = parsed
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	return req, nil
}

func listUsers(ctx context.Context, store userStore, out io.Writer, opts data.UserListOptions, format string) error {
	users, err := store.List(ctx, opts)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(out, users)
	}
	if len(users) == 0 {
		fmt.Fprintln(out, "No users found.")
		return nil
	}
	return writeUserTable(out, users)
}

func getUser(ctx context.Context, store userStore, out io.Writer, uuid, format string) error {
	user, err := store.GetByUUID(ctx, uuid)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(out, user)
	}
	return writeUserTable(out, []model.User{*user})
}

func setRole(ctx context.Context, store userStore, out io.Writer, uuid, rawRole string) error {
	role, err := parseAssignableRole(rawRole)
	if err != nil {
		return err
	}
	previous, err := store.SetRole(ctx, uuid, role)
	if err != nil {
		return err
	}
	next := domainauth.RoleUnknown
	if role != nil {
		next = *role
	}
	fmt.Fprintf(out, "Role for %s: %s -> %s\n", uuid, displayRole(previous), displayRole(next))
	return nil
}

func upsertUser(ctx context.Context, store userStore, out io.Writer, req *model.UpsertUserRequest) error {
	user, err := store.Upsert(ctx, req)
	if err != nil {
		return err
	}
	return writeUserTable(out, []model.User{*user})
}

func writeUserTable(out io.Writer, users []model.User) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tEMAIL\tNAME\tROLE\tUPDATED")
	for _, u := range users {
		name := strings.TrimSpace(u.Name + " " + u.Surname)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			u.UUID, u.Email, name, displayRole(u.EffectiveRole()), u.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayRole(r domainauth.Role) string {
	if r == domainauth.RoleUnknown || r == "" {
		return roleNone
	}
	return string(r)
}
