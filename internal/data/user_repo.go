package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/target/punchlist-gateway/internal/data/pgxutil"
	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
	"github.com/target/punchlist-gateway/internal/domain/model"
	apperrors "github.com/target/punchlist-gateway/internal/errors"
	"github.com/target/punchlist-gateway/internal/ports"
)

// ErrUserNotFound is returned when no users row matches the requested uuid.
var ErrUserNotFound error = apperrors.NotFoundf("user not found")

const (
	userColumns      = `uuid, name, surname, email, role, created_at, updated_at`
	defaultUserLimit = 50
	maxUserLimit     = 500
)

// UserRepo reads and maintains the users table. The gateway only reads roles
// through LookupRole; writes come from the admin CLI.
type UserRepo struct {
	DB *sql.DB
}

var _ ports.RoleStore = (*UserRepo)(nil)

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// LookupRole returns the raw role column for uuid. A NULL role yields "".
func (r *UserRepo) LookupRole(ctx context.Context, uuid string) (string, error) {
	var role sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT role FROM users WHERE uuid = $1`, uuid).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrRoleRecordNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup role: %w", err)
	}
	return role.String, nil
}

// GetByUUID fetches a single user.
func (r *UserRepo) GetByUUID(ctx context.Context, uuid string) (*model.User, error) {
	var out model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+userColumns+` FROM users WHERE uuid = $1`, uuid)
		if err != nil {
			return err
		}
		u, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get user %s: %w", uuid, err))
	}
	return &out, nil
}

// UserListOptions pages through users ordered by email.
type UserListOptions struct {
	Limit  int
	Offset int
	// Role filters by assigned role. RoleUnknown lists users without a role.
	Role *domainauth.Role
}

func (o UserListOptions) normalized() UserListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultUserLimit
	}
	if o.Limit > maxUserLimit {
		o.Limit = maxUserLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// List returns a page of users.
func (r *UserRepo) List(ctx context.Context, opts UserListOptions) ([]model.User, error) {
	opts = opts.normalized()

	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{opts.Limit, opts.Offset}
	if opts.Role != nil {
		if *opts.Role == domainauth.RoleUnknown {
			query += ` WHERE role IS NULL`
		} else {
			query += ` WHERE role = $3`
			args = append(args, string(*opts.Role))
		}
	}
	query += ` ORDER BY email ASC, uuid ASC LIMIT $1 OFFSET $2`

	var out []model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		users, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.User])
		if err != nil {
			return err
		}
		out = users
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list users: %w", err))
	}
	return out, nil
}

// Upsert inserts a user or refreshes the profile of an existing one.
// The stored role is only replaced when req.Role is set.
func (r *UserRepo) Upsert(ctx context.Context, req *model.UpsertUserRequest) (*model.User, error) {
	if req == nil {
		return nil, errors.New("upsert user request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid user")
	}

	var role *string
	if req.Role != nil {
		s := string(*req.Role)
		role = &s
	}

	var out model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO users (uuid, name, surname, email, role)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (uuid) DO UPDATE SET
				name = EXCLUDED.name,
				surname = EXCLUDED.surname,
				email = EXCLUDED.email,
				role = COALESCE(EXCLUDED.role, users.role)
			RETURNING `+userColumns,
			req.UUID, req.Name, req.Surname, req.Email, role,
		)
		if err != nil {
			return err
		}
		u, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("upsert user %s: %w", req.UUID, err))
	}
	return &out, nil
}

// SetRole assigns role to an existing user and returns the role it replaced.
// A nil role clears the assignment.
func (r *UserRepo) SetRole(ctx context.Context, uuid string, role *domainauth.Role) (domainauth.Role, error) {
	var value *string
	if role != nil {
		if !role.Assignable() {
			return domainauth.RoleUnknown, apperrors.ValidationField("role", "role must be admin or completion")
		}
		s := string(*role)
		value = &s
	}

	previous := domainauth.RoleUnknown
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var current *string
			if err := tx.QueryRow(ctx, `SELECT role FROM users WHERE uuid = $1 FOR UPDATE`, uuid).Scan(&current); err != nil {
				return err
			}
			if current != nil {
				previous, _ = domainauth.ParseRole(*current)
			}
			_, err := tx.Exec(ctx, `UPDATE users SET role = $2 WHERE uuid = $1`, uuid, value)
			return err
		},
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domainauth.RoleUnknown, ErrUserNotFound
	}
	if err != nil {
		return domainauth.RoleUnknown, apperrors.MapDBError(fmt.Errorf("set role for %s: %w", uuid, err))
	}
	return previous, nil
}

// Delete removes a user. It reports ErrUserNotFound when nothing was deleted.
func (r *UserRepo) Delete(ctx context.Context, uuid string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE uuid = $1`, uuid)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("delete user %s: %w", uuid, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user %s: %w", uuid, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Ping verifies the database is reachable.
func (r *UserRepo) Ping(ctx context.Context) error {
	if err := r.DB.PingContext(ctx); err != nil {
		return apperrors.MapDBError(fmt.Errorf("ping database: %w", err))
	}
	return nil
}
