package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError_Passthrough(t *testing.T) {
	assert.NoError(t, MapDBError(nil))

	plain := errors.New("plain")
	assert.Same(t, plain, MapDBError(plain))
}

func TestMapDBError_Codes(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  ErrorCode
		wantField string
	}{
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), wantCode: ErrCodeTimeout},
		{name: "canceled", err: context.Canceled, wantCode: ErrCodeCanceled},
		{name: "no rows", err: pgx.ErrNoRows, wantCode: ErrCodeNotFound},
		{
			name:      "unique email from detail",
			err:       &pgconn.PgError{Code: pgerrcode.UniqueViolation, Detail: `Key (email)=(a@example.com) already exists.`},
			wantCode:  ErrCodeConflict,
			wantField: "email",
		},
		{
			name:      "unique email from constraint",
			err:       &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"},
			wantCode:  ErrCodeConflict,
			wantField: "email",
		},
		{
			name:      "role check",
			err:       &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "users_role_check"},
			wantCode:  ErrCodeValidation,
			wantField: "role",
		},
		{
			name:      "not null",
			err:       &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "email"},
			wantCode:  ErrCodeValidation,
			wantField: "email",
		},
		{name: "bad text", err: &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation}, wantCode: ErrCodeValidation},
		{name: "missing table", err: &pgconn.PgError{Code: pgerrcode.UndefinedTable}, wantCode: ErrCodeInternal},
		{name: "connection failure", err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, wantCode: ErrCodeUnavailable},
		{name: "cannot connect now", err: &pgconn.PgError{Code: pgerrcode.CannotConnectNow}, wantCode: ErrCodeUnavailable},
		{name: "other pg error", err: &pgconn.PgError{Code: pgerrcode.DivisionByZero}, wantCode: ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(tt.err)
			assert.Equal(t, tt.wantCode, GetCode(got))
			assert.Equal(t, tt.wantField, GetField(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMapCheckViolation_RoleMessage(t *testing.T) {
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "role"})
	var appErr *AppError
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, "role must be admin or completion", appErr.Message)
	}
}

func TestInferFieldFromConstraint(t *testing.T) {
	assert.Equal(t, "email", inferFieldFromConstraint("users_email_key"))
	assert.Equal(t, "", inferFieldFromConstraint("users_name_surname_key"))
	assert.Equal(t, "", inferFieldFromConstraint(""))
}
