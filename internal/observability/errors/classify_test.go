package errors

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/target/punchlist-gateway/internal/ports"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatus() int { return int(s) }

func TestClassify(t *testing.T) {
	var decodeTarget struct{ Role string }
	decodeErr := jsonDecodeError(&decodeTarget)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("lookup: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"missing record", fmt.Errorf("lookup U1: %w", ports.ErrRoleRecordNotFound), "not_found"},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: goerrors.New("connection refused")}, "network"},
		{"pg undefined table", fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01"}), "postgres"},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}, "postgres_unavailable"},
		{"pg too many connections", &pgconn.PgError{Code: "53300"}, "postgres_unavailable"},
		{"upstream 503", fmt.Errorf("fetch: %w", statusErr(503)), "http_5xx"},
		{"upstream 401", statusErr(401), "http_4xx"},
		{"bad body", fmt.Errorf("decode: %w", decodeErr), "decode"},
		{"plain", goerrors.New("boom"), "errors_errorstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func jsonDecodeError(v any) error {
	return json.Unmarshal([]byte(`{"role":`), v)
}
