// Package errors names failure classes for role lookup logs and metrics.
package errors

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"net"
	"reflect"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/target/punchlist-gateway/internal/ports"
)

// httpStatusError is implemented by role store errors that carry the
// status of a failed HTTP exchange.
type httpStatusError interface {
	HTTPStatus() int
}

// Classify returns a short, low-cardinality class for err. Known role store
// failures get fixed names; anything else is named after the innermost
// concrete error type.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	case goerrors.Is(err, ports.ErrRoleRecordNotFound):
		return "not_found"
	}

	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		if pgerrcode.IsConnectionException(pgErr.Code) || pgerrcode.IsInsufficientResources(pgErr.Code) {
			return "postgres_unavailable"
		}
		return "postgres"
	}

	var statusErr httpStatusError
	if goerrors.As(err, &statusErr) {
		if statusErr.HTTPStatus() >= 500 {
			return "http_5xx"
		}
		return "http_4xx"
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if goerrors.As(err, &syntaxErr) || goerrors.As(err, &typeErr) {
		return "decode"
	}

	var netErr net.Error
	if goerrors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	return typeName(err)
}

func typeName(err error) string {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}
