package ports

import (
	"context"
	"errors"
)

// ErrRoleRecordNotFound is returned by a RoleStore when no record exists for the identity.
var ErrRoleRecordNotFound = errors.New("role record not found")

// RoleStore is the read-only view of the external user record store.
type RoleStore interface {
	// LookupRole returns the raw role value stored for userID. A record with no
	// role yields an empty string and a nil error. A missing record yields
	// ErrRoleRecordNotFound.
	LookupRole(ctx context.Context, userID string) (string, error)
}
