// Package auth contains domain-level types for identities, roles and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Role is the authorization role stored on a user record.
// Keep string form for easy persistence and logging.
type Role string

const (
	// RoleAdmin grants the admin dashboard (projects, systems, punches, agents).
	RoleAdmin Role = "admin"
	// RoleCompletion grants the completion area.
	RoleCompletion Role = "completion"
	// RoleUnknown covers a missing record, an empty role column, an unrecognised
	// value, or a failed lookup. It grants nothing.
	RoleUnknown Role = "unknown"
)

// ParseRole maps a stored role value to a Role. Matching ignores case and
// surrounding whitespace. Anything else yields RoleUnknown and ok=false.
func ParseRole(raw string) (role Role, ok bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleCompletion:
		return RoleCompletion, true
	default:
		return RoleUnknown, false
	}
}

// Assignable reports whether r may be written to a user record.
func (r Role) Assignable() bool {
	return r == RoleAdmin || r == RoleCompletion
}

func (r Role) String() string {
	if r == "" {
		return string(RoleUnknown)
	}
	return string(r)
}

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // opaque subject issued by the IdP; keys the users table
	FirstName string
	LastName  string
	Email     string
	ExpiresAt time.Time // absolute expiry from IdP token
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier. Roles are not stored here; they are
// read from the role store on every authorization decision.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Identity returns the principal the session was established for.
func (s Session) Identity() Identity {
	return Identity{
		UserID:    s.UserID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		ExpiresAt: s.ExpiresAt,
	}
}
