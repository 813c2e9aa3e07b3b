//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
)

const (
	maxUserIDLen   = 255
	maxUserNameLen = 100
)

// User mirrors a row of the users table shared with the dashboard backend.
// UUID holds the identity provider subject; Role is NULL until an operator assigns one.
type User struct {
	UUID      string    `json:"uuid"           db:"uuid"`
	Name      string    `json:"name"           db:"name"`
	Surname   string    `json:"surname"        db:"surname"`
	Email     string    `json:"email"          db:"email"`
	Role      *string   `json:"role,omitempty" db:"role"`
	CreatedAt time.Time `json:"created_at"     db:"created_at"`
	UpdatedAt time.Time `json:"updated_at"     db:"updated_at"`
}

// EffectiveRole returns the parsed role, or RoleUnknown when unset or unrecognised.
func (u User) EffectiveRole() domainauth.Role {
	if u.Role == nil {
		return domainauth.RoleUnknown
	}
	role, _ := domainauth.ParseRole(*u.Role)
	return role
}

// UpsertUserRequest creates a user record or refreshes its profile fields.
// Role is only written when set; nil keeps the stored role.
type UpsertUserRequest struct {
	UUID    string
	Name    string
	Surname string
	Email   string
	Role    *domainauth.Role
}

// Normalize trims whitespace and lower-cases the email.
func (r *UpsertUserRequest) Normalize() {
	r.UUID = strings.TrimSpace(r.UUID)
	r.Name = strings.TrimSpace(r.Name)
	r.Surname = strings.TrimSpace(r.Surname)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// Validate checks the request after Normalize.
func (r *UpsertUserRequest) Validate() error {
	if err := ValidateUserID(r.UUID); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Name) > maxUserNameLen || utf8.RuneCountInString(r.Surname) > maxUserNameLen {
		return errors.New("name and surname must be at most 100 characters")
	}
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("email is invalid")
	}
	if r.Role != nil && !r.Role.Assignable() {
		return errors.New("role must be admin or completion")
	}
	return nil
}

// ValidateUserID checks an identity provider subject used as a user key.
func ValidateUserID(id string) error {
	if id == "" {
		return errors.New("uuid is required")
	}
	if utf8.RuneCountInString(id) > maxUserIDLen {
		return errors.New("uuid must be at most 255 characters")
	}
	return nil
}
