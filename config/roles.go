package config

import (
	"fmt"
	"strings"
	"time"
)

// RoleStoreKind selects where user roles are read from.
type RoleStoreKind string

const (
	// RoleStorePostgres reads the role column of the users table directly.
	RoleStorePostgres RoleStoreKind = "postgres"
	// RoleStoreHTTP reads the user record from the platform's REST backend.
	RoleStoreHTTP RoleStoreKind = "http"
)

const defaultRoleLookupTimeout = 2 * time.Second

// UnmarshalText implements encoding.TextUnmarshaler for RoleStoreKind.
func (k *RoleStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "postgres", "http":
		*k = RoleStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid RoleStoreKind: %q (valid options: postgres, http)", v)
	}
}

// RolesConfig controls how a user identity is resolved to a role.
type RolesConfig struct {
	// Store selects the backend (ROLE_STORE).
	Store RoleStoreKind `env:"STORE" envDefault:"postgres"`

	// LookupTimeout bounds a single role read; exceeding it counts as a failed lookup.
	LookupTimeout time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"2s"`

	// HTTP configures the REST role store (used when Store=http).
	HTTP RoleHTTPConfig `envPrefix:"HTTP_"`
}

// RoleHTTPConfig configures the REST role store.
type RoleHTTPConfig struct {
	// URLTemplate is the user record URL; "{id}" is replaced with the escaped identity.
	// Example: https://api.example.com/api/users/{id}
	URLTemplate string `env:"URL_TEMPLATE"`

	// AuthHeader is sent verbatim as the Authorization header when set.
	AuthHeader string `env:"AUTH_HEADER"`

	// APIKey is sent as the apikey header when set (PostgREST gateways).
	APIKey string `env:"API_KEY"`

	// RoleExpression is a JMESPath expression selecting the role from the response body.
	RoleExpression string `env:"ROLE_EXPRESSION" envDefault:"role"`
}

// Sanitize applies guardrails to role lookup configuration values.
func (r *RolesConfig) Sanitize() {
	if r.Store == "" {
		r.Store = RoleStorePostgres
	}
	if r.LookupTimeout <= 0 {
		r.LookupTimeout = defaultRoleLookupTimeout
	}
	r.HTTP.URLTemplate = strings.TrimSpace(r.HTTP.URLTemplate)
	if r.HTTP.RoleExpression = strings.TrimSpace(r.HTTP.RoleExpression); r.HTTP.RoleExpression == "" {
		r.HTTP.RoleExpression = "role"
	}
}
