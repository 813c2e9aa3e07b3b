// Package mocks provides gomock-generated mocks for the gateway's ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockRoleStore(ctrl)
//	store.EXPECT().LookupRole(gomock.Any(), "user-1").Return("admin", nil)
package mocks

// Generate mock for RoleStore interface from internal/ports package.
// This creates MockRoleStore with methods for all RoleStore interface methods:
// LookupRole
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=role_store_mock.go github.com/target/punchlist-gateway/internal/ports RoleStore

// Generate mock for TokenVerifier interface from internal/ports package.
// This creates MockTokenVerifier with methods for all TokenVerifier interface methods:
// Verify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_verifier_mock.go github.com/target/punchlist-gateway/internal/ports TokenVerifier
