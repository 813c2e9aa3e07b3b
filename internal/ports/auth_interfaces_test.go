package ports_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/punchlist-gateway/internal/adapters/rolestore"
	"github.com/target/punchlist-gateway/internal/data"
	"github.com/target/punchlist-gateway/internal/mocks"
	mockauth "github.com/target/punchlist-gateway/internal/mocks/auth"
	"github.com/target/punchlist-gateway/internal/ports"
)

func TestImplementationsSatisfyPorts(t *testing.T) {
	var _ ports.AuthProvider = (*mockauth.MockAuthProvider)(nil)
	var _ ports.SessionStore = (*mockauth.MemorySessionStore)(nil)
	var _ ports.TokenVerifier = (*mockauth.StaticTokenVerifier)(nil)
	var _ ports.TokenVerifier = (*mocks.MockTokenVerifier)(nil)
	var _ ports.RoleStore = (*mockauth.StaticRoleStore)(nil)
	var _ ports.RoleStore = (*mocks.MockRoleStore)(nil)
	var _ ports.RoleStore = (*data.UserRepo)(nil)
	var _ ports.RoleStore = (*rolestore.HTTPStore)(nil)
}

func TestStaticRoleStoreContract(t *testing.T) {
	store := mockauth.NewStaticRoleStore(map[string]string{"U1": "admin", "U2": ""})
	ctx := context.Background()

	role, err := store.LookupRole(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "admin", role)

	role, err = store.LookupRole(ctx, "U2")
	require.NoError(t, err)
	assert.Empty(t, role)

	_, err = store.LookupRole(ctx, "U3")
	require.ErrorIs(t, err, ports.ErrRoleRecordNotFound)
	assert.Equal(t, []string{"U1", "U2", "U3"}, store.Calls())
}
