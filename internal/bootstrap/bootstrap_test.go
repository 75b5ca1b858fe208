package bootstrap

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/rbac"
	"github.com/dropDatabas3/gatekeeper/internal/security/password"
	"github.com/dropDatabas3/gatekeeper/internal/store/memory"
)

var fastParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestSeedCatalog_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	res, err := SeedCatalog(ctx, st.RBAC())
	require.NoError(t, err)
	assert.Equal(t, len(rbac.DefaultPermissions), res.Permissions)
	assert.Equal(t, 6, res.Roles)

	res, err = SeedCatalog(ctx, st.RBAC())
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, res)

	cat, err := st.RBAC().LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, cat.Permissions, len(rbac.DefaultPermissions))
	for _, r := range cat.Roles {
		if r.Name == rbac.RoleSuperAdmin {
			assert.Len(t, r.Permissions, len(rbac.DefaultPermissions))
		}
	}
}

func TestSeedCatalog_KeepsCustomGrants(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	_, err := SeedCatalog(ctx, st.RBAC())
	require.NoError(t, err)
	require.NoError(t, st.RBAC().AddRolePermission(ctx, rbac.RoleHRIntern, "pii:read"))

	_, err = SeedCatalog(ctx, st.RBAC())
	require.NoError(t, err)

	cat, err := st.RBAC().LoadCatalog(ctx)
	require.NoError(t, err)
	for _, r := range cat.Roles {
		if r.Name == rbac.RoleHRIntern {
			assert.Contains(t, r.Permissions, "pii:read")
		}
	}
}

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	_, err := SeedCatalog(context.Background(), st.RBAC())
	require.NoError(t, err)
	return st
}

func TestEnsureAdmin_FromConfig(t *testing.T) {
	ctx := context.Background()
	st := seeded(t)
	cfg := AdminConfig{
		Users:    st.Users(),
		Policy:   password.Policy{MinLength: 10},
		Hash:     fastParams,
		Email:    "Admin@Example.com",
		Password: "correct-horse-1",
	}

	u, err := EnsureAdmin(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "admin@example.com", u.Email)
	assert.Equal(t, rbac.RoleSuperAdmin, u.Role)
	assert.Equal(t, "Administrator", u.DisplayName)
	hash, ok := u.PasswordHash()
	require.True(t, ok)
	assert.True(t, password.Verify("correct-horse-1", hash))

	again, err := EnsureAdmin(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, again, "a second run is a no-op")
}

func TestEnsureAdmin_WeakPassword(t *testing.T) {
	st := seeded(t)
	_, err := EnsureAdmin(context.Background(), AdminConfig{
		Users: st.Users(), Policy: password.Policy{MinLength: 10}, Hash: fastParams,
		Email: "admin@example.com", Password: "short",
	})
	assert.True(t, password.IsPolicyError(err))
}

func TestEnsureAdmin_PromotesExistingUser(t *testing.T) {
	ctx := context.Background()
	st := seeded(t)
	existing := &types.User{
		Email: "ops@example.com", DisplayName: "Ops",
		Credentials: types.FederatedCredentials{SubjectID: "sub-ops"},
		Role:        rbac.RoleHRIntern,
	}
	require.NoError(t, st.Users().Create(ctx, existing))

	u, err := EnsureAdmin(ctx, AdminConfig{Users: st.Users(), Hash: fastParams, Email: "ops@example.com", Password: "whatever-123"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, u.ID)

	got, err := st.Users().GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSuperAdmin, got.Role)
	assert.True(t, got.Active)
}

func TestEnsureAdmin_NoCredentialsNoPrompt(t *testing.T) {
	st := seeded(t)
	u, err := EnsureAdmin(context.Background(), AdminConfig{Users: st.Users()})
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestEnsureAdmin_Prompt(t *testing.T) {
	st := seeded(t)
	var out bytes.Buffer
	u, err := EnsureAdmin(context.Background(), AdminConfig{
		Users:  st.Users(),
		Policy: password.Policy{MinLength: 10},
		Hash:   fastParams,
		Prompt: true,
		In:     strings.NewReader("root@example.com\nsuper-secret-1\nsuper-secret-1\n"),
		Out:    &out,
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "root@example.com", u.Email)
	assert.Contains(t, out.String(), "Admin Email:")

	st = seeded(t)
	_, err = EnsureAdmin(context.Background(), AdminConfig{
		Users: st.Users(), Hash: fastParams, Prompt: true,
		In:  strings.NewReader("root@example.com\nsuper-secret-1\nother-secret-1\n"),
		Out: &out,
	})
	assert.ErrorContains(t, err, "passwords do not match")
}
