package memory

import (
	"context"
	"testing"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.RBAC().CreatePermission(ctx, types.Permission{Name: "candidates:read"}))
	require.NoError(t, s.RBAC().CreatePermission(ctx, types.Permission{Name: "candidates:delete"}))
	require.NoError(t, s.RBAC().CreateRole(ctx, types.Role{Name: "Recruiter", Permissions: []string{"candidates:read"}}))
	require.NoError(t, s.RBAC().CreateRole(ctx, types.Role{Name: "HR Manager", Permissions: []string{"candidates:read", "candidates:delete"}}))
	return s
}

func TestUsers_Uniqueness(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	u := &types.User{Email: "A@x.com", Credentials: types.LocalCredentials{PasswordHash: "h"}, Role: "Recruiter", Active: true}
	require.NoError(t, s.Users().Create(ctx, u))
	assert.NotEmpty(t, u.ID)

	got, err := s.Users().GetByEmail(ctx, "a@X.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := &types.User{Email: "a@x.com", Credentials: types.FederatedCredentials{SubjectID: "s1"}, Role: "Recruiter"}
	assert.ErrorIs(t, s.Users().Create(ctx, dup), repository.ErrDuplicateEmail)

	f1 := &types.User{Email: "f1@x.com", Credentials: types.FederatedCredentials{SubjectID: "s1"}, Role: "Recruiter"}
	require.NoError(t, s.Users().Create(ctx, f1))
	f2 := &types.User{Email: "f2@x.com", Credentials: types.FederatedCredentials{SubjectID: "s1"}, Role: "Recruiter"}
	assert.ErrorIs(t, s.Users().Create(ctx, f2), repository.ErrDuplicateSubject)

	bad := &types.User{Email: "r@x.com", Credentials: types.LocalCredentials{PasswordHash: "h"}, Role: "Nope"}
	assert.ErrorIs(t, s.Users().Create(ctx, bad), repository.ErrInvalidInput)
}

func TestUsers_SubjectNeverReassigned(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	u := &types.User{Email: "f@x.com", Credentials: types.FederatedCredentials{SubjectID: "s1"}, Role: "Recruiter"}
	require.NoError(t, s.Users().Create(ctx, u))

	u.Credentials = types.FederatedCredentials{SubjectID: "s2"}
	assert.ErrorIs(t, s.Users().Update(ctx, u), repository.ErrConflict)
}

func TestUsers_UpdatePasswordHashTouchesOnlyHash(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	u := &types.User{Email: "l@x.com", Credentials: types.LocalCredentials{PasswordHash: "old"}, Role: "Recruiter", Active: true}
	require.NoError(t, s.Users().Create(ctx, u))

	// un admin cambia el rol y desactiva con una copia más nueva de la fila
	admin := *u
	admin.Role = "HR Manager"
	admin.Active = false
	require.NoError(t, s.Users().Update(ctx, &admin))

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, "new"))
	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	hash, ok := got.PasswordHash()
	assert.True(t, ok)
	assert.Equal(t, "new", hash)
	assert.Equal(t, "HR Manager", got.Role)
	assert.False(t, got.Active)

	linked := &types.User{Email: "k@x.com", Credentials: types.FederatedCredentials{SubjectID: "s9", PasswordHash: "old"}, Role: "Recruiter"}
	require.NoError(t, s.Users().Create(ctx, linked))
	require.NoError(t, s.Users().UpdatePasswordHash(ctx, linked.ID, "new"))
	got, err = s.Users().GetBySubject(ctx, "s9")
	require.NoError(t, err)
	assert.Equal(t, types.AuthFederated, got.Method())
	hash, _ = got.PasswordHash()
	assert.Equal(t, "new", hash)

	fed := &types.User{Email: "f@x.com", Credentials: types.FederatedCredentials{SubjectID: "s1"}, Role: "Recruiter"}
	require.NoError(t, s.Users().Create(ctx, fed))
	assert.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, fed.ID, "new"), repository.ErrNotFound)
	assert.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", "new"), repository.ErrNotFound)
}

func TestRBAC_DeletePermissionCascades(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.RBAC().DeletePermission(ctx, "candidates:read"))
	cat, err := s.RBAC().LoadCatalog(ctx)
	require.NoError(t, err)
	for _, r := range cat.Roles {
		assert.NotContains(t, r.Permissions, "candidates:read", r.Name)
	}
	assert.ErrorIs(t, s.RBAC().AddRolePermission(ctx, "Recruiter", "candidates:read"), repository.ErrNotFound)
}

func TestRBAC_DeleteRoleInUse(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	require.NoError(t, s.Users().Create(ctx, &types.User{Email: "a@x.com", Credentials: types.LocalCredentials{PasswordHash: "h"}, Role: "Recruiter"}))

	assert.ErrorIs(t, s.RBAC().DeleteRole(ctx, "Recruiter"), repository.ErrRoleInUse)
	assert.NoError(t, s.RBAC().DeleteRole(ctx, "HR Manager"))
	assert.ErrorIs(t, s.RBAC().DeleteRole(ctx, "HR Manager"), repository.ErrNotFound)
}

func TestAudit_ListNewestFirstWithFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, a := range []string{"a1", "a2", "a3"} {
		require.NoError(t, s.Audit().Append(ctx, types.AuditEntry{ActorID: types.Actor("u1"), Action: a, Outcome: types.OutcomeSuccess}))
	}
	require.NoError(t, s.Audit().Append(ctx, types.AuditEntry{Action: "a4", Outcome: types.OutcomeDenied}))

	all, err := s.Audit().List(ctx, repository.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "a4", all[0].Action)

	mine, _ := s.Audit().List(ctx, repository.AuditFilter{ActorID: "u1", Limit: 2})
	require.Len(t, mine, 2)
	assert.Equal(t, "a3", mine[0].Action)

	denied, _ := s.Audit().List(ctx, repository.AuditFilter{Outcome: types.OutcomeDenied})
	require.Len(t, denied, 1)
	assert.Nil(t, denied[0].ActorID)
}
