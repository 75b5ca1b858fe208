package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/audit"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/jwt"
	"github.com/dropDatabas3/gatekeeper/internal/rbac"
	"github.com/dropDatabas3/gatekeeper/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	st     *memory.Store
	reg    *rbac.Registry
	tokens *jwt.Service
	enf    *Enforcer
	user   *types.User
}

func setup(t *testing.T, role string) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	for _, p := range rbac.DefaultPermissions {
		require.NoError(t, st.RBAC().CreatePermission(ctx, p))
	}
	for _, r := range rbac.DefaultRoles() {
		require.NoError(t, st.RBAC().CreateRole(ctx, r))
	}
	reg, err := rbac.NewRegistry(ctx, st.RBAC(), rbac.Config{DefaultRole: rbac.RoleHRIntern})
	require.NoError(t, err)

	tokens, err := jwt.NewService(jwt.Config{Issuer: "gatekeeper", Secret: secret, TTL: time.Minute})
	require.NoError(t, err)

	u := &types.User{
		Email:       "rec@example.com",
		DisplayName: "Rec",
		Credentials: types.LocalCredentials{PasswordHash: "x"},
		Role:        role,
		Active:      true,
	}
	require.NoError(t, st.Users().Create(ctx, u))

	return &fixture{
		st:     st,
		reg:    reg,
		tokens: tokens,
		enf:    NewEnforcer(tokens, reg, st.Users(), audit.New(st.Audit())),
		user:   u,
	}
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	tok, err := f.tokens.Issue(*f.user)
	require.NoError(t, err)
	return tok.Value
}

func (f *fixture) entries(t *testing.T) []types.AuditEntry {
	t.Helper()
	es, err := f.st.Audit().List(context.Background(), repository.AuditFilter{Action: audit.ActionAuthorize})
	require.NoError(t, err)
	return es
}

func TestAuthorize_Granted(t *testing.T) {
	f := setup(t, rbac.RoleRecruiter)
	id, err := f.enf.Authorize(context.Background(), f.token(t), "candidates:read")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, id.UserID)
	assert.Equal(t, rbac.RoleRecruiter, id.Role)
	assert.True(t, id.Permissions.Has("pii:read"))

	es := f.entries(t)
	require.Len(t, es, 1)
	assert.Equal(t, types.OutcomeSuccess, es[0].Outcome)
	require.NotNil(t, es[0].ActorID)
	assert.Equal(t, f.user.ID, *es[0].ActorID)
}

func TestAuthorize_RecruiterCannotDeleteCandidates(t *testing.T) {
	f := setup(t, rbac.RoleRecruiter)
	_, err := f.enf.Authorize(context.Background(), f.token(t), "candidates:delete")
	assert.ErrorIs(t, err, ErrForbidden)

	es := f.entries(t)
	require.Len(t, es, 1)
	assert.Equal(t, types.OutcomeDenied, es[0].Outcome)
	assert.Equal(t, "candidates:delete", es[0].Target)
}

func TestAuthorize_ExpiredToken(t *testing.T) {
	f := setup(t, rbac.RoleSuperAdmin)
	past := time.Now().Add(-time.Hour)
	old, err := jwt.NewService(jwt.Config{
		Issuer: "gatekeeper", Secret: secret, TTL: time.Minute,
		Now: func() time.Time { return past },
	})
	require.NoError(t, err)
	tok, err := old.Issue(*f.user)
	require.NoError(t, err)

	for _, perm := range []string{"candidates:read", "users:manage"} {
		_, err := f.enf.Authorize(context.Background(), tok.Value, perm)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, err, jwt.ErrExpired)
	}
	es := f.entries(t)
	require.Len(t, es, 2)
	assert.Nil(t, es[0].ActorID)
}

func TestAuthorize_GarbageToken(t *testing.T) {
	f := setup(t, rbac.RoleSuperAdmin)
	_, err := f.enf.Authorize(context.Background(), "not-a-jwt", "users:read")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthorize_InactiveUserOverridesGrant(t *testing.T) {
	f := setup(t, rbac.RoleSuperAdmin)
	tok := f.token(t)
	f.user.Active = false
	require.NoError(t, f.st.Users().Update(context.Background(), f.user))

	_, err := f.enf.Authorize(context.Background(), tok, "users:read")
	assert.ErrorIs(t, err, ErrForbidden)
	es := f.entries(t)
	require.Len(t, es, 1)
	assert.Equal(t, "user inactive", es[0].Detail)
}

func TestAuthorize_RegistryChangeAppliesOnNextCall(t *testing.T) {
	f := setup(t, rbac.RoleRecruiter)
	ctx := context.Background()
	tok := f.token(t)

	_, err := f.enf.Authorize(ctx, tok, "candidates:delete")
	require.ErrorIs(t, err, ErrForbidden)

	adminID := types.Identity{UserID: f.user.ID}
	adm := rbac.NewAdmin(f.reg, allow{adminID}, audit.New(f.st.Audit()))
	require.NoError(t, adm.AssignPermission(ctx, "ignored", rbac.RoleRecruiter, "candidates:delete"))

	_, err = f.enf.Authorize(ctx, tok, "candidates:delete")
	assert.NoError(t, err)
}

type allow struct{ id types.Identity }

func (a allow) Authorize(context.Context, string, string) (types.Identity, error) { return a.id, nil }

func TestAuthorize_AuditFailureDoesNotChangeDecision(t *testing.T) {
	f := setup(t, rbac.RoleRecruiter)
	f.st.FailAuditWith(errors.New("disk full"))

	_, err := f.enf.Authorize(context.Background(), f.token(t), "candidates:read")
	assert.NoError(t, err)
}

func TestIdentify(t *testing.T) {
	f := setup(t, rbac.RoleHiringManager)
	id, err := f.enf.Identify(context.Background(), f.token(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"candidates:comment", "candidates:read_assigned"}, id.Permissions.Names())
	assert.Empty(t, f.entries(t))

	_, err = f.enf.Identify(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
