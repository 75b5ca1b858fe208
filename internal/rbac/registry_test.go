package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/audit"
	"github.com/dropDatabas3/gatekeeper/internal/config"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, st *memory.Store) {
	t.Helper()
	ctx := context.Background()
	for _, p := range DefaultPermissions {
		require.NoError(t, st.RBAC().CreatePermission(ctx, p))
	}
	for _, r := range DefaultRoles() {
		require.NoError(t, st.RBAC().CreateRole(ctx, r))
	}
}

func newRegistry(t *testing.T) (*Registry, *memory.Store) {
	t.Helper()
	st := memory.New()
	seed(t, st)
	reg, err := NewRegistry(context.Background(), st.RBAC(), Config{
		DefaultRole: RoleHRIntern,
		RoleMap:     config.DefaultRoleMap(),
	})
	require.NoError(t, err)
	return reg, st
}

func TestRegistry_PermissionsOf(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	admin := reg.PermissionsOf(ctx, RoleSuperAdmin)
	assert.Len(t, admin, len(DefaultPermissions))

	rec := reg.PermissionsOf(ctx, RoleRecruiter)
	assert.True(t, rec.Has("candidates:read"))
	assert.False(t, rec.Has("candidates:delete"))

	assert.Empty(t, reg.PermissionsOf(ctx, "Nope"))
}

func TestRegistry_MapExternalRole(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	cases := map[string]string{
		"hr-manager":           RoleHRManager,
		"  HR-Manager ":        RoleHRManager,
		"ITFC-Business-Admin":  RoleSuperAdmin,
		"recruiter":            RoleRecruiter,
		"hr-manager-assistant": RoleHRIntern,
		"":                     RoleHRIntern,
		"unknown":              RoleHRIntern,
	}
	for claim, want := range cases {
		assert.Equal(t, want, reg.MapExternalRole(ctx, claim), "claim %q", claim)
	}
}

func TestRegistry_MappedRoleMustExist(t *testing.T) {
	st := memory.New()
	seed(t, st)
	reg, err := NewRegistry(context.Background(), st.RBAC(), Config{
		DefaultRole: RoleHRIntern,
		RoleMap:     map[string]string{"ghost": "Ghost Role"},
	})
	require.NoError(t, err)
	assert.Equal(t, RoleHRIntern, reg.MapExternalRole(context.Background(), "ghost"))
}

func TestRegistry_RequiresDefaultRole(t *testing.T) {
	_, err := NewRegistry(context.Background(), memory.New().RBAC(), Config{})
	require.Error(t, err)
}

func TestRegistry_SnapshotIsIsolatedFromMutation(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	before := reg.PermissionsOf(ctx, RoleRecruiter)
	require.NoError(t, reg.mutate(ctx, func(repo repository.RBACRepository) error {
		return repo.AddRolePermission(ctx, RoleRecruiter, "candidates:delete")
	}))

	assert.False(t, before.Has("candidates:delete"), "old snapshot must not change")
	assert.True(t, reg.PermissionsOf(ctx, RoleRecruiter).Has("candidates:delete"))
}

func TestRegistry_StaleSnapshotReloads(t *testing.T) {
	st := memory.New()
	seed(t, st)
	ctx := context.Background()
	reg, err := NewRegistry(ctx, st.RBAC(), Config{DefaultRole: RoleHRIntern, MaxStaleness: time.Minute})
	require.NoError(t, err)

	// mutación por fuera del registry (otro nodo)
	require.NoError(t, st.RBAC().AddRolePermission(ctx, RoleSourcer, "pii:read"))
	assert.False(t, reg.PermissionsOf(ctx, RoleSourcer).Has("pii:read"))

	now := time.Now().Add(2 * time.Minute)
	reg.now = func() time.Time { return now }
	assert.True(t, reg.PermissionsOf(ctx, RoleSourcer).Has("pii:read"))
}

// gatedCatalog bloquea la próxima LoadCatalog hasta que se cierre release;
// entered se cierra cuando esa lectura ya obtuvo el catálogo.
type gatedCatalog struct {
	repository.RBACRepository
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedCatalog) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
}

func (g *gatedCatalog) LoadCatalog(ctx context.Context) (types.Catalog, error) {
	g.mu.Lock()
	armed := g.armed
	g.armed = false
	entered, release := g.entered, g.release
	g.mu.Unlock()

	cat, err := g.RBACRepository.LoadCatalog(ctx)
	if armed {
		close(entered)
		<-release
	}
	return cat, err
}

func TestRegistry_MutationVisibleDespiteInFlightStaleReload(t *testing.T) {
	st := memory.New()
	seed(t, st)
	ctx := context.Background()
	repo := &gatedCatalog{RBACRepository: st.RBAC()}
	reg, err := NewRegistry(ctx, repo, Config{DefaultRole: RoleHRIntern, MaxStaleness: time.Minute})
	require.NoError(t, err)

	now := time.Now().Add(2 * time.Minute)
	reg.now = func() time.Time { return now }

	// una lectura vencida dispara la recarga y queda bloqueada con el
	// catálogo previo a la mutación
	repo.arm()
	done := make(chan struct{})
	go func() {
		defer close(done)
		reg.PermissionsOf(ctx, RoleRecruiter)
	}()
	<-repo.entered

	require.NoError(t, reg.mutate(ctx, func(r repository.RBACRepository) error {
		return r.AddRolePermission(ctx, RoleRecruiter, "candidates:delete")
	}))
	assert.True(t, reg.cur.Load().sets[RoleRecruiter].Has("candidates:delete"))

	// la recarga vieja termina después y no pisa el snapshot nuevo
	close(repo.release)
	<-done
	assert.True(t, reg.PermissionsOf(ctx, RoleRecruiter).Has("candidates:delete"))
}

func TestRegistry_ConcurrentReadsDuringMutation(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				set := reg.PermissionsOf(ctx, RoleRecruiter)
				assert.True(t, set.Has("candidates:read"))
			}
		}()
	}
	for j := 0; j < 20; j++ {
		_ = reg.mutate(ctx, func(repo repository.RBACRepository) error {
			if j%2 == 0 {
				return repo.AddRolePermission(ctx, RoleRecruiter, "candidates:delete")
			}
			return repo.RemoveRolePermission(ctx, RoleRecruiter, "candidates:delete")
		})
	}
	wg.Wait()
}

// ---------- admin ----------

type fakeAuthz struct {
	id  types.Identity
	err error
}

func (f fakeAuthz) Authorize(context.Context, string, string) (types.Identity, error) {
	return f.id, f.err
}

func TestAdmin_MutationsReloadAndAudit(t *testing.T) {
	reg, st := newRegistry(t)
	ctx := context.Background()
	adm := NewAdmin(reg, fakeAuthz{id: types.Identity{UserID: "admin-1"}}, audit.New(st.Audit()))

	require.NoError(t, adm.CreatePermission(ctx, "tok", "reports:read", "View reports"))
	require.NoError(t, adm.CreateRole(ctx, "tok", "Auditor", "Reads reports"))
	require.NoError(t, adm.AssignPermission(ctx, "tok", "Auditor", "reports:read"))
	assert.True(t, reg.PermissionsOf(ctx, "Auditor").Has("reports:read"))

	require.NoError(t, adm.RevokePermission(ctx, "tok", "Auditor", "reports:read"))
	assert.False(t, reg.PermissionsOf(ctx, "Auditor").Has("reports:read"))

	require.NoError(t, adm.AssignPermission(ctx, "tok", "Auditor", "reports:read"))
	require.NoError(t, adm.DeletePermission(ctx, "tok", "reports:read"))
	assert.Empty(t, reg.PermissionsOf(ctx, "Auditor"))

	require.NoError(t, adm.DeleteRole(ctx, "tok", "Auditor"))
	assert.False(t, reg.HasRole(ctx, "Auditor"))

	entries, err := st.Audit().List(ctx, repository.AuditFilter{ActorID: "admin-1"})
	require.NoError(t, err)
	assert.Len(t, entries, 7)
	for _, e := range entries {
		assert.Equal(t, types.OutcomeSuccess, e.Outcome)
	}
}

func TestAdmin_DeniedWhenUnauthorized(t *testing.T) {
	reg, st := newRegistry(t)
	ctx := context.Background()
	denied := errors.New("forbidden")
	adm := NewAdmin(reg, fakeAuthz{err: denied}, audit.New(st.Audit()))

	err := adm.CreateRole(ctx, "tok", "Auditor", "")
	require.ErrorIs(t, err, denied)
	assert.False(t, reg.HasRole(ctx, "Auditor"))

	entries, err := st.Audit().List(ctx, repository.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAdmin_RepositoryErrorsAreDeniedEntries(t *testing.T) {
	reg, st := newRegistry(t)
	ctx := context.Background()
	adm := NewAdmin(reg, fakeAuthz{id: types.Identity{UserID: "admin-1"}}, audit.New(st.Audit()))

	err := adm.CreateRole(ctx, "tok", RoleRecruiter, "dup")
	require.True(t, repository.IsConflict(err))

	err = adm.AssignPermission(ctx, "tok", RoleRecruiter, "no:such")
	require.True(t, repository.IsNotFound(err))

	entries, err := st.Audit().List(ctx, repository.AuditFilter{Outcome: types.OutcomeDenied})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAdmin_RejectsMalformedNames(t *testing.T) {
	reg, st := newRegistry(t)
	ctx := context.Background()
	adm := NewAdmin(reg, fakeAuthz{id: types.Identity{UserID: "admin-1"}}, audit.New(st.Audit()))

	err := adm.CreatePermission(ctx, "tok", "Reports Read", "")
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	err = adm.CreateRole(ctx, "tok", "bad;role", "")
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	assert.False(t, reg.HasRole(ctx, "bad;role"))
}
