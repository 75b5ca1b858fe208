// Package rbac mantiene el mapeo rol -> permisos y el mapeo de claims de rol
// externos (IdP) a roles internos.
package rbac

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"golang.org/x/sync/singleflight"
)

var ErrUnknownRole = errors.New("rbac: unknown role")

// snapshot es inmutable una vez publicado.
type snapshot struct {
	roles    map[string]types.Role
	sets     map[string]types.PermissionSet
	perms    map[string]types.Permission
	loadedAt time.Time
	// gen ordena las lecturas del catálogo: mayor gen = leído después.
	gen uint64
}

// Config del registry.
type Config struct {
	DefaultRole string
	// RoleMap: claim externo -> rol interno. Las keys se comparan sin
	// distinguir mayúsculas y sin espacios al borde.
	RoleMap map[string]string
	// MaxStaleness fuerza recargar el snapshot si es más viejo que esto
	// (otros nodos pueden haber mutado). 0 = solo recarga tras mutaciones locales.
	MaxStaleness time.Duration
}

type Registry struct {
	repo        repository.RBACRepository
	cur         atomic.Pointer[snapshot]
	gen         atomic.Uint64
	mu          sync.Mutex // serializa mutación + recarga
	sf          singleflight.Group
	roleMap     map[string]string
	defaultRole string
	maxStale    time.Duration
	now         func() time.Time
}

// NewRegistry carga el snapshot inicial.
func NewRegistry(ctx context.Context, repo repository.RBACRepository, cfg Config) (*Registry, error) {
	if strings.TrimSpace(cfg.DefaultRole) == "" {
		return nil, errors.New("rbac: default role is required")
	}
	r := &Registry{
		repo:        repo,
		roleMap:     make(map[string]string, len(cfg.RoleMap)),
		defaultRole: cfg.DefaultRole,
		maxStale:    cfg.MaxStaleness,
		now:         time.Now,
	}
	for claim, role := range cfg.RoleMap {
		r.roleMap[normalizeClaim(claim)] = role
	}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload lee el catálogo completo y publica un snapshot nuevo. Recargas
// concurrentes comparten la misma lectura.
func (r *Registry) Reload(ctx context.Context) error {
	_, err, _ := r.sf.Do("reload", func() (any, error) {
		return nil, r.load(ctx)
	})
	return err
}

func (r *Registry) load(ctx context.Context) error {
	gen := r.gen.Add(1)
	cat, err := r.repo.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	r.publish(build(cat, r.now(), gen))
	return nil
}

// publish nunca reemplaza un snapshot leído después de s.
func (r *Registry) publish(s *snapshot) {
	for {
		old := r.cur.Load()
		if old != nil && old.gen > s.gen {
			return
		}
		if r.cur.CompareAndSwap(old, s) {
			return
		}
	}
}

func build(cat types.Catalog, at time.Time, gen uint64) *snapshot {
	s := &snapshot{
		gen:      gen,
		roles:    make(map[string]types.Role, len(cat.Roles)),
		sets:     make(map[string]types.PermissionSet, len(cat.Roles)),
		perms:    make(map[string]types.Permission, len(cat.Permissions)),
		loadedAt: at,
	}
	for _, p := range cat.Permissions {
		s.perms[p.Name] = p
	}
	for _, ro := range cat.Roles {
		ro.Permissions = append([]string(nil), ro.Permissions...)
		s.roles[ro.Name] = ro
		s.sets[ro.Name] = types.NewPermissionSet(ro.Permissions...)
	}
	return s
}

// current retorna el snapshot vigente, recargando si está vencido. Si la
// recarga falla se sigue sirviendo el último snapshot bueno.
func (r *Registry) current(ctx context.Context) *snapshot {
	s := r.cur.Load()
	if r.maxStale > 0 && r.now().Sub(s.loadedAt) > r.maxStale {
		if err := r.Reload(ctx); err != nil {
			logger.From(ctx).Warn("rbac reload failed, serving stale snapshot",
				logger.Component("rbac"), logger.Err(err))
		}
		s = r.cur.Load()
	}
	return s
}

// PermissionsOf retorna el set de permisos del rol. El set pertenece a un
// snapshot inmutable: nunca refleja una mutación a medias. Rol desconocido
// = set vacío.
func (r *Registry) PermissionsOf(ctx context.Context, role string) types.PermissionSet {
	if set, ok := r.current(ctx).sets[role]; ok {
		return set
	}
	return types.PermissionSet{}
}

// HasRole indica si el rol existe en el snapshot vigente.
func (r *Registry) HasRole(ctx context.Context, role string) bool {
	_, ok := r.current(ctx).roles[role]
	return ok
}

// MapExternalRole traduce un claim del IdP a un rol interno. Solo match
// exacto case-insensitive; sin match, o si el rol destino no existe, retorna
// el rol por defecto.
func (r *Registry) MapExternalRole(ctx context.Context, claim string) string {
	role, ok := r.roleMap[normalizeClaim(claim)]
	if !ok || !r.HasRole(ctx, role) {
		return r.defaultRole
	}
	return role
}

func (r *Registry) DefaultRole() string { return r.defaultRole }

// Roles lista los roles ordenados por nombre.
func (r *Registry) Roles(ctx context.Context) []types.Role {
	s := r.current(ctx)
	out := make([]types.Role, 0, len(s.roles))
	for _, ro := range s.roles {
		out = append(out, ro)
	}
	sortRoles(out)
	return out
}

// Permissions lista el catálogo de permisos ordenado por nombre.
func (r *Registry) Permissions(ctx context.Context) []types.Permission {
	s := r.current(ctx)
	out := make([]types.Permission, 0, len(s.perms))
	for _, p := range s.perms {
		out = append(out, p)
	}
	sortPermissions(out)
	return out
}

// mutate ejecuta fn contra el repo y recarga el snapshot aunque fn falle
// (una falla parcial en el driver puede haber cambiado algo). La lectura es
// propia: sumarse a una recarga en vuelo publicaría el catálogo anterior.
func (r *Registry) mutate(ctx context.Context, fn func(repository.RBACRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := fn(r.repo)
	if rerr := r.load(ctx); rerr != nil && err == nil {
		return rerr
	}
	return err
}

func normalizeClaim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
