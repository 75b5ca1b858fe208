// Package memory implementa los repositorios en memoria. Se usa en tests y
// con storage.driver=memory en desarrollo; respeta las mismas restricciones
// de unicidad e integridad que el esquema de PostgreSQL.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	users     map[string]types.User // por ID
	roles     map[string]types.Role // por nombre, Permissions ordenados
	perms     map[string]types.Permission
	audit     []types.AuditEntry
	now       func() time.Time
	appendErr error
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		users: map[string]types.User{},
		roles: map[string]types.Role{},
		perms: map[string]types.Permission{},
		now:   time.Now,
	}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) RBAC() repository.RBACRepository { return rbacRepo{s} }
func (s *Store) Audit() repository.AuditRepository { return auditRepo{s} }
func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() {}

// FailAuditWith hace que Append falle con err (nil restaura). Solo para tests.
func (s *Store) FailAuditWith(err error) {
	s.mu.Lock()
	s.appendErr = err
	s.mu.Unlock()
}

// ---------- users ----------

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id string) (*types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.findByEmail(email); ok {
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) GetBySubject(_ context.Context, subject string) (*types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.findBySubject(subject); ok {
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) Create(_ context.Context, u *types.User) error {
	if u == nil || strings.TrimSpace(u.Email) == "" || u.Credentials == nil {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkUnique(*u, ""); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, exists := r.s.users[u.ID]; exists {
		return repository.ErrConflict
	}
	now := r.s.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) Update(_ context.Context, u *types.User) error {
	if u == nil || u.Credentials == nil {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := r.s.checkUnique(*u, u.ID); err != nil {
		return err
	}
	u.CreatedAt = prev.CreatedAt
	u.UpdatedAt = r.s.now().UTC()
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	if hash == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if _, has := u.PasswordHash(); !has {
		return repository.ErrNotFound
	}
	u.SetPasswordHash(hash)
	u.UpdatedAt = r.s.now().UTC()
	r.s.users[id] = u
	return nil
}

func (r userRepo) List(_ context.Context, f repository.ListUsersFilter) ([]types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]types.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Email), q) &&
			!strings.Contains(strings.ToLower(u.DisplayName), q) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, f.Offset, repository.NormalizeLimit(f.Limit, 50, 200)), nil
}

// checkUnique valida email, subject y FK de rol. skipID excluye al propio usuario.
func (s *Store) checkUnique(u types.User, skipID string) error {
	if _, ok := s.roles[u.Role]; !ok {
		return repository.ErrInvalidInput
	}
	if other, ok := s.findByEmail(u.Email); ok && other.ID != skipID {
		return repository.ErrDuplicateEmail
	}
	if sub, ok := u.FederatedSubject(); ok {
		if other, ok := s.findBySubject(sub); ok && other.ID != skipID {
			return repository.ErrDuplicateSubject
		}
	}
	if skipID != "" {
		// un subject asignado nunca se reasigna ni se pierde
		if prevSub, ok := s.users[skipID].FederatedSubject(); ok {
			if sub, _ := u.FederatedSubject(); sub != prevSub {
				return repository.ErrConflict
			}
		}
	}
	return nil
}

func (s *Store) findByEmail(email string) (types.User, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return u, true
		}
	}
	return types.User{}, false
}

func (s *Store) findBySubject(subject string) (types.User, bool) {
	if subject == "" {
		return types.User{}, false
	}
	for _, u := range s.users {
		if sub, ok := u.FederatedSubject(); ok && sub == subject {
			return u, true
		}
	}
	return types.User{}, false
}

// ---------- rbac ----------

type rbacRepo struct{ s *Store }

func (r rbacRepo) LoadCatalog(context.Context) (types.Catalog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var c types.Catalog
	for _, role := range r.s.roles {
		role.Permissions = append([]string(nil), role.Permissions...)
		c.Roles = append(c.Roles, role)
	}
	for _, p := range r.s.perms {
		c.Permissions = append(c.Permissions, p)
	}
	sort.Slice(c.Roles, func(i, j int) bool { return c.Roles[i].Name < c.Roles[j].Name })
	sort.Slice(c.Permissions, func(i, j int) bool { return c.Permissions[i].Name < c.Permissions[j].Name })
	return c, nil
}

func (r rbacRepo) CreateRole(_ context.Context, role types.Role) error {
	if strings.TrimSpace(role.Name) == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[role.Name]; ok {
		return repository.ErrConflict
	}
	for _, p := range role.Permissions {
		if _, ok := r.s.perms[p]; !ok {
			return repository.ErrNotFound
		}
	}
	role.Permissions = sortedUnique(role.Permissions)
	if role.CreatedAt.IsZero() {
		role.CreatedAt = r.s.now().UTC()
	}
	r.s.roles[role.Name] = role
	return nil
}

func (r rbacRepo) DeleteRole(_ context.Context, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[name]; !ok {
		return repository.ErrNotFound
	}
	for _, u := range r.s.users {
		if u.Role == name {
			return repository.ErrRoleInUse
		}
	}
	delete(r.s.roles, name)
	return nil
}

func (r rbacRepo) CreatePermission(_ context.Context, p types.Permission) error {
	if strings.TrimSpace(p.Name) == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.perms[p.Name]; ok {
		return repository.ErrConflict
	}
	r.s.perms[p.Name] = p
	return nil
}

func (r rbacRepo) DeletePermission(_ context.Context, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.perms[name]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.perms, name)
	for n, role := range r.s.roles {
		role.Permissions = without(role.Permissions, name)
		r.s.roles[n] = role
	}
	return nil
}

func (r rbacRepo) AddRolePermission(_ context.Context, roleName, perm string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[roleName]
	if !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.perms[perm]; !ok {
		return repository.ErrNotFound
	}
	role.Permissions = sortedUnique(append(append([]string(nil), role.Permissions...), perm))
	r.s.roles[roleName] = role
	return nil
}

func (r rbacRepo) RemoveRolePermission(_ context.Context, roleName, perm string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[roleName]
	if !ok {
		return repository.ErrNotFound
	}
	role.Permissions = without(role.Permissions, perm)
	r.s.roles[roleName] = role
	return nil
}

// ---------- audit ----------

type auditRepo struct{ s *Store }

func (r auditRepo) Append(_ context.Context, e types.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.appendErr != nil {
		return r.s.appendErr
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = r.s.now().UTC()
	}
	r.s.audit = append(r.s.audit, e)
	return nil
}

func (r auditRepo) List(_ context.Context, f repository.AuditFilter) ([]types.AuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]types.AuditEntry, 0, len(r.s.audit))
	// más recientes primero
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		e := r.s.audit[i]
		if f.ActorID != "" && (e.ActorID == nil || *e.ActorID != f.ActorID) {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Outcome != "" && e.Outcome != f.Outcome {
			continue
		}
		out = append(out, e)
	}
	return page(out, f.Offset, repository.NormalizeLimit(f.Limit, 100, 500)), nil
}

// ---------- helpers ----------

func page[T any](in []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return []T{}
	}
	end := offset + limit
	if end > len(in) {
		end = len(in)
	}
	return in[offset:end]
}

func sortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func without(in []string, v string) []string {
	out := make([]string, 0, len(in))
	for _, x := range in {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
