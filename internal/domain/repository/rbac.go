package repository

import (
	"context"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
)

// RBACRepository define operaciones sobre roles y permisos.
type RBACRepository interface {
	// LoadCatalog retorna roles (con sus permisos) y permisos en una única
	// lectura consistente.
	LoadCatalog(ctx context.Context) (types.Catalog, error)

	// CreateRole retorna ErrConflict si el nombre ya existe.
	CreateRole(ctx context.Context, r types.Role) error

	// DeleteRole retorna ErrNotFound o ErrRoleInUse.
	DeleteRole(ctx context.Context, name string) error

	// CreatePermission retorna ErrConflict si el nombre ya existe.
	CreatePermission(ctx context.Context, p types.Permission) error

	// DeletePermission borra el permiso y lo quita de todos los roles.
	DeletePermission(ctx context.Context, name string) error

	// AddRolePermission es idempotente. ErrNotFound si rol o permiso no existen.
	AddRolePermission(ctx context.Context, role, perm string) error

	// RemoveRolePermission es idempotente. ErrNotFound si el rol no existe.
	RemoveRolePermission(ctx context.Context, role, perm string) error
}
