package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/gatekeeper/internal/audit"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"github.com/dropDatabas3/gatekeeper/internal/validation"
)

// Authorizer valida token + permiso. Lo implementa authz.Enforcer; se define
// acá para no importar authz (que depende de Registry).
type Authorizer interface {
	Authorize(ctx context.Context, token, perm string) (types.Identity, error)
}

// Admin expone las mutaciones del registry protegidas por roles:manage.
// Cada mutación exitosa o fallida deja una entrada de auditoría.
type Admin struct {
	reg   *Registry
	authz Authorizer
	audit *audit.Logger
}

func NewAdmin(reg *Registry, authz Authorizer, al *audit.Logger) *Admin {
	return &Admin{reg: reg, authz: authz, audit: al}
}

// CreateRole crea un rol vacío (sin permisos).
func (a *Admin) CreateRole(ctx context.Context, token, name, description string) error {
	name = strings.TrimSpace(name)
	return a.guarded(ctx, token, audit.ActionRoleCreate, name, func(repo repository.RBACRepository) error {
		if !validation.ValidRoleName(name) {
			return fmt.Errorf("%w: invalid role name %q", repository.ErrInvalidInput, name)
		}
		return repo.CreateRole(ctx, types.Role{Name: name, Description: strings.TrimSpace(description)})
	})
}

// DeleteRole falla con repository.ErrRoleInUse si hay usuarios con el rol.
func (a *Admin) DeleteRole(ctx context.Context, token, name string) error {
	return a.guarded(ctx, token, audit.ActionRoleDelete, name, func(repo repository.RBACRepository) error {
		return repo.DeleteRole(ctx, name)
	})
}

func (a *Admin) CreatePermission(ctx context.Context, token, name, description string) error {
	name = strings.TrimSpace(name)
	return a.guarded(ctx, token, audit.ActionPermCreate, name, func(repo repository.RBACRepository) error {
		if !validation.ValidPermissionName(name) {
			return fmt.Errorf("%w: permission must look like resource:action", repository.ErrInvalidInput)
		}
		return repo.CreatePermission(ctx, types.Permission{Name: name, Description: strings.TrimSpace(description)})
	})
}

// DeletePermission quita el permiso del catálogo y de todos los roles.
func (a *Admin) DeletePermission(ctx context.Context, token, name string) error {
	return a.guarded(ctx, token, audit.ActionPermDelete, name, func(repo repository.RBACRepository) error {
		return repo.DeletePermission(ctx, name)
	})
}

func (a *Admin) AssignPermission(ctx context.Context, token, role, perm string) error {
	return a.guarded(ctx, token, audit.ActionPermAssign, role+"/"+perm, func(repo repository.RBACRepository) error {
		return repo.AddRolePermission(ctx, role, perm)
	})
}

func (a *Admin) RevokePermission(ctx context.Context, token, role, perm string) error {
	return a.guarded(ctx, token, audit.ActionPermRevoke, role+"/"+perm, func(repo repository.RBACRepository) error {
		return repo.RemoveRolePermission(ctx, role, perm)
	})
}

func (a *Admin) guarded(ctx context.Context, token, action, target string, fn func(repository.RBACRepository) error) error {
	id, err := a.authz.Authorize(ctx, token, PermManageRoles)
	if err != nil {
		// el enforcer ya auditó la denegación
		return err
	}

	err = a.reg.mutate(ctx, fn)
	entry := types.AuditEntry{
		ActorID: types.Actor(id.UserID),
		Action:  action,
		Target:  target,
		Outcome: types.OutcomeSuccess,
	}
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrInvalidInput):
		entry.Outcome = types.OutcomeDenied
		entry.Detail = err.Error()
	default:
		entry.Outcome = types.OutcomeError
		entry.Detail = err.Error()
		logger.From(ctx).Error("rbac mutation failed",
			logger.Component("rbac"), logger.Action(action), logger.String("target", target), logger.Err(err))
	}
	a.audit.Record(ctx, entry)
	return err
}
