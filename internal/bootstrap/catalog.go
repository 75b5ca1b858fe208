// Package bootstrap siembra el catálogo RBAC y el primer Super Admin.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"github.com/dropDatabas3/gatekeeper/internal/rbac"
)

// SeedResult cuenta lo que efectivamente se creó.
type SeedResult struct {
	Permissions int
	Roles       int
}

// SeedCatalog crea los permisos y roles por defecto que falten y completa los
// grants de cada rol. Es idempotente: no borra ni revoca nada existente.
func SeedCatalog(ctx context.Context, repo repository.RBACRepository) (SeedResult, error) {
	return seed(ctx, repo, rbac.DefaultPermissions, rbac.DefaultRoles())
}

func seed(ctx context.Context, repo repository.RBACRepository, perms []types.Permission, roles []types.Role) (SeedResult, error) {
	log := logger.From(ctx).With(logger.Component("bootstrap"), logger.Op("SeedCatalog"))
	var res SeedResult

	for _, p := range perms {
		err := repo.CreatePermission(ctx, p)
		switch {
		case err == nil:
			res.Permissions++
		case errors.Is(err, repository.ErrConflict):
		default:
			return res, fmt.Errorf("seed permission %s: %w", p.Name, err)
		}
	}

	for _, role := range roles {
		err := repo.CreateRole(ctx, types.Role{Name: role.Name, Description: role.Description})
		switch {
		case err == nil:
			res.Roles++
		case errors.Is(err, repository.ErrConflict):
		default:
			return res, fmt.Errorf("seed role %s: %w", role.Name, err)
		}
		for _, p := range role.Permissions {
			if err := repo.AddRolePermission(ctx, role.Name, p); err != nil {
				return res, fmt.Errorf("seed grant %s -> %s: %w", p, role.Name, err)
			}
		}
	}

	log.Info("rbac catalog seeded", logger.Int("permissions_created", res.Permissions), logger.Int("roles_created", res.Roles))
	return res, nil
}
