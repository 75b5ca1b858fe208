package auth

import (
	"context"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/rbac"
)

const recentActivityLimit = 10

// Dashboard es la vista del usuario autenticado.
type Dashboard struct {
	Identity       types.Identity
	Permissions    []string
	RecentActivity []types.AuditEntry
}

// Me retorna la identidad del token, sus permisos y su actividad reciente.
// Alcanza con un token válido de un usuario activo.
func (s *Service) Me(ctx context.Context, token string) (Dashboard, error) {
	id, err := s.d.Enforcer.Identify(ctx, token)
	if err != nil {
		return Dashboard{}, err
	}
	recent, err := s.d.Audit.List(ctx, repository.AuditFilter{ActorID: id.UserID, Limit: recentActivityLimit})
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Identity:       id,
		Permissions:    id.Permissions.Names(),
		RecentActivity: recent,
	}, nil
}

// AuditLogs lista el trail de auditoría; requiere audit:read.
func (s *Service) AuditLogs(ctx context.Context, token string, f repository.AuditFilter) ([]types.AuditEntry, error) {
	if _, err := s.Authorize(ctx, token, rbac.PermReadAudit); err != nil {
		return nil, err
	}
	return s.d.Audit.List(ctx, f)
}

// Roles lista roles con sus permisos; requiere roles:read.
func (s *Service) Roles(ctx context.Context, token string) ([]types.Role, error) {
	if _, err := s.Authorize(ctx, token, rbac.PermReadRoles); err != nil {
		return nil, err
	}
	return s.d.Registry.Roles(ctx), nil
}

// Permissions lista el catálogo; requiere roles:read.
func (s *Service) Permissions(ctx context.Context, token string) ([]types.Permission, error) {
	if _, err := s.Authorize(ctx, token, rbac.PermReadRoles); err != nil {
		return nil, err
	}
	return s.d.Registry.Permissions(ctx), nil
}
