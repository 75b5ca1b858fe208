// Package handlers contiene los controllers HTTP del core de identidad.
// Cada operación protegida recibe el bearer token crudo y delega la
// autorización (y su auditoría) en el servicio.
package handlers

import (
	"context"

	"github.com/dropDatabas3/gatekeeper/internal/auth"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/jwt"
)

// Authenticator lo implementa *auth.Service.
type Authenticator interface {
	AuthenticateLocal(ctx context.Context, email, password string) (jwt.Token, error)
	AuthenticateFederated(ctx context.Context, raw string) (jwt.Token, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, token, perm string) (types.Identity, error)
}

type Account interface {
	Me(ctx context.Context, token string) (auth.Dashboard, error)
}

type UserAdmin interface {
	ListUsers(ctx context.Context, token string, f repository.ListUsersFilter) ([]types.User, error)
	CreateUser(ctx context.Context, token string, in auth.NewUser) (*types.User, error)
	SetRole(ctx context.Context, token, userID, role string) (*types.User, error)
	SetActive(ctx context.Context, token, userID string, active bool) (*types.User, error)
}

type Directory interface {
	AuditLogs(ctx context.Context, token string, f repository.AuditFilter) ([]types.AuditEntry, error)
	Roles(ctx context.Context, token string) ([]types.Role, error)
	Permissions(ctx context.Context, token string) ([]types.Permission, error)
}

// RoleAdmin lo implementa *rbac.Admin.
type RoleAdmin interface {
	CreateRole(ctx context.Context, token, name, description string) error
	DeleteRole(ctx context.Context, token, name string) error
	CreatePermission(ctx context.Context, token, name, description string) error
	DeletePermission(ctx context.Context, token, name string) error
	AssignPermission(ctx context.Context, token, role, perm string) error
	RevokePermission(ctx context.Context, token, role, perm string) error
}

// SPMetadata lo implementa *saml.Adapter.
type SPMetadata interface {
	Metadata() ([]byte, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}
