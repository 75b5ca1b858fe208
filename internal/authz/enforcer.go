// Package authz decide si un bearer token habilita un permiso. Cada decisión
// (permitida, denegada o fallida) deja exactamente una entrada de auditoría.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/gatekeeper/internal/audit"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/jwt"
	"github.com/dropDatabas3/gatekeeper/internal/metrics"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// TokenValidator lo implementa *jwt.Service.
type TokenValidator interface {
	Validate(raw string) (jwt.Claims, error)
}

// PermissionSource lo implementa *rbac.Registry.
type PermissionSource interface {
	PermissionsOf(ctx context.Context, role string) types.PermissionSet
}

type Enforcer struct {
	tokens TokenValidator
	perms  PermissionSource
	users  repository.UserRepository
	audit  *audit.Logger
}

func NewEnforcer(tokens TokenValidator, perms PermissionSource, users repository.UserRepository, al *audit.Logger) *Enforcer {
	return &Enforcer{tokens: tokens, perms: perms, users: users, audit: al}
}

// Authorize valida el token, resuelve los permisos del rol que trae y
// verifica que el usuario siga activo. El chequeo de active va después de
// resolver permisos y gana sobre cualquier grant.
func (e *Enforcer) Authorize(ctx context.Context, token, perm string) (types.Identity, error) {
	log := logger.From(ctx).With(logger.Component("authz"), logger.Permission(perm))
	entry := types.AuditEntry{Action: audit.ActionAuthorize, Target: perm}

	claims, err := e.tokens.Validate(token)
	if err != nil {
		e.decide(ctx, entry, types.OutcomeDenied, err.Error())
		return types.Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	entry.ActorID = types.Actor(claims.UserID)

	set := e.perms.PermissionsOf(ctx, claims.Role)
	if !set.Has(perm) {
		e.decide(ctx, entry, types.OutcomeDenied, "role "+claims.Role+" lacks "+perm)
		return types.Identity{}, ErrForbidden
	}

	u, err := e.users.GetByID(ctx, claims.UserID)
	switch {
	case repository.IsNotFound(err):
		e.decide(ctx, entry, types.OutcomeDenied, "user inactive")
		return types.Identity{}, ErrForbidden
	case err != nil:
		log.Error("authz user lookup failed", logger.UserID(claims.UserID), logger.Err(err))
		e.decide(ctx, entry, types.OutcomeError, "user lookup failed")
		return types.Identity{}, fmt.Errorf("authz: get user: %w", err)
	case !u.Active:
		e.decide(ctx, entry, types.OutcomeDenied, "user inactive")
		return types.Identity{}, ErrForbidden
	}

	e.decide(ctx, entry, types.OutcomeSuccess, "")
	return types.Identity{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        claims.Role,
		Permissions: set,
	}, nil
}

func (e *Enforcer) decide(ctx context.Context, entry types.AuditEntry, outcome types.Outcome, detail string) {
	entry.Outcome = outcome
	entry.Detail = detail
	metrics.AuthzDecisions.WithLabelValues(string(outcome)).Inc()
	e.audit.Record(ctx, entry)
}

// Identify resuelve el principal de un token sin exigir permiso. Lo usa
// /api/me; no genera entrada de auditoría porque no es una decisión de acceso.
func (e *Enforcer) Identify(ctx context.Context, token string) (types.Identity, error) {
	claims, err := e.tokens.Validate(token)
	if err != nil {
		return types.Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	u, err := e.users.GetByID(ctx, claims.UserID)
	switch {
	case repository.IsNotFound(err):
		return types.Identity{}, ErrForbidden
	case err != nil:
		return types.Identity{}, fmt.Errorf("authz: get user: %w", err)
	case !u.Active:
		return types.Identity{}, ErrForbidden
	}
	return types.Identity{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        claims.Role,
		Permissions: e.perms.PermissionsOf(ctx, claims.Role),
	}, nil
}
