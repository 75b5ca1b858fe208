// Package identity resuelve el usuario canónico a partir de una
// autenticación local o federada, provisionando usuarios federados en su
// primer login (JIT).
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/audit"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/metrics"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrIdentityConflict: el email de la assertion ya pertenece a otro
	// subject federado (o a otro usuario distinto del que trae el subject).
	ErrIdentityConflict = errors.New("identity: email bound to a different identity")
	ErrInvalidClaims    = errors.New("identity: subject and email are required")
)

const resolveTimeout = 10 * time.Second

// RoleMapper traduce el claim de rol del IdP a un rol interno.
type RoleMapper interface {
	MapExternalRole(ctx context.Context, claim string) string
}

// Resultado del provisioning, se usa como label de métrica y en auditoría.
const (
	kindCreated   = "created"
	kindLinked    = "linked"
	kindUpdated   = "updated"
	kindUnchanged = "unchanged"
)

type Resolver struct {
	users repository.UserRepository
	roles RoleMapper
	audit *audit.Logger
	sf    singleflight.Group
}

func NewResolver(users repository.UserRepository, roles RoleMapper, al *audit.Logger) *Resolver {
	return &Resolver{users: users, roles: roles, audit: al}
}

// ResolveLocal retorna el usuario tal cual: la autenticación local ya
// identifica al registro canónico.
func (r *Resolver) ResolveLocal(_ context.Context, u *types.User) (*types.User, error) {
	if u == nil {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

// ResolveFederated busca o crea el usuario dueño del subject. Logins
// concurrentes del mismo subject en este proceso comparten el trabajo; entre
// procesos el índice único sobre el subject decide y el perdedor relee.
func (r *Resolver) ResolveFederated(ctx context.Context, c types.FederatedClaims) (*types.User, error) {
	c.SubjectID = strings.TrimSpace(c.SubjectID)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.SubjectID == "" || c.Email == "" {
		return nil, ErrInvalidClaims
	}

	v, err, _ := r.sf.Do(c.SubjectID, func() (any, error) {
		// el resultado es compartido: no puede depender de la cancelación
		// del request que llegó primero
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()
		return r.resolve(sctx, c)
	})
	if err != nil {
		return nil, err
	}
	u := *v.(*types.User)
	return &u, nil
}

func (r *Resolver) resolve(ctx context.Context, c types.FederatedClaims) (*types.User, error) {
	log := logger.From(ctx).With(logger.Component("identity"), logger.Op("ResolveFederated"), logger.Subject(c.SubjectID))
	role := r.roles.MapExternalRole(ctx, c.ExternalRole)

	var lastErr error
	// un segundo intento cubre la carrera de primer login: el create perdió
	// contra otro proceso y ahora el subject (o el email) ya existe.
	for attempt := 0; attempt < 2; attempt++ {
		u, kind, err := r.resolveOnce(ctx, c, role)
		if err == nil {
			metrics.Provisioned.WithLabelValues(kind).Inc()
			if kind == kindCreated || kind == kindLinked {
				log.Info("federated user provisioned", logger.UserID(u.ID), logger.String("kind", kind), logger.Role(u.Role))
				r.audit.Record(ctx, types.AuditEntry{
					ActorID: types.Actor(u.ID),
					Action:  audit.ActionUserProvision,
					Target:  u.ID,
					Detail:  kind + " role=" + u.Role,
				})
			}
			return u, nil
		}
		if !errors.Is(err, repository.ErrDuplicateSubject) && !errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, err
		}
		log.Debug("provisioning race, re-reading", logger.Err(err))
		lastErr = err
	}
	if errors.Is(lastErr, repository.ErrDuplicateEmail) {
		return nil, ErrIdentityConflict
	}
	return nil, fmt.Errorf("identity: resolve subject: %w", lastErr)
}

func (r *Resolver) resolveOnce(ctx context.Context, c types.FederatedClaims, role string) (*types.User, string, error) {
	// 1) subject conocido
	u, err := r.users.GetBySubject(ctx, c.SubjectID)
	switch {
	case err == nil:
		return r.refresh(ctx, u, c, role)
	case !repository.IsNotFound(err):
		return nil, "", fmt.Errorf("get by subject: %w", err)
	}

	// 2) email existente sin subject: se vincula
	u, err = r.users.GetByEmail(ctx, c.Email)
	switch {
	case err == nil:
		if _, bound := u.FederatedSubject(); bound {
			return nil, "", ErrIdentityConflict
		}
		hash, _ := u.PasswordHash()
		u.Credentials = types.FederatedCredentials{SubjectID: c.SubjectID, PasswordHash: hash}
		applyClaims(u, c, role)
		if err := r.users.Update(ctx, u); err != nil {
			return nil, "", err
		}
		return u, kindLinked, nil
	case !repository.IsNotFound(err):
		return nil, "", fmt.Errorf("get by email: %w", err)
	}

	// 3) alta
	u = &types.User{
		Credentials: types.FederatedCredentials{SubjectID: c.SubjectID},
		Active:      true,
	}
	applyClaims(u, c, role)
	if err := r.users.Create(ctx, u); err != nil {
		return nil, "", err
	}
	return u, kindCreated, nil
}

// refresh sincroniza los atributos que el IdP gobierna. Active no se toca:
// una baja local no se revierte con un login federado.
func (r *Resolver) refresh(ctx context.Context, u *types.User, c types.FederatedClaims, role string) (*types.User, string, error) {
	before := *u
	applyClaims(u, c, role)
	if before.Email == u.Email && before.DisplayName == u.DisplayName &&
		before.Role == u.Role && before.ExternalRole == u.ExternalRole {
		return u, kindUnchanged, nil
	}
	if err := r.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", ErrIdentityConflict
		}
		return nil, "", fmt.Errorf("update user: %w", err)
	}
	return u, kindUpdated, nil
}

func applyClaims(u *types.User, c types.FederatedClaims, role string) {
	u.Email = c.Email
	if c.DisplayName != "" {
		u.DisplayName = c.DisplayName
	}
	u.ExternalRole = c.ExternalRole
	u.Role = role
}
