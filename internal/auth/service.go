// Package auth es la fachada del core de identidad: login local, login
// federado (SAML) y autorización, más la administración de usuarios.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/gatekeeper/internal/audit"
	"github.com/dropDatabas3/gatekeeper/internal/authz"
	"github.com/dropDatabas3/gatekeeper/internal/credentials"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/identity"
	"github.com/dropDatabas3/gatekeeper/internal/jwt"
	"github.com/dropDatabas3/gatekeeper/internal/metrics"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"github.com/dropDatabas3/gatekeeper/internal/rbac"
	"github.com/dropDatabas3/gatekeeper/internal/saml"
	"github.com/dropDatabas3/gatekeeper/internal/security/password"
)

const (
	methodLocal = "local"
	methodSAML  = "saml"
)

// AssertionValidator lo implementa *saml.Adapter.
type AssertionValidator interface {
	Validate(ctx context.Context, raw string) (types.FederatedClaims, error)
}

// Deps agrupa los componentes que la fachada orquesta.
type Deps struct {
	Users       repository.UserRepository
	Credentials *credentials.Store
	SAML        AssertionValidator // nil deshabilita el login federado
	Resolver    *identity.Resolver
	Registry    *rbac.Registry
	Tokens      *jwt.Service
	Enforcer    *authz.Enforcer
	Audit       *audit.Logger
	Policy      password.Policy
	Hash        password.Params
}

type Service struct {
	d Deps
}

func NewService(d Deps) *Service {
	if d.Hash == (password.Params{}) {
		d.Hash = password.Default
	}
	return &Service{d: d}
}

// AuthenticateLocal verifica email/password y emite un token.
func (s *Service) AuthenticateLocal(ctx context.Context, email, plain string) (jwt.Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	entry := types.AuditEntry{Action: audit.ActionLocalLogin, Target: email}

	u, err := s.d.Credentials.Verify(ctx, email, plain)
	if err != nil {
		if isCredentialFailure(err) {
			return jwt.Token{}, s.deny(ctx, methodLocal, entry, err)
		}
		return jwt.Token{}, s.fault(ctx, methodLocal, entry, err)
	}
	u, err = s.d.Resolver.ResolveLocal(ctx, u)
	if err != nil {
		return jwt.Token{}, s.fault(ctx, methodLocal, entry, err)
	}
	entry.ActorID = types.Actor(u.ID)
	if !u.Active {
		return jwt.Token{}, s.deny(ctx, methodLocal, entry, ErrUserInactive)
	}

	s.upgradeHash(ctx, u, plain)
	return s.issue(ctx, methodLocal, entry, u)
}

// AuthenticateFederated valida la assertion, resuelve (o provisiona) al
// usuario y emite un token.
func (s *Service) AuthenticateFederated(ctx context.Context, raw string) (jwt.Token, error) {
	entry := types.AuditEntry{Action: audit.ActionSAMLLogin}
	if s.d.SAML == nil {
		return jwt.Token{}, s.fault(ctx, methodSAML, entry, errors.New("saml login is not configured"))
	}

	claims, err := s.d.SAML.Validate(ctx, raw)
	if err != nil {
		if isAssertionFailure(err) {
			return jwt.Token{}, s.deny(ctx, methodSAML, entry, err)
		}
		return jwt.Token{}, s.fault(ctx, methodSAML, entry, err)
	}
	entry.Target = claims.SubjectID

	u, err := s.d.Resolver.ResolveFederated(ctx, claims)
	if err != nil {
		if errors.Is(err, identity.ErrIdentityConflict) || errors.Is(err, identity.ErrInvalidClaims) {
			return jwt.Token{}, s.deny(ctx, methodSAML, entry, err)
		}
		return jwt.Token{}, s.fault(ctx, methodSAML, entry, err)
	}
	entry.ActorID = types.Actor(u.ID)
	if !u.Active {
		return jwt.Token{}, s.deny(ctx, methodSAML, entry, ErrUserInactive)
	}
	return s.issue(ctx, methodSAML, entry, u)
}

// Authorize delega en el enforcer (que audita la decisión).
func (s *Service) Authorize(ctx context.Context, token, perm string) (types.Identity, error) {
	return s.d.Enforcer.Authorize(ctx, token, perm)
}

func (s *Service) issue(ctx context.Context, method string, entry types.AuditEntry, u *types.User) (jwt.Token, error) {
	tok, err := s.d.Tokens.Issue(*u)
	if err != nil {
		return jwt.Token{}, s.fault(ctx, method, entry, err)
	}
	entry.Outcome = types.OutcomeSuccess
	entry.Detail = "role=" + u.Role
	metrics.LoginAttempts.WithLabelValues(method, string(types.OutcomeSuccess)).Inc()
	s.d.Audit.Record(ctx, entry)
	logger.From(ctx).Info("login succeeded",
		logger.Component("auth"), logger.String("method", method), logger.UserID(u.ID), logger.Role(u.Role))
	return tok, nil
}

func (s *Service) deny(ctx context.Context, method string, entry types.AuditEntry, reason error) error {
	entry.Outcome = types.OutcomeDenied
	entry.Detail = reason.Error()
	metrics.LoginAttempts.WithLabelValues(method, string(types.OutcomeDenied)).Inc()
	s.d.Audit.Record(ctx, entry)
	return failed(reason)
}

// fault registra una falla de infraestructura. No es un *Error: la capa HTTP
// la responde como 500 y no como 401.
func (s *Service) fault(ctx context.Context, method string, entry types.AuditEntry, err error) error {
	entry.Outcome = types.OutcomeError
	entry.Detail = err.Error()
	metrics.LoginAttempts.WithLabelValues(method, string(types.OutcomeError)).Inc()
	s.d.Audit.Record(ctx, entry)
	logger.From(ctx).Error("login failed", logger.Component("auth"), logger.String("method", method), logger.Err(err))
	return fmt.Errorf("auth: %s login: %w", method, err)
}

// upgradeHash rehashea passwords con parámetros viejos o bcrypt heredado.
// Un fallo no afecta el login.
func (s *Service) upgradeHash(ctx context.Context, u *types.User, plain string) {
	hash, ok := u.PasswordHash()
	if !ok || !password.NeedsRehash(s.d.Hash, hash) {
		return
	}
	fresh, err := password.Hash(s.d.Hash, plain)
	if err == nil {
		// solo la columna del hash: no pisa cambios de rol o active concurrentes
		err = s.d.Users.UpdatePasswordHash(ctx, u.ID, fresh)
	}
	if err == nil {
		u.SetPasswordHash(fresh)
	}
	if err != nil {
		logger.From(ctx).Warn("password rehash failed", logger.Component("auth"), logger.UserID(u.ID), logger.Err(err))
	}
}

func isCredentialFailure(err error) bool {
	return errors.Is(err, credentials.ErrNotFound) ||
		errors.Is(err, credentials.ErrInvalidCredentials) ||
		errors.Is(err, credentials.ErrAccountLocked)
}

func isAssertionFailure(err error) bool {
	for _, target := range []error{
		saml.ErrMalformed, saml.ErrInvalidSignature, saml.ErrExpired,
		saml.ErrAudienceMismatch, saml.ErrReplayed, saml.ErrMissingClaim,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
