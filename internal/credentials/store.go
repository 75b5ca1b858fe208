// Package credentials verifica email/password contra los usuarios locales y
// aplica el bloqueo por intentos fallidos.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/metrics"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"github.com/dropDatabas3/gatekeeper/internal/security/lockout"
	"github.com/dropDatabas3/gatekeeper/internal/security/password"
	"go.uber.org/zap"
)

var (
	ErrNotFound           = errors.New("credentials: user not found")
	ErrInvalidCredentials = errors.New("credentials: invalid credentials")
	ErrAccountLocked      = errors.New("credentials: account locked")
)

type Store struct {
	users  repository.UserRepository
	policy *lockout.Policy
}

func New(users repository.UserRepository, policy *lockout.Policy) *Store {
	return &Store{users: users, policy: policy}
}

// Verify retorna el usuario si el password coincide. El orden importa:
// primero lockout (sin tocar el hash), después lookup y comparación.
func (s *Store) Verify(ctx context.Context, email, plain string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	log := logger.From(ctx).With(logger.Component("credentials"), logger.Op("Verify"), logger.MaskedEmail(email))

	locked, err := s.policy.Locked(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lockout check: %w", err)
	}
	if locked {
		metrics.Lockouts.Inc()
		log.Info("login rejected, account locked")
		return nil, ErrAccountLocked
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var hash string
	var ok bool
	if u != nil {
		hash, ok = u.PasswordHash()
	}
	if !ok {
		password.Verify(plain, password.Dummy())
		s.fail(ctx, log, email)
		return nil, ErrNotFound
	}

	if !password.Verify(plain, hash) {
		s.fail(ctx, log, email)
		return nil, ErrInvalidCredentials
	}

	if err := s.policy.Reset(ctx, email); err != nil {
		log.Warn("lockout reset failed", logger.Err(err))
	}
	return u, nil
}

// fail cuenta el fallo. Un error del contador no cambia el resultado del login.
func (s *Store) fail(ctx context.Context, log *zap.Logger, email string) {
	n, err := s.policy.RegisterFailure(ctx, email)
	if err != nil {
		log.Warn("lockout increment failed", logger.Err(err))
		return
	}
	if n == s.policy.Threshold() {
		log.Warn("account locked after repeated failures", logger.Int("failures", int(n)))
	}
}
