package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dropDatabas3/gatekeeper/internal/audit"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/rbac"
	"github.com/dropDatabas3/gatekeeper/internal/security/password"
)

// ErrSelfDeactivation: un admin no puede darse de baja a sí mismo.
var ErrSelfDeactivation = errors.New("auth: cannot deactivate own account")

// NewUser es el alta manual de un usuario local.
type NewUser struct {
	Email       string
	DisplayName string
	Password    string
	Role        string
}

// ListUsers requiere users:read.
func (s *Service) ListUsers(ctx context.Context, token string, f repository.ListUsersFilter) ([]types.User, error) {
	if _, err := s.Authorize(ctx, token, rbac.PermReadUsers); err != nil {
		return nil, err
	}
	return s.d.Users.List(ctx, f)
}

// CreateUser da de alta un usuario local. Requiere users:manage; el password
// pasa por la policy antes de hashearse.
func (s *Service) CreateUser(ctx context.Context, token string, in NewUser) (*types.User, error) {
	id, err := s.Authorize(ctx, token, rbac.PermManageUsers)
	if err != nil {
		return nil, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = s.d.Registry.DefaultRole()
	}

	u, err := s.createUser(ctx, in)
	s.recordAdmin(ctx, id, audit.ActionUserCreate, in.Email, "role="+in.Role, err)
	return u, err
}

func (s *Service) createUser(ctx context.Context, in NewUser) (*types.User, error) {
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: email", repository.ErrInvalidInput)
	}
	if !s.d.Registry.HasRole(ctx, in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", repository.ErrInvalidInput, in.Role)
	}
	if err := s.d.Policy.Validate(in.Password); err != nil {
		return nil, err
	}
	hash, err := password.Hash(s.d.Hash, in.Password)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(in.Email, "@")
	}
	u := &types.User{
		Email:       in.Email,
		DisplayName: name,
		Credentials: types.LocalCredentials{PasswordHash: hash},
		Role:        in.Role,
		Active:      true,
	}
	if err := s.d.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetRole cambia el rol de un usuario. En usuarios federados el próximo
// login vuelve a aplicar el rol mapeado desde el IdP.
func (s *Service) SetRole(ctx context.Context, token, userID, role string) (*types.User, error) {
	id, err := s.Authorize(ctx, token, rbac.PermManageUsers)
	if err != nil {
		return nil, err
	}
	u, err := s.updateUser(ctx, userID, func(u *types.User) error {
		if !s.d.Registry.HasRole(ctx, role) {
			return fmt.Errorf("%w: unknown role %q", repository.ErrInvalidInput, role)
		}
		u.Role = role
		return nil
	})
	s.recordAdmin(ctx, id, audit.ActionUserRoleChange, userID, "role="+role, err)
	return u, err
}

// SetActive activa o da de baja un usuario. Un usuario inactivo no pasa
// ninguna autorización aunque su rol lo habilite.
func (s *Service) SetActive(ctx context.Context, token, userID string, active bool) (*types.User, error) {
	id, err := s.Authorize(ctx, token, rbac.PermManageUsers)
	if err != nil {
		return nil, err
	}
	u, err := s.updateUser(ctx, userID, func(u *types.User) error {
		if !active && u.ID == id.UserID {
			return ErrSelfDeactivation
		}
		u.Active = active
		return nil
	})
	s.recordAdmin(ctx, id, audit.ActionUserStatusChange, userID, "active="+strconv.FormatBool(active), err)
	return u, err
}

func (s *Service) updateUser(ctx context.Context, userID string, fn func(*types.User) error) (*types.User, error) {
	u, err := s.d.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	if err := s.d.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) recordAdmin(ctx context.Context, actor types.Identity, action, target, detail string, err error) {
	e := types.AuditEntry{
		ActorID: types.Actor(actor.UserID),
		Action:  action,
		Target:  target,
		Outcome: types.OutcomeSuccess,
		Detail:  detail,
	}
	if err != nil {
		e.Outcome = types.OutcomeDenied
		if !isClientError(err) {
			e.Outcome = types.OutcomeError
		}
		e.Detail = detail + ": " + err.Error()
	}
	s.d.Audit.Record(ctx, e)
}

func isClientError(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrConflict) ||
		errors.Is(err, repository.ErrInvalidInput) ||
		errors.Is(err, ErrSelfDeactivation) ||
		password.IsPolicyError(err)
}
