package handlers

import (
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/jwt"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	RelayState  string    `json:"relay_state,omitempty"`
}

func tokenResponse(t jwt.Token, now time.Time) TokenResponse {
	in := int64(t.ExpiresAt.Sub(now).Seconds())
	if in < 0 {
		in = 0
	}
	return TokenResponse{
		AccessToken: t.Value,
		TokenType:   t.Type,
		ExpiresIn:   in,
		ExpiresAt:   t.ExpiresAt,
	}
}

// UserResponse nunca expone credenciales.
type UserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	ExternalRole string    `json:"external_role,omitempty"`
	AuthMethod   string    `json:"auth_method"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func userResponse(u types.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Role:         u.Role,
		ExternalRole: u.ExternalRole,
		AuthMethod:   string(u.Method()),
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type CreateUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

type SetRoleRequest struct {
	Role string `json:"role"`
}

type SetActiveRequest struct {
	Active *bool `json:"active"`
}

type RoleResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type PermissionResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreatePermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AssignPermissionRequest struct {
	Permission string `json:"permission"`
}

type AuditEntryResponse struct {
	ID        string    `json:"id"`
	ActorID   *string   `json:"actor_id"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func auditResponses(in []types.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(in))
	for _, e := range in {
		out = append(out, AuditEntryResponse{
			ID:        e.ID,
			ActorID:   e.ActorID,
			Action:    e.Action,
			Target:    e.Target,
			Outcome:   string(e.Outcome),
			Detail:    e.Detail,
			RequestID: e.RequestID,
			IP:        e.IP,
			Timestamp: e.Timestamp,
		})
	}
	return out
}

type MeResponse struct {
	UserID         string               `json:"user_id"`
	Email          string               `json:"email"`
	DisplayName    string               `json:"display_name"`
	Role           string               `json:"role"`
	Permissions    []string             `json:"permissions"`
	RecentActivity []AuditEntryResponse `json:"recent_activity"`
}

type AuthorizeRequest struct {
	Permission string `json:"permission"`
}

type AuthorizeResponse struct {
	Allowed    bool   `json:"allowed"`
	Permission string `json:"permission"`
	UserID     string `json:"user_id,omitempty"`
	Role       string `json:"role,omitempty"`
}
