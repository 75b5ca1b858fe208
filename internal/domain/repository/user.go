package repository

import (
	"context"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
)

// ListUsersFilter opciones para listar usuarios.
type ListUsersFilter struct {
	Limit  int    // Default 50, max 200
	Offset int    // Default 0
	Search string // Opcional: email o display name
	Role   string // Opcional
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*types.User, error)

	// GetByEmail compara case-insensitive. Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*types.User, error)

	// GetBySubject busca por subject federado exacto.
	GetBySubject(ctx context.Context, subject string) (*types.User, error)

	// Create inserta el usuario. Si ID/CreatedAt están vacíos el driver los
	// completa. Retorna ErrDuplicateEmail / ErrDuplicateSubject ante
	// violaciones de unicidad y ErrInvalidInput si el rol no existe.
	Create(ctx context.Context, u *types.User) error

	// Update persiste email, display name, credenciales, rol, rol externo y
	// active. Mismos errores que Create; ErrNotFound si no existe.
	Update(ctx context.Context, u *types.User) error

	// UpdatePasswordHash reemplaza solo el hash de un usuario que ya tiene
	// uno; el resto de la fila no se toca. ErrNotFound si no existe o no
	// tiene password.
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	List(ctx context.Context, f ListUsersFilter) ([]types.User, error)
}
