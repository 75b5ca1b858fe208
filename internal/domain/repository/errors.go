package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica una violación de unicidad o de integridad.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateEmail: otro usuario ya tiene ese email.
	ErrDuplicateEmail = fmt.Errorf("%w: email already registered", ErrConflict)

	// ErrDuplicateSubject: otro usuario ya tiene ese subject federado.
	ErrDuplicateSubject = fmt.Errorf("%w: federated subject already registered", ErrConflict)

	// ErrRoleInUse: el rol tiene usuarios asignados.
	ErrRoleInUse = fmt.Errorf("%w: role has assigned users", ErrConflict)
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict (incluye los duplicados).
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
