package auth

import "errors"

// ErrAuthenticationFailed es el único error de autenticación visible para el
// cliente. El motivo real queda en la auditoría.
var ErrAuthenticationFailed = errors.New("authentication failed")

// ErrUserInactive: credenciales válidas pero el usuario está dado de baja.
var ErrUserInactive = errors.New("auth: user inactive")

// Error envuelve el motivo de un login fallido. Error() nunca lo expone;
// errors.Is/As permiten inspeccionarlo en auditoría y tests.
type Error struct {
	Reason error
}

func (e *Error) Error() string { return ErrAuthenticationFailed.Error() }

func (e *Error) Is(target error) bool { return target == ErrAuthenticationFailed }

func (e *Error) Unwrap() error { return e.Reason }

func failed(reason error) error { return &Error{Reason: reason} }
