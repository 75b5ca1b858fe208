// Package errors traduce errores de dominio a respuestas HTTP.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/gatekeeper/internal/auth"
	"github.com/dropDatabas3/gatekeeper/internal/authz"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/security/password"
)

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError escribe err como JSON. Los 500 nunca exponen la causa.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	if appErr.HTTPStatus == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
		w.Header().Set("WWW-Authenticate", `Bearer realm="gatekeeper"`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Detail:    appErr.Detail,
		RequestID: w.Header().Get("X-Request-ID"),
	})
}

// FromError mapea errores de dominio. Lo desconocido es 500 con la causa
// preservada para el log.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	var pe *password.PolicyError
	switch {
	case stderrors.Is(err, auth.ErrAuthenticationFailed):
		// sin detalle: el motivo va solo a la auditoría
		return ErrAuthenticationFailed.WithCause(err)
	case stderrors.Is(err, authz.ErrUnauthenticated):
		return ErrUnauthenticated.WithCause(err)
	case stderrors.Is(err, authz.ErrForbidden):
		return ErrForbidden.WithCause(err)
	case stderrors.As(err, &pe):
		return ErrWeakPassword.WithDetail(pe.Error()).WithCause(err)
	case stderrors.Is(err, auth.ErrSelfDeactivation):
		return ErrBadRequest.WithDetail(err.Error()).WithCause(err)
	case stderrors.Is(err, repository.ErrNotFound):
		return ErrNotFound.WithCause(err)
	case stderrors.Is(err, repository.ErrConflict):
		return ErrConflict.WithDetail(err.Error()).WithCause(err)
	case stderrors.Is(err, repository.ErrInvalidInput):
		return ErrBadRequest.WithDetail(err.Error()).WithCause(err)
	default:
		return ErrInternalServerError.WithCause(err)
	}
}
