package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/gatekeeper/internal/authz"
	httperrors "github.com/dropDatabas3/gatekeeper/internal/http/errors"
	"github.com/dropDatabas3/gatekeeper/internal/http/middlewares"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
)

// MeController expone la vista del usuario autenticado y el chequeo puntual
// de permisos.
type MeController struct {
	account Account
	authz   Authorizer
}

func NewMeController(account Account, az Authorizer) *MeController {
	return &MeController{account: account, authz: az}
}

// Me GET /api/me
func (c *MeController) Me(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("MeController.Me"))
	d, err := c.account.Me(r.Context(), middlewares.GetToken(r.Context()))
	if err != nil {
		fail(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		UserID:         d.Identity.UserID,
		Email:          d.Identity.Email,
		DisplayName:    d.Identity.DisplayName,
		Role:           d.Identity.Role,
		Permissions:    d.Permissions,
		RecentActivity: auditResponses(d.RecentActivity),
	})
}

// Authorize responde si el caller tiene un permiso. Un 403 del enforcer se
// traduce a allowed=false; token inválido sigue siendo 401.
// POST /api/authorize {"permission"}
func (c *MeController) Authorize(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("MeController.Authorize"))
	var req AuthorizeRequest
	if !readJSON(w, r, &req) {
		return
	}
	perm := strings.TrimSpace(req.Permission)
	if perm == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("permission is required"))
		return
	}
	id, err := c.authz.Authorize(r.Context(), middlewares.GetToken(r.Context()), perm)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, AuthorizeResponse{Allowed: true, Permission: perm, UserID: id.UserID, Role: id.Role})
	case errors.Is(err, authz.ErrForbidden):
		writeJSON(w, http.StatusOK, AuthorizeResponse{Allowed: false, Permission: perm})
	default:
		fail(w, log, err)
	}
}
