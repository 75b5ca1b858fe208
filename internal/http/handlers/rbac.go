package handlers

import (
	"net/http"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	httperrors "github.com/dropDatabas3/gatekeeper/internal/http/errors"
	"github.com/dropDatabas3/gatekeeper/internal/http/middlewares"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
)

// RBACController lee el catálogo (Directory) y lo modifica (RoleAdmin).
type RBACController struct {
	dir   Directory
	admin RoleAdmin
}

func NewRBACController(dir Directory, admin RoleAdmin) *RBACController {
	return &RBACController{dir: dir, admin: admin}
}

// ListRoles GET /api/roles
func (c *RBACController) ListRoles(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.ListRoles"))
	roles, err := c.dir.Roles(r.Context(), middlewares.GetToken(r.Context()))
	if err != nil {
		fail(w, log, err)
		return
	}
	out := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		perms := role.Permissions
		if perms == nil {
			perms = []string{}
		}
		out = append(out, RoleResponse{Name: role.Name, Description: role.Description, Permissions: perms})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListPermissions GET /api/permissions
func (c *RBACController) ListPermissions(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.ListPermissions"))
	perms, err := c.dir.Permissions(r.Context(), middlewares.GetToken(r.Context()))
	if err != nil {
		fail(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionResponses(perms))
}

// CreateRole POST /api/roles {"name","description"}
func (c *RBACController) CreateRole(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.CreateRole"))
	var req CreateRoleRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := c.admin.CreateRole(r.Context(), middlewares.GetToken(r.Context()), req.Name, req.Description); err != nil {
		fail(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, RoleResponse{Name: req.Name, Description: req.Description, Permissions: []string{}})
}

// DeleteRole DELETE /api/roles/{name}
func (c *RBACController) DeleteRole(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.DeleteRole"))
	if err := c.admin.DeleteRole(r.Context(), middlewares.GetToken(r.Context()), pathParam(r, "name")); err != nil {
		fail(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreatePermission POST /api/permissions {"name","description"}
func (c *RBACController) CreatePermission(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.CreatePermission"))
	var req CreatePermissionRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := c.admin.CreatePermission(r.Context(), middlewares.GetToken(r.Context()), req.Name, req.Description); err != nil {
		fail(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, PermissionResponse{Name: req.Name, Description: req.Description})
}

// DeletePermission DELETE /api/permissions/{name}
func (c *RBACController) DeletePermission(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.DeletePermission"))
	if err := c.admin.DeletePermission(r.Context(), middlewares.GetToken(r.Context()), pathParam(r, "name")); err != nil {
		fail(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignPermission POST /api/roles/{name}/permissions {"permission"}
func (c *RBACController) AssignPermission(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.AssignPermission"))
	var req AssignPermissionRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Permission == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("permission is required"))
		return
	}
	if err := c.admin.AssignPermission(r.Context(), middlewares.GetToken(r.Context()), pathParam(r, "name"), req.Permission); err != nil {
		fail(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokePermission DELETE /api/roles/{name}/permissions/{perm}
func (c *RBACController) RevokePermission(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.RevokePermission"))
	if err := c.admin.RevokePermission(r.Context(), middlewares.GetToken(r.Context()), pathParam(r, "name"), pathParam(r, "perm")); err != nil {
		fail(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func permissionResponses(in []types.Permission) []PermissionResponse {
	out := make([]PermissionResponse, 0, len(in))
	for _, p := range in {
		out = append(out, PermissionResponse{Name: p.Name, Description: p.Description})
	}
	return out
}
