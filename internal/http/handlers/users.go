package handlers

import (
	"net/http"

	"github.com/dropDatabas3/gatekeeper/internal/auth"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	httperrors "github.com/dropDatabas3/gatekeeper/internal/http/errors"
	"github.com/dropDatabas3/gatekeeper/internal/http/middlewares"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
)

type UsersController struct {
	users UserAdmin
}

func NewUsersController(users UserAdmin) *UsersController {
	return &UsersController{users: users}
}

// List GET /api/users?search=&role=&limit=&offset=
func (c *UsersController) List(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("UsersController.List"))
	limit, ok1 := queryInt(r, "limit")
	offset, ok2 := queryInt(r, "offset")
	if !ok1 || !ok2 {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("limit and offset must be non-negative integers"))
		return
	}
	q := r.URL.Query()
	list, err := c.users.ListUsers(r.Context(), middlewares.GetToken(r.Context()), repository.ListUsersFilter{
		Limit:  limit,
		Offset: offset,
		Search: q.Get("search"),
		Role:   q.Get("role"),
	})
	if err != nil {
		fail(w, log, err)
		return
	}
	out := make([]UserResponse, 0, len(list))
	for _, u := range list {
		out = append(out, userResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create POST /api/users
func (c *UsersController) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("UsersController.Create"))
	var req CreateUserRequest
	if !readJSON(w, r, &req) {
		return
	}
	u, err := c.users.CreateUser(r.Context(), middlewares.GetToken(r.Context()), auth.NewUser{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        req.Role,
	})
	if err != nil {
		fail(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse(*u))
}

// SetRole PUT /api/users/{id}/role {"role"}
func (c *UsersController) SetRole(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("UsersController.SetRole"))
	var req SetRoleRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("role is required"))
		return
	}
	u, err := c.users.SetRole(r.Context(), middlewares.GetToken(r.Context()), pathParam(r, "id"), req.Role)
	if err != nil {
		fail(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(*u))
}

// SetActive PUT /api/users/{id}/active {"active"}
func (c *UsersController) SetActive(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("UsersController.SetActive"))
	var req SetActiveRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("active is required"))
		return
	}
	u, err := c.users.SetActive(r.Context(), middlewares.GetToken(r.Context()), pathParam(r, "id"), *req.Active)
	if err != nil {
		fail(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(*u))
}
