package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	httperrors "github.com/dropDatabas3/gatekeeper/internal/http/errors"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
)

// AuthController maneja login local (form y JSON) y el ACS de SAML.
type AuthController struct {
	auth     Authenticator
	metadata SPMetadata // nil si SAML no está configurado
	now      func() time.Time
}

func NewAuthController(a Authenticator, md SPMetadata) *AuthController {
	return &AuthController{auth: a, metadata: md, now: time.Now}
}

// Token emite un token estilo password grant.
// POST /token (application/x-www-form-urlencoded: grant_type, username|email, password)
func (c *AuthController) Token(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("AuthController.Token"))
	if !readForm(w, r) {
		return
	}
	if gt := r.PostForm.Get("grant_type"); gt != "" && gt != "password" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("unsupported grant_type"))
		return
	}
	email := r.PostForm.Get("username")
	if email == "" {
		email = r.PostForm.Get("email")
	}
	c.local(w, r, log, email, r.PostForm.Get("password"))
}

// Login es la variante JSON de Token.
// POST /login {"email","password"}
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("AuthController.Login"))
	var req LoginRequest
	if !readJSON(w, r, &req) {
		return
	}
	c.local(w, r, log, req.Email, req.Password)
}

func (c *AuthController) local(w http.ResponseWriter, r *http.Request, log *zap.Logger, email, password string) {
	if strings.TrimSpace(email) == "" || password == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("email and password are required"))
		return
	}
	tok, err := c.auth.AuthenticateLocal(r.Context(), email, password)
	if err != nil {
		fail(w, log, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokenResponse(tok, c.now()))
}

// ACS recibe el SAMLResponse (HTTP-POST binding) y responde con un token.
// POST /saml/acs
func (c *AuthController) ACS(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("AuthController.ACS"))
	if !readForm(w, r) {
		return
	}
	raw := r.PostForm.Get("SAMLResponse")
	if strings.TrimSpace(raw) == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("SAMLResponse is required"))
		return
	}
	tok, err := c.auth.AuthenticateFederated(r.Context(), raw)
	if err != nil {
		fail(w, log, err)
		return
	}
	resp := tokenResponse(tok, c.now())
	resp.RelayState = r.PostForm.Get("RelayState")
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// Metadata publica el EntityDescriptor del SP.
// GET /saml/metadata
func (c *AuthController) Metadata(w http.ResponseWriter, r *http.Request) {
	if c.metadata == nil {
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("saml is not configured"))
		return
	}
	b, err := c.metadata.Metadata()
	if err != nil {
		fail(w, logger.From(r.Context()).With(logger.Op("AuthController.Metadata")), err)
		return
	}
	w.Header().Set("Content-Type", "application/samlmetadata+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
