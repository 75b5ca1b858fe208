// Package http arma el router chi y el servidor del core de identidad.
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/gatekeeper/internal/http/handlers"
	mw "github.com/dropDatabas3/gatekeeper/internal/http/middlewares"
	"github.com/dropDatabas3/gatekeeper/internal/rbac"
)

// Service es la fachada que consumen los controllers (*auth.Service).
type Service interface {
	handlers.Authenticator
	handlers.Authorizer
	handlers.Account
	handlers.UserAdmin
	handlers.Directory
}

// RouterDeps contiene las dependencias del router.
type RouterDeps struct {
	Service   Service
	RoleAdmin handlers.RoleAdmin
	SAML      handlers.SPMetadata // opcional
	Store     handlers.Pinger

	// LoginLimiter limita /token, /login y /saml/acs por IP. Nil = sin límite.
	LoginLimiter *mw.IPRateLimiter

	// Metrics es el registry expuesto en /metrics (protegido por system:read).
	Metrics     prometheus.Gatherer
	HTTPMetrics *mw.HTTPMetrics
}

// NewRouter registra todas las rutas.
func NewRouter(d RouterDeps) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(mw.WithRequestID(), mw.WithLogging(), mw.WithRecover())
	if d.HTTPMetrics != nil {
		r.Use(d.HTTPMetrics.Middleware())
	}

	authCtl := handlers.NewAuthController(d.Service, d.SAML)
	meCtl := handlers.NewMeController(d.Service, d.Service)
	usersCtl := handlers.NewUsersController(d.Service)
	rbacCtl := handlers.NewRBACController(d.Service, d.RoleAdmin)
	auditCtl := handlers.NewAuditController(d.Service)
	healthCtl := handlers.NewHealthController(d.Store)

	r.Get("/healthz", healthCtl.Healthz)
	r.Get("/saml/metadata", authCtl.Metadata)

	// Login
	r.Group(func(r chi.Router) {
		if d.LoginLimiter != nil {
			r.Use(d.LoginLimiter.Middleware())
		}
		r.Post("/token", authCtl.Token)
		r.Post("/login", authCtl.Login)
		r.Post("/saml/acs", authCtl.ACS)
	})

	if d.Metrics != nil {
		r.With(mw.RequirePermission(d.Service, rbac.PermReadSystem)).
			Handle("/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	// API: cada operación autoriza contra su permiso en el servicio.
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.RequireBearer())

		r.Get("/me", meCtl.Me)
		r.Post("/authorize", meCtl.Authorize)

		r.Get("/users", usersCtl.List)
		r.Post("/users", usersCtl.Create)
		r.Put("/users/{id}/role", usersCtl.SetRole)
		r.Put("/users/{id}/active", usersCtl.SetActive)

		r.Get("/roles", rbacCtl.ListRoles)
		r.Post("/roles", rbacCtl.CreateRole)
		r.Delete("/roles/{name}", rbacCtl.DeleteRole)
		r.Post("/roles/{name}/permissions", rbacCtl.AssignPermission)
		r.Delete("/roles/{name}/permissions/{perm}", rbacCtl.RevokePermission)

		r.Get("/permissions", rbacCtl.ListPermissions)
		r.Post("/permissions", rbacCtl.CreatePermission)
		r.Delete("/permissions/{name}", rbacCtl.DeletePermission)

		r.Get("/audit-logs", auditCtl.List)
	})

	return r
}
