// Package app arma el grafo de dependencias del servicio a partir de la
// configuración.
package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/gatekeeper/internal/audit"
	"github.com/dropDatabas3/gatekeeper/internal/auth"
	"github.com/dropDatabas3/gatekeeper/internal/authz"
	"github.com/dropDatabas3/gatekeeper/internal/bootstrap"
	"github.com/dropDatabas3/gatekeeper/internal/cache"
	"github.com/dropDatabas3/gatekeeper/internal/config"
	"github.com/dropDatabas3/gatekeeper/internal/credentials"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	gkhttp "github.com/dropDatabas3/gatekeeper/internal/http"
	mw "github.com/dropDatabas3/gatekeeper/internal/http/middlewares"
	"github.com/dropDatabas3/gatekeeper/internal/identity"
	"github.com/dropDatabas3/gatekeeper/internal/jwt"
	"github.com/dropDatabas3/gatekeeper/internal/metrics"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"github.com/dropDatabas3/gatekeeper/internal/rbac"
	"github.com/dropDatabas3/gatekeeper/internal/saml"
	"github.com/dropDatabas3/gatekeeper/internal/security/lockout"
	"github.com/dropDatabas3/gatekeeper/internal/security/password"
	"github.com/dropDatabas3/gatekeeper/internal/store/memory"
	"github.com/dropDatabas3/gatekeeper/internal/store/pg"
)

// Container agrupa los componentes vivos del proceso.
type Container struct {
	Config    *config.Config
	Store     repository.Store
	Redis     *redis.Client // nil con cache.kind=memory
	Cache     cache.Client
	Registry  *rbac.Registry
	Tokens    *jwt.Service
	SAML      *saml.Adapter
	Audit     *audit.Logger
	Service   *auth.Service
	RoleAdmin *rbac.Admin
	Metrics   *prometheus.Registry
	Handler   stdhttp.Handler
}

// OpenStore abre el driver configurado (postgres o memory).
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(), nil
	case "postgres":
		return pg.New(ctx, cfg.Storage.DSN, pg.PoolConfig{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Storage.Driver)
	}
}

// PasswordPolicy traduce la sección security.password_policy.
func PasswordPolicy(cfg *config.Config) password.Policy {
	p := cfg.Security.PasswordPolicy
	return password.Policy{
		MinLength:     p.MinLength,
		RequireUpper:  p.RequireUpper,
		RequireLower:  p.RequireLower,
		RequireDigit:  p.RequireDigit,
		RequireSymbol: p.RequireSymbol,
	}
}

// Build conecta store, cache, registry, SAML y la fachada de auth, y arma el
// router. Con storage.driver=memory siembra el catálogo por defecto.
func Build(ctx context.Context, cfg *config.Config) (_ *Container, err error) {
	log := logger.From(ctx).With(logger.Component("app"))
	c := &Container{Config: cfg}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if c.Store, err = OpenStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}
	if cfg.Storage.Driver == "memory" {
		if _, err = bootstrap.SeedCatalog(ctx, c.Store.RBAC()); err != nil {
			return nil, err
		}
	}

	if cfg.Cache.Kind == "redis" {
		if c.Redis, err = cache.Dial(ctx, cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB); err != nil {
			return nil, err
		}
	}
	var rdb redis.UniversalClient
	if c.Redis != nil {
		rdb = c.Redis
	}
	if c.Cache, err = cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.Cache.Memory.DefaultTTL,
	}, rdb); err != nil {
		return nil, err
	}

	var counter lockout.Counter = lockout.NewMemoryCounter()
	if c.Redis != nil {
		counter = lockout.NewRedisCounter(c.Redis, cfg.Cache.Redis.Prefix)
	}

	c.Metrics = prometheus.NewRegistry()
	c.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err = metrics.Register(c.Metrics); err != nil {
		return nil, err
	}
	httpMetrics, err := mw.NewHTTPMetrics(c.Metrics)
	if err != nil {
		return nil, err
	}

	if c.Registry, err = rbac.NewRegistry(ctx, c.Store.RBAC(), rbac.Config{
		DefaultRole:  cfg.RBAC.DefaultRole,
		RoleMap:      cfg.RBAC.RoleMap,
		MaxStaleness: cfg.RBAC.MaxStaleness,
	}); err != nil {
		return nil, err
	}
	if c.Tokens, err = jwt.NewService(jwt.Config{
		Issuer: cfg.Token.Issuer,
		Secret: cfg.Token.Secret,
		TTL:    cfg.Token.TTL,
		Leeway: cfg.Token.Leeway,
	}); err != nil {
		return nil, err
	}

	certs, err := saml.NewCertProvider(saml.CertSource{
		PEM:         cfg.SAML.IdPCertPEM,
		File:        cfg.SAML.IdPCertFile,
		MetadataURL: cfg.SAML.IdPMetadataURL,
		Refresh:     cfg.SAML.MetadataRefresh,
		LastGood:    c.Cache,
	}, &stdhttp.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, err
	}
	// sin certificados del IdP no se puede validar ninguna assertion
	if _, err = certs.Certificates(ctx); err != nil {
		return nil, fmt.Errorf("app: idp certificates: %w", err)
	}
	if c.SAML, err = saml.New(saml.Config{
		EntityID:  cfg.SAML.EntityID,
		ACSURL:    cfg.SAML.ACSURL,
		ClockSkew: cfg.SAML.ClockSkew,
	}, certs, c.Cache); err != nil {
		return nil, err
	}

	c.Audit = audit.New(c.Store.Audit())
	users := c.Store.Users()
	enforcer := authz.NewEnforcer(c.Tokens, c.Registry, users, c.Audit)
	policy := PasswordPolicy(cfg)

	c.Service = auth.NewService(auth.Deps{
		Users:       users,
		Credentials: credentials.New(users, lockout.NewPolicy(counter, cfg.Lockout.Threshold, cfg.Lockout.Window)),
		SAML:        c.SAML,
		Resolver:    identity.NewResolver(users, c.Registry, c.Audit),
		Registry:    c.Registry,
		Tokens:      c.Tokens,
		Enforcer:    enforcer,
		Audit:       c.Audit,
		Policy:      policy,
	})
	c.RoleAdmin = rbac.NewAdmin(c.Registry, enforcer, c.Audit)

	if _, err = bootstrap.EnsureAdmin(ctx, bootstrap.AdminConfig{
		Users:    users,
		Policy:   policy,
		Email:    cfg.Bootstrap.AdminEmail,
		Password: cfg.Bootstrap.AdminPassword,
		Name:     cfg.Bootstrap.AdminName,
	}); err != nil {
		return nil, err
	}

	c.Handler = gkhttp.NewRouter(gkhttp.RouterDeps{
		Service:      c.Service,
		RoleAdmin:    c.RoleAdmin,
		SAML:         c.SAML,
		Store:        c.Store,
		LoginLimiter: mw.NewIPRateLimiter(cfg.Server.LoginRate.PerSecond, cfg.Server.LoginRate.Burst),
		Metrics:      c.Metrics,
		HTTPMetrics:  httpMetrics,
	})

	log.Info("service wired",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Int("roles", len(c.Registry.Roles(ctx))))
	return c, nil
}

// Close libera conexiones. Es seguro llamarlo con un Container parcial.
func (c *Container) Close() {
	var errs []error
	switch {
	case c.Redis != nil:
		// el cache redis comparte este cliente
		errs = append(errs, c.Redis.Close())
	case c.Cache != nil:
		errs = append(errs, c.Cache.Close())
	}
	if c.Store != nil {
		c.Store.Close()
	}
	if err := errors.Join(errs...); err != nil {
		logger.L().Warn("close failed", logger.Component("app"), logger.Err(err))
	}
}
