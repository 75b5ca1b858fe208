package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Errores fatales de arranque: el proceso no debe servir requests con ellos.
var (
	ErrMissingSigningSecret = errors.New("config: token.secret is required")
	ErrWeakSigningSecret    = errors.New("config: token.secret must be at least 32 bytes")
	ErrMissingIdPCert       = errors.New("config: saml idp certificate source is required (idp_cert_pem, idp_cert_file or idp_metadata_url)")
)

type Config struct {
	App struct {
		Env         string `yaml:"env"`
		LogLevel    string `yaml:"log_level"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"app"`

	Server struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
		// LoginRate limita requests por IP a los endpoints de login.
		LoginRate struct {
			PerSecond float64 `yaml:"per_second"`
			Burst     int     `yaml:"burst"`
		} `yaml:"login_rate"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int           `yaml:"max_open_conns"`
			MaxIdleConns    int           `yaml:"max_idle_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL time.Duration `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Token struct {
		Issuer string        `yaml:"issuer"`
		Secret string        `yaml:"secret"`
		TTL    time.Duration `yaml:"ttl"`
		Leeway time.Duration `yaml:"leeway"`
	} `yaml:"token"`

	SAML struct {
		EntityID        string        `yaml:"entity_id"` // audience esperada
		ACSURL          string        `yaml:"acs_url"`
		IdPCertPEM      string        `yaml:"idp_cert_pem"`
		IdPCertFile     string        `yaml:"idp_cert_file"`
		IdPMetadataURL  string        `yaml:"idp_metadata_url"`
		MetadataRefresh time.Duration `yaml:"metadata_refresh"`
		ClockSkew       time.Duration `yaml:"clock_skew"`
	} `yaml:"saml"`

	RBAC struct {
		DefaultRole string `yaml:"default_role"`
		// RoleMap: claim externo (IdP) -> rol interno.
		RoleMap map[string]string `yaml:"role_map"`
		// MaxStaleness recarga el catálogo si el snapshot es más viejo (0 = nunca).
		MaxStaleness time.Duration `yaml:"max_staleness"`
	} `yaml:"rbac"`

	Lockout struct {
		Threshold int           `yaml:"threshold"`
		Window    time.Duration `yaml:"window"`
	} `yaml:"lockout"`

	Security struct {
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
	} `yaml:"security"`

	Bootstrap struct {
		AdminEmail    string `yaml:"admin_email"`
		AdminPassword string `yaml:"admin_password"`
		AdminName     string `yaml:"admin_name"`
	} `yaml:"bootstrap"`
}

// DefaultRoleMap es la tabla claim->rol por defecto del IdP corporativo.
func DefaultRoleMap() map[string]string {
	return map[string]string{
		"itfc-business-admin": "Super Admin",
		"hr-manager":          "HR Manager",
		"hiring-manager":      "Hiring Manager",
		"hr-intern":           "HR Intern",
		"recruiter":           "Recruiter",
		"sourcer":             "Sourcer",
	}
}

// Load lee el YAML (path vacío = solo defaults), aplica overrides por env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		// rutas relativas se resuelven respecto al directorio del YAML
		if p := strings.TrimSpace(c.SAML.IdPCertFile); p != "" && !filepath.IsAbs(p) {
			c.SAML.IdPCertFile = filepath.Clean(filepath.Join(filepath.Dir(path), p))
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.ServiceName == "" {
		c.App.ServiceName = "gatekeeper"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.LoginRate.PerSecond == 0 {
		c.Server.LoginRate.PerSecond = 5
	}
	if c.Server.LoginRate.Burst == 0 {
		c.Server.LoginRate.Burst = 10
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "gk:"
	}
	if c.Cache.Memory.DefaultTTL == 0 {
		c.Cache.Memory.DefaultTTL = 5 * time.Minute
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = "gatekeeper"
	}
	if c.Token.TTL == 0 {
		c.Token.TTL = 30 * time.Minute
	}
	if c.Token.Leeway == 0 {
		c.Token.Leeway = 30 * time.Second
	}
	if c.SAML.MetadataRefresh == 0 {
		c.SAML.MetadataRefresh = time.Hour
	}
	if c.SAML.ClockSkew == 0 {
		c.SAML.ClockSkew = 90 * time.Second
	}
	if c.RBAC.DefaultRole == "" {
		c.RBAC.DefaultRole = "HR Intern"
	}
	if len(c.RBAC.RoleMap) == 0 {
		c.RBAC.RoleMap = DefaultRoleMap()
	}
	if c.Lockout.Threshold == 0 {
		c.Lockout.Threshold = 5
	}
	if c.Lockout.Window == 0 {
		c.Lockout.Window = 15 * time.Minute
	}
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 10
	}
	if c.Bootstrap.AdminName == "" {
		c.Bootstrap.AdminName = "Administrator"
	}
}

// applyEnvOverrides pisa el YAML con variables GATEKEEPER_*.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("GATEKEEPER_APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("GATEKEEPER_LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("GATEKEEPER_SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvFloat("GATEKEEPER_LOGIN_RATE_PER_SECOND"); ok {
		c.Server.LoginRate.PerSecond = v
	}
	if v, ok := getEnvInt("GATEKEEPER_LOGIN_RATE_BURST"); ok {
		c.Server.LoginRate.Burst = v
	}

	// STORAGE
	if v, ok := getEnvStr("GATEKEEPER_STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("GATEKEEPER_STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("GATEKEEPER_POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("GATEKEEPER_POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvDur("GATEKEEPER_POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("GATEKEEPER_CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("GATEKEEPER_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("GATEKEEPER_REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("GATEKEEPER_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("GATEKEEPER_REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// TOKEN
	if v, ok := getEnvStr("GATEKEEPER_TOKEN_ISSUER"); ok {
		c.Token.Issuer = v
	}
	if v, ok := getEnvStr("GATEKEEPER_TOKEN_SECRET"); ok {
		c.Token.Secret = v
	}
	if v, ok := getEnvDur("GATEKEEPER_TOKEN_TTL"); ok {
		c.Token.TTL = v
	}

	// SAML
	if v, ok := getEnvStr("GATEKEEPER_SAML_ENTITY_ID"); ok {
		c.SAML.EntityID = v
	}
	if v, ok := getEnvStr("GATEKEEPER_SAML_ACS_URL"); ok {
		c.SAML.ACSURL = v
	}
	if v, ok := getEnvStr("GATEKEEPER_SAML_IDP_CERT_PEM"); ok {
		c.SAML.IdPCertPEM = v
	}
	if v, ok := getEnvStr("GATEKEEPER_SAML_IDP_CERT_FILE"); ok {
		c.SAML.IdPCertFile = v
	}
	if v, ok := getEnvStr("GATEKEEPER_SAML_IDP_METADATA_URL"); ok {
		c.SAML.IdPMetadataURL = v
	}
	if v, ok := getEnvDur("GATEKEEPER_SAML_METADATA_REFRESH"); ok {
		c.SAML.MetadataRefresh = v
	}
	if v, ok := getEnvDur("GATEKEEPER_SAML_CLOCK_SKEW"); ok {
		c.SAML.ClockSkew = v
	}

	// RBAC
	if v, ok := getEnvStr("GATEKEEPER_RBAC_DEFAULT_ROLE"); ok {
		c.RBAC.DefaultRole = v
	}
	// formato: "hr-manager=HR Manager;recruiter=Recruiter"
	if v, ok := getEnvKVList("GATEKEEPER_RBAC_ROLE_MAP", ";"); ok {
		c.RBAC.RoleMap = v
	}
	if v, ok := getEnvDur("GATEKEEPER_RBAC_MAX_STALENESS"); ok {
		c.RBAC.MaxStaleness = v
	}

	// LOCKOUT
	if v, ok := getEnvInt("GATEKEEPER_LOCKOUT_THRESHOLD"); ok {
		c.Lockout.Threshold = v
	}
	if v, ok := getEnvDur("GATEKEEPER_LOCKOUT_WINDOW"); ok {
		c.Lockout.Window = v
	}

	// BOOTSTRAP
	if v, ok := getEnvStr("GATEKEEPER_ADMIN_EMAIL"); ok {
		c.Bootstrap.AdminEmail = v
	}
	if v, ok := getEnvStr("GATEKEEPER_ADMIN_PASSWORD"); ok {
		c.Bootstrap.AdminPassword = v
	}
}

// Validate rechaza configuraciones con las que el proceso no debe arrancar.
func (c *Config) Validate() error {
	var errs []error

	secret := strings.TrimSpace(c.Token.Secret)
	switch {
	case secret == "":
		errs = append(errs, ErrMissingSigningSecret)
	case len(secret) < 32:
		errs = append(errs, ErrWeakSigningSecret)
	}
	if strings.TrimSpace(c.SAML.IdPCertPEM) == "" &&
		strings.TrimSpace(c.SAML.IdPCertFile) == "" &&
		strings.TrimSpace(c.SAML.IdPMetadataURL) == "" {
		errs = append(errs, ErrMissingIdPCert)
	}
	if strings.TrimSpace(c.SAML.EntityID) == "" {
		errs = append(errs, errors.New("config: saml.entity_id is required"))
	}
	if c.Token.TTL <= 0 {
		errs = append(errs, errors.New("config: token.ttl must be positive"))
	}
	if c.Lockout.Threshold < 1 || c.Lockout.Window <= 0 {
		errs = append(errs, errors.New("config: lockout.threshold and lockout.window must be positive"))
	}
	if strings.TrimSpace(c.RBAC.DefaultRole) == "" {
		errs = append(errs, errors.New("config: rbac.default_role is required"))
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("config: storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver))
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("config: cache.redis.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown cache.kind %q", c.Cache.Kind))
	}
	return errors.Join(errs...)
}
