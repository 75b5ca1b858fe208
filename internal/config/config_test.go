package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsAndYAML(t *testing.T) {
	p := writeYAML(t, `
storage:
  driver: memory
token:
  secret: "`+testSecret+`"
  ttl: 10m
saml:
  entity_id: https://gk.example.com/saml/metadata
  idp_cert_file: idp.pem
lockout:
  threshold: 3
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, c.Token.TTL)
	assert.Equal(t, 30*time.Second, c.Token.Leeway)
	assert.Equal(t, 3, c.Lockout.Threshold)
	assert.Equal(t, 15*time.Minute, c.Lockout.Window)
	assert.Equal(t, "HR Intern", c.RBAC.DefaultRole)
	assert.Equal(t, "HR Manager", c.RBAC.RoleMap["hr-manager"])
	assert.Equal(t, filepath.Join(filepath.Dir(p), "idp.pem"), c.SAML.IdPCertFile)
	assert.Equal(t, "memory", c.Cache.Kind)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GATEKEEPER_STORAGE_DRIVER", "memory")
	t.Setenv("GATEKEEPER_TOKEN_SECRET", testSecret)
	t.Setenv("GATEKEEPER_TOKEN_TTL", "5m")
	t.Setenv("GATEKEEPER_SAML_ENTITY_ID", "sp")
	t.Setenv("GATEKEEPER_SAML_IDP_METADATA_URL", "https://idp.example.com/metadata")
	t.Setenv("GATEKEEPER_RBAC_ROLE_MAP", "admins=Super Admin; staff=Sourcer")
	t.Setenv("GATEKEEPER_LOGIN_RATE_PER_SECOND", "0.5")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, c.Token.TTL)
	assert.Equal(t, map[string]string{"admins": "Super Admin", "staff": "Sourcer"}, c.RBAC.RoleMap)
	assert.InDelta(t, 0.5, c.Server.LoginRate.PerSecond, 0.0001)
}

func TestValidate_FatalErrors(t *testing.T) {
	t.Setenv("GATEKEEPER_STORAGE_DRIVER", "memory")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingSigningSecret))
	assert.True(t, errors.Is(err, ErrMissingIdPCert))

	t.Setenv("GATEKEEPER_TOKEN_SECRET", "short")
	_, err = Load("")
	assert.True(t, errors.Is(err, ErrWeakSigningSecret))
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	t.Setenv("GATEKEEPER_TOKEN_SECRET", testSecret)
	t.Setenv("GATEKEEPER_SAML_ENTITY_ID", "sp")
	t.Setenv("GATEKEEPER_SAML_IDP_CERT_PEM", "pem")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.dsn")
}

func TestParseKVList(t *testing.T) {
	got := parseKVList(" a=1 ;b = 2;;c=;=d", ";")
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, got)
}
