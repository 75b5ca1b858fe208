package app

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/gatekeeper/internal/config"
	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/rbac"
	"github.com/dropDatabas3/gatekeeper/internal/saml"
)

func selfSignedPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "idp.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("GATEKEEPER_STORAGE_DRIVER", "memory")
	t.Setenv("GATEKEEPER_TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("GATEKEEPER_SAML_ENTITY_ID", "https://sp.example.com")
	t.Setenv("GATEKEEPER_SAML_IDP_CERT_PEM", selfSignedPEM(t))
	t.Setenv("GATEKEEPER_ADMIN_EMAIL", "admin@example.com")
	t.Setenv("GATEKEEPER_ADMIN_PASSWORD", "bootstrap-pass-1")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestBuild_MemoryWiring(t *testing.T) {
	ctx := context.Background()
	c, err := Build(ctx, memoryConfig(t))
	require.NoError(t, err)
	defer c.Close()

	assert.Len(t, c.Registry.Roles(ctx), 6)
	admins, err := c.Store.Users().List(ctx, repository.ListUsersFilter{Role: rbac.RoleSuperAdmin})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin@example.com", admins[0].Email)

	rec := httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"admin@example.com","password":"bootstrap-pass-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/saml/metadata", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://sp.example.com")
}

func TestBuild_FailsWithoutIdPCertificates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<EntityDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata"><IDPSSODescriptor/></EntityDescriptor>`))
	}))
	defer srv.Close()

	cfg := memoryConfig(t)
	cfg.SAML.IdPCertPEM = ""
	cfg.SAML.IdPMetadataURL = srv.URL

	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, saml.ErrNoCertificates)
}

func TestPasswordPolicy(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.PasswordPolicy.MinLength = 12
	cfg.Security.PasswordPolicy.RequireSymbol = true
	p := PasswordPolicy(cfg)
	assert.Equal(t, 12, p.MinLength)
	assert.True(t, p.RequireSymbol)
	assert.False(t, p.RequireUpper)
}
