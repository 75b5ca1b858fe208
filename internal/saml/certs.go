package saml

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/dropDatabas3/gatekeeper/internal/cache"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"golang.org/x/sync/singleflight"
)

// CertProvider entrega el set de certificados de firma del IdP.
type CertProvider interface {
	Certificates(ctx context.Context) ([]*x509.Certificate, error)
}

// CertSource describe de dónde salen los certificados. Se usa el primero
// configurado en orden: PEM inline, archivo, metadata URL.
type CertSource struct {
	PEM         string
	File        string
	MetadataURL string
	Refresh     time.Duration
	// LastGood guarda la última metadata válida (compartida entre nodos con
	// redis). Opcional; solo aplica a MetadataURL.
	LastGood cache.Client
}

// NewCertProvider arma el provider según la fuente configurada.
func NewCertProvider(src CertSource, client *http.Client) (CertProvider, error) {
	switch {
	case strings.TrimSpace(src.PEM) != "":
		return NewStaticCerts([]byte(src.PEM))
	case src.File != "":
		b, err := os.ReadFile(src.File)
		if err != nil {
			return nil, fmt.Errorf("saml: read idp cert: %w", err)
		}
		return NewStaticCerts(b)
	case src.MetadataURL != "":
		return NewMetadataCerts(src.MetadataURL, src.Refresh, client).WithLastGood(src.LastGood), nil
	default:
		return nil, ErrNoCertificates
	}
}

// StaticCerts es un set fijo (PEM en config o archivo).
type StaticCerts struct {
	certs []*x509.Certificate
}

func NewStaticCerts(pemData []byte) (*StaticCerts, error) {
	certs, err := ParseCertificatesPEM(pemData)
	if err != nil {
		return nil, err
	}
	return &StaticCerts{certs: certs}, nil
}

func (s *StaticCerts) Certificates(context.Context) ([]*x509.Certificate, error) {
	return s.certs, nil
}

// ParseCertificatesPEM acepta uno o más bloques CERTIFICATE. Si no hay
// bloques PEM intenta leer base64 DER pelado (como lo exporta Azure).
func ParseCertificatesPEM(data []byte) ([]*x509.Certificate, error) {
	var out []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("saml: parse idp cert: %w", err)
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		c, err := parseBase64Cert(string(data))
		if err != nil {
			return nil, ErrNoCertificates
		}
		out = append(out, c)
	}
	return out, nil
}

func parseBase64Cert(s string) (*x509.Certificate, error) {
	der, err := base64.StdEncoding.DecodeString(stripSpace(s))
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}

// MetadataCerts descarga los certificados de firma desde la metadata
// federada del IdP y los cachea durante Refresh. Fetches concurrentes se
// colapsan en uno; si un refresh falla se sigue usando el último set bueno.
type MetadataCerts struct {
	url     string
	refresh time.Duration
	client  *http.Client
	sf      singleflight.Group
	now     func() time.Time

	lastGood cache.Client

	mu        sync.RWMutex
	certs     []*x509.Certificate
	fetchedAt time.Time
}

const (
	DefaultMetadataRefresh = time.Hour
	lastGoodTTL            = 30 * 24 * time.Hour
)

func NewMetadataCerts(url string, refresh time.Duration, client *http.Client) *MetadataCerts {
	if refresh <= 0 {
		refresh = DefaultMetadataRefresh
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &MetadataCerts{url: url, refresh: refresh, client: client, now: time.Now}
}

// WithLastGood habilita el respaldo en cache para cuando el IdP no responde
// y no hay certificados en memoria (por ejemplo, al arrancar).
func (m *MetadataCerts) WithLastGood(c cache.Client) *MetadataCerts {
	m.lastGood = c
	return m
}

func (m *MetadataCerts) lastGoodKey() string { return "saml:idp-metadata:" + m.url }

func (m *MetadataCerts) Certificates(ctx context.Context) ([]*x509.Certificate, error) {
	m.mu.RLock()
	certs, fetchedAt := m.certs, m.fetchedAt
	m.mu.RUnlock()
	if len(certs) > 0 && m.now().Sub(fetchedAt) < m.refresh {
		return certs, nil
	}

	log := logger.From(ctx).With(logger.Component("saml"), logger.String("url", m.url))
	v, err, _ := m.sf.Do("metadata", func() (any, error) {
		fresh, raw, err := m.fetch(ctx)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.certs, m.fetchedAt = fresh, m.now()
		m.mu.Unlock()
		if m.lastGood != nil {
			if err := m.lastGood.Set(ctx, m.lastGoodKey(), string(raw), lastGoodTTL); err != nil {
				log.Warn("idp metadata last-good store failed", logger.Err(err))
			}
		}
		return fresh, nil
	})
	if err != nil {
		if len(certs) > 0 {
			log.Warn("idp metadata refresh failed, using cached certificates", logger.Err(err))
			return certs, nil
		}
		if saved := m.loadLastGood(ctx); len(saved) > 0 {
			log.Warn("idp metadata unreachable, using last good copy", logger.Err(err))
			return saved, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrNoCertificates, err)
	}
	return v.([]*x509.Certificate), nil
}

// loadLastGood lee la copia guardada y la deja en memoria con fetchedAt
// vencido, así el próximo request vuelve a intentar el IdP.
func (m *MetadataCerts) loadLastGood(ctx context.Context) []*x509.Certificate {
	if m.lastGood == nil {
		return nil
	}
	log := logger.From(ctx).With(logger.Component("saml"), logger.String("url", m.url))
	raw, err := m.lastGood.Get(ctx, m.lastGoodKey())
	if err != nil {
		if !cache.IsNotFound(err) {
			log.Warn("idp metadata last-good read failed", logger.Err(err))
		}
		return nil
	}
	certs, err := ParseMetadataCerts([]byte(raw))
	if err != nil {
		log.Warn("idp metadata last-good is invalid, discarding", logger.Err(err))
		_ = m.lastGood.Delete(ctx, m.lastGoodKey())
		return nil
	}
	m.mu.Lock()
	if len(m.certs) == 0 {
		m.certs = certs
	}
	m.mu.Unlock()
	return certs
}

func (m *MetadataCerts) fetch(ctx context.Context) ([]*x509.Certificate, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("metadata fetch: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, nil, err
	}
	certs, err := ParseMetadataCerts(body)
	if err != nil {
		return nil, nil, err
	}
	return certs, body, nil
}

// ParseMetadataCerts extrae los certificados de firma del IDPSSODescriptor.
// KeyDescriptors con use="encryption" se ignoran.
func ParseMetadataCerts(data []byte) ([]*x509.Certificate, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	var out []*x509.Certificate
	for _, kd := range doc.FindElements("//IDPSSODescriptor/KeyDescriptor") {
		if use := kd.SelectAttrValue("use", "signing"); use != "signing" {
			continue
		}
		for _, x := range kd.FindElements(".//X509Certificate") {
			c, err := parseBase64Cert(x.Text())
			if err != nil {
				return nil, fmt.Errorf("metadata: bad certificate: %w", err)
			}
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("metadata: no signing certificates")
	}
	return out, nil
}
