// Package saml valida assertions SAML 2.0 firmadas por el IdP corporativo y
// extrae los claims de identidad. No persiste nada salvo la reserva del ID de
// assertion en el cache de replay.
package saml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/dropDatabas3/gatekeeper/internal/cache"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/russellhaering/goxmldsig/etreeutils"
)

const (
	DefaultClockSkew = 90 * time.Second

	statusSuccess = "urn:oasis:names:tc:SAML:2.0:status:Success"
	replayPrefix  = "saml:assertion:"
)

type Config struct {
	// EntityID del SP; es la audiencia que debe traer la assertion.
	EntityID  string
	ACSURL    string
	ClockSkew time.Duration
}

type Adapter struct {
	cfg    Config
	certs  CertProvider
	replay cache.Client
	now    func() time.Time
}

func New(cfg Config, certs CertProvider, replay cache.Client) (*Adapter, error) {
	if strings.TrimSpace(cfg.EntityID) == "" {
		return nil, fmt.Errorf("saml: entity id is required")
	}
	if certs == nil {
		return nil, ErrNoCertificates
	}
	if replay == nil {
		return nil, fmt.Errorf("saml: replay cache is required")
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = DefaultClockSkew
	}
	return &Adapter{cfg: cfg, certs: certs, replay: replay, now: time.Now}, nil
}

// Validate acepta un SAMLResponse en base64 (tal como llega al ACS) o el XML
// crudo de un Response o de una Assertion suelta.
func (a *Adapter) Validate(ctx context.Context, raw string) (types.FederatedClaims, error) {
	log := logger.From(ctx).With(logger.Component("saml"), logger.Op("Validate"))

	doc, err := parse(raw)
	if err != nil {
		return types.FederatedClaims{}, err
	}

	assertion, err := a.verified(ctx, doc.Root())
	if err != nil {
		return types.FederatedClaims{}, err
	}

	id := assertion.SelectAttrValue("ID", "")
	if id == "" {
		return types.FederatedClaims{}, fmt.Errorf("%w: assertion without ID", ErrMalformed)
	}

	notOnOrAfter, err := a.checkWindow(assertion)
	if err != nil {
		return types.FederatedClaims{}, err
	}
	if !a.audienceMatches(assertion) {
		return types.FederatedClaims{}, ErrAudienceMismatch
	}

	// el ID se reserva hasta que la assertion vence (+ skew); después ya no
	// pasaría la ventana de tiempo.
	ttl := notOnOrAfter.Sub(a.now()) + a.cfg.ClockSkew
	ok, err := a.replay.SetNX(ctx, replayPrefix+id, "1", ttl)
	if err != nil {
		return types.FederatedClaims{}, fmt.Errorf("saml: replay cache: %w", err)
	}
	if !ok {
		log.Warn("assertion replay rejected", logger.String("assertion_id", id))
		return types.FederatedClaims{}, ErrReplayed
	}

	claims, err := extractClaims(assertion)
	if err != nil {
		return types.FederatedClaims{}, err
	}
	claims.AssertionID = id
	claims.NotOnOrAfter = notOnOrAfter
	log.Debug("assertion accepted", logger.Subject(claims.SubjectID), logger.String("assertion_id", id))
	return claims, nil
}

func parse(raw string) (*etree.Document, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	data := []byte(raw)
	if raw[0] != '<' {
		dec, err := base64.StdEncoding.DecodeString(stripSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %v", ErrMalformed, err)
		}
		data = bytes.TrimSpace(dec)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return doc, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}

// verified retorna la assertion tal como la devolvió el verificador de firma.
// Los claims se leen solo de ese elemento: nada fuera de lo firmado.
func (a *Adapter) verified(ctx context.Context, root *etree.Element) (*etree.Element, error) {
	certs, err := a.certs.Certificates(ctx)
	if err != nil {
		return nil, err
	}
	vctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{Roots: certs})

	switch root.Tag {
	case "Assertion":
		if child(root, "Signature") == nil {
			return nil, fmt.Errorf("%w: assertion is not signed", ErrInvalidSignature)
		}
		return validate(vctx, root)

	case "Response":
		if st := child(child(root, "Status"), "StatusCode"); st == nil || st.SelectAttrValue("Value", "") != statusSuccess {
			return nil, fmt.Errorf("%w: idp status is not success", ErrMalformed)
		}
		if child(root, "EncryptedAssertion") != nil {
			return nil, fmt.Errorf("%w: encrypted assertions are not supported", ErrMalformed)
		}
		assertions := children(root, "Assertion")
		if len(assertions) != 1 {
			return nil, fmt.Errorf("%w: expected exactly one assertion, got %d", ErrMalformed, len(assertions))
		}
		if child(assertions[0], "Signature") != nil {
			return validate(vctx, assertions[0])
		}
		if child(root, "Signature") == nil {
			return nil, fmt.Errorf("%w: neither response nor assertion is signed", ErrInvalidSignature)
		}
		resp, err := validate(vctx, root)
		if err != nil {
			return nil, err
		}
		signed := children(resp, "Assertion")
		if len(signed) != 1 {
			return nil, fmt.Errorf("%w: signed response lost its assertion", ErrInvalidSignature)
		}
		return signed[0], nil

	default:
		return nil, fmt.Errorf("%w: unexpected root element %q", ErrMalformed, root.Tag)
	}
}

// validate separa el elemento de su documento conservando los namespaces
// heredados y verifica la firma enveloped.
func validate(vctx *dsig.ValidationContext, el *etree.Element) (*etree.Element, error) {
	nsCtx, err := etreeutils.NSBuildParentContext(el)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	nsCtx, err = nsCtx.SubContext(el)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	detached, err := etreeutils.NSDetatch(nsCtx, el)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out, err := vctx.Validate(detached)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return out, nil
}

func (a *Adapter) checkWindow(assertion *etree.Element) (time.Time, error) {
	cond := child(assertion, "Conditions")
	if cond == nil {
		return time.Time{}, fmt.Errorf("%w: missing Conditions", ErrMalformed)
	}
	now := a.now()
	skew := a.cfg.ClockSkew

	if v := cond.SelectAttrValue("NotBefore", ""); v != "" {
		nb, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: NotBefore: %v", ErrMalformed, err)
		}
		if now.Add(skew).Before(nb) {
			return time.Time{}, fmt.Errorf("%w: not yet valid", ErrExpired)
		}
	}
	v := cond.SelectAttrValue("NotOnOrAfter", "")
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: missing NotOnOrAfter", ErrMalformed)
	}
	noa, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: NotOnOrAfter: %v", ErrMalformed, err)
	}
	if !now.Add(-skew).Before(noa) {
		return time.Time{}, ErrExpired
	}
	return noa, nil
}

func (a *Adapter) audienceMatches(assertion *etree.Element) bool {
	for _, ar := range children(child(assertion, "Conditions"), "AudienceRestriction") {
		for _, aud := range children(ar, "Audience") {
			if strings.TrimSpace(aud.Text()) == a.cfg.EntityID {
				return true
			}
		}
	}
	return false
}

// child retorna el primer hijo con ese nombre local (sin importar el prefijo).
func child(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func children(el *etree.Element, tag string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}
