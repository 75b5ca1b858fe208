package saml

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
)

// Claims que emite Azure AD / Entra ID.
const (
	ClaimObjectID    = "http://schemas.microsoft.com/identity/claims/objectidentifier"
	ClaimEmail       = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	ClaimName        = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	ClaimGivenName   = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/givenname"
	ClaimSurname     = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/surname"
	ClaimDisplayName = "http://schemas.microsoft.com/identity/claims/displayname"
	ClaimRole        = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	ClaimGroups      = "http://schemas.microsoft.com/ws/2008/06/identity/claims/groups"
)

func extractClaims(assertion *etree.Element) (types.FederatedClaims, error) {
	attrs := map[string][]string{}
	for _, st := range children(assertion, "AttributeStatement") {
		for _, at := range children(st, "Attribute") {
			name := at.SelectAttrValue("Name", "")
			if name == "" {
				continue
			}
			for _, v := range children(at, "AttributeValue") {
				if s := strings.TrimSpace(v.Text()); s != "" {
					attrs[name] = append(attrs[name], s)
				}
			}
		}
	}

	var nameID string
	if n := child(child(assertion, "Subject"), "NameID"); n != nil {
		nameID = strings.TrimSpace(n.Text())
	}

	c := types.FederatedClaims{Attributes: attrs}

	c.SubjectID = first(attrs, ClaimObjectID)
	if c.SubjectID == "" {
		c.SubjectID = nameID
	}

	c.Email = first(attrs, ClaimEmail, ClaimName)
	if c.Email == "" && strings.Contains(nameID, "@") {
		c.Email = nameID
	}
	c.Email = strings.ToLower(c.Email)

	c.DisplayName = first(attrs, ClaimDisplayName)
	if c.DisplayName == "" {
		c.DisplayName = strings.TrimSpace(first(attrs, ClaimGivenName) + " " + first(attrs, ClaimSurname))
	}
	if c.DisplayName == "" {
		c.DisplayName, _, _ = strings.Cut(c.Email, "@")
	}

	c.ExternalRole = first(attrs, ClaimRole, ClaimGroups)

	if as := child(assertion, "AuthnStatement"); as != nil {
		c.SessionIndex = as.SelectAttrValue("SessionIndex", "")
	}

	switch {
	case c.SubjectID == "":
		return c, fmt.Errorf("%w: subject", ErrMissingClaim)
	case c.Email == "":
		return c, fmt.Errorf("%w: email", ErrMissingClaim)
	}
	return c, nil
}

// first retorna el primer valor del primer claim presente.
func first(attrs map[string][]string, names ...string) string {
	for _, n := range names {
		if v := attrs[n]; len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
