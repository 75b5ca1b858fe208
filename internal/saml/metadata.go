package saml

import (
	"github.com/beevik/etree"
)

const (
	nsMetadata    = "urn:oasis:names:tc:SAML:2.0:metadata"
	protocolSAML2 = "urn:oasis:names:tc:SAML:2.0:protocol"
	bindingPOST   = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"
	nameIDEmail   = "urn:oasis:names:tc:SAML:1.1:nameid-format:emailAddress"
)

// Metadata genera el EntityDescriptor del SP para registrarlo en el IdP.
func (a *Adapter) Metadata() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	ed := doc.CreateElement("md:EntityDescriptor")
	ed.CreateAttr("xmlns:md", nsMetadata)
	ed.CreateAttr("entityID", a.cfg.EntityID)

	sp := ed.CreateElement("md:SPSSODescriptor")
	sp.CreateAttr("AuthnRequestsSigned", "false")
	sp.CreateAttr("WantAssertionsSigned", "true")
	sp.CreateAttr("protocolSupportEnumeration", protocolSAML2)

	sp.CreateElement("md:NameIDFormat").SetText(nameIDEmail)

	if a.cfg.ACSURL != "" {
		acs := sp.CreateElement("md:AssertionConsumerService")
		acs.CreateAttr("Binding", bindingPOST)
		acs.CreateAttr("Location", a.cfg.ACSURL)
		acs.CreateAttr("index", "0")
		acs.CreateAttr("isDefault", "true")
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}
