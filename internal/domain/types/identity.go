package types

import "time"

// Identity es el principal resuelto por el enforcer para un request.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	Role        string
	Permissions PermissionSet
}

// FederatedClaims es lo que el adaptador SAML extrae de una assertion válida.
type FederatedClaims struct {
	SubjectID    string
	Email        string
	DisplayName  string
	ExternalRole string
	SessionIndex string
	AssertionID  string
	NotOnOrAfter time.Time
	Attributes   map[string][]string
}
