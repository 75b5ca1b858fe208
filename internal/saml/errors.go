package saml

import "errors"

var (
	ErrMalformed        = errors.New("saml: malformed response")
	ErrInvalidSignature = errors.New("saml: invalid signature")
	ErrExpired          = errors.New("saml: assertion outside validity window")
	ErrAudienceMismatch = errors.New("saml: audience mismatch")
	ErrReplayed         = errors.New("saml: assertion replayed")
	ErrMissingClaim     = errors.New("saml: missing required claim")
	ErrNoCertificates   = errors.New("saml: no idp certificates available")
)
