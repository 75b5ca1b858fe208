package types

import "time"

// AuthMethod indica la credencial primaria con la que el usuario se autentica.
type AuthMethod string

const (
	AuthLocal     AuthMethod = "local"
	AuthFederated AuthMethod = "federated"
)

// Credentials es una variante cerrada: solo LocalCredentials y
// FederatedCredentials la implementan.
type Credentials interface {
	Method() AuthMethod
	sealed()
}

// LocalCredentials: usuario con email/password propio.
type LocalCredentials struct {
	PasswordHash string
}

func (LocalCredentials) Method() AuthMethod { return AuthLocal }
func (LocalCredentials) sealed() {}

// FederatedCredentials: usuario autenticado por el IdP. SubjectID es la
// clave durable (el email puede cambiar upstream) y nunca se reasigna.
// PasswordHash solo está presente si una cuenta local se vinculó al IdP:
// el usuario conserva su password.
type FederatedCredentials struct {
	SubjectID    string
	PasswordHash string
}

func (FederatedCredentials) Method() AuthMethod { return AuthFederated }
func (FederatedCredentials) sealed() {}

// User es el registro canónico de identidad.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Credentials Credentials
	// Role referencia Role.Name; un usuario tiene exactamente un rol.
	Role string
	// ExternalRole es el último claim de rol visto en el IdP (sin mapear).
	ExternalRole string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Method retorna el método de autenticación; "" si no hay credenciales.
func (u User) Method() AuthMethod {
	if u.Credentials == nil {
		return ""
	}
	return u.Credentials.Method()
}

// PasswordHash retorna el hash local, propio o retenido tras vincular.
func (u User) PasswordHash() (string, bool) {
	var hash string
	switch c := u.Credentials.(type) {
	case LocalCredentials:
		hash = c.PasswordHash
	case FederatedCredentials:
		hash = c.PasswordHash
	}
	return hash, hash != ""
}

// SetPasswordHash reemplaza el hash sin cambiar la variante: un usuario
// vinculado sigue siendo federado.
func (u *User) SetPasswordHash(hash string) {
	if c, ok := u.Credentials.(FederatedCredentials); ok {
		c.PasswordHash = hash
		u.Credentials = c
		return
	}
	u.Credentials = LocalCredentials{PasswordHash: hash}
}

// FederatedSubject retorna el subject del IdP si el usuario es federado.
func (u User) FederatedSubject() (string, bool) {
	c, ok := u.Credentials.(FederatedCredentials)
	if !ok || c.SubjectID == "" {
		return "", false
	}
	return c.SubjectID, true
}
