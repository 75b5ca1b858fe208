package types

import (
	"sort"
	"time"
)

// Permission es una capacidad atómica ("resource:action").
type Permission struct {
	Name        string
	Description string
}

// Role agrupa permisos. Espacio de nombres plano, sin herencia.
type Role struct {
	Name        string
	Description string
	Permissions []string
	CreatedAt   time.Time
}

// Catalog es una lectura consistente de roles y permisos.
type Catalog struct {
	Roles       []Role
	Permissions []Permission
}

// PermissionSet es un conjunto inmutable de nombres de permiso.
type PermissionSet map[string]struct{}

// NewPermissionSet arma el set a partir de nombres.
func NewPermissionSet(names ...string) PermissionSet {
	s := make(PermissionSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names retorna los permisos ordenados.
func (s PermissionSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
