// Package validation concentra las reglas de nombres del catálogo RBAC.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Reglas de nombre de permiso ("resource:action"):
// - minúsculas, dígitos y "_" en cada segmento;
// - resource puede tener subniveles con "." (ej: reports.finance:read);
// - exactamente un ":";
// - largo 3..64.
//
// Válidos: users:read, candidates:read_assigned, reports.finance:export
// Inválidos: users, users:, :read, Users:Read, users:read:all, "users :read"
var permissionNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*(?:\.[a-z0-9_]+)*:[a-z][a-z0-9_]*$`)

// ValidPermissionName reporta si name respeta el formato resource:action.
func ValidPermissionName(name string) bool {
	return len(name) >= 3 && len(name) <= 64 && permissionNameRe.MatchString(name)
}

// Reglas de nombre de rol:
// - letras, dígitos, espacio, "-" y "_";
// - empieza y termina con letra o dígito;
// - largo 1..64 runas.
//
// Válidos: Super Admin, HR Intern, auditor-2
// Inválidos: "", " Admin", "Admin ", "ad;min", "a/b"
var roleNameRe = regexp.MustCompile(`^[\p{L}\p{N}](?:[\p{L}\p{N} _-]*[\p{L}\p{N}])?$`)

// ValidRoleName reporta si name es un nombre de rol aceptable.
func ValidRoleName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= 1 && n <= 64 && !strings.Contains(name, "  ") && roleNameRe.MatchString(name)
}
