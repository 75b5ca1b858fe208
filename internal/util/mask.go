// Package util agrupa helpers chicos sin dependencias del dominio.
package util

import "strings"

// MaskEmail deja el primer carácter del usuario y de cada label del dominio
// salvo el TLD: "jane.doe@corp.example.com" -> "j***@c***.e***.com".
// Se usa para loguear emails no verificados (intentos de login).
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	user, dom, ok := strings.Cut(s, "@")
	if !ok || user == "" {
		return maskPart(s)
	}
	labels := strings.Split(dom, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = maskPart(labels[i])
	}
	if len(labels) == 1 {
		labels[0] = maskPart(labels[0])
	}
	return maskPart(user) + "@" + strings.Join(labels, ".")
}

func maskPart(p string) string {
	if p == "" {
		return ""
	}
	r := []rune(p)
	return string(r[0]) + "***"
}
