package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPermissionName(t *testing.T) {
	for _, v := range []string{
		"users:read",
		"candidates:read_assigned",
		"ai:execute",
		"reports.finance:export",
		"a:b",
	} {
		assert.True(t, ValidPermissionName(v), v)
	}
	for _, v := range []string{
		"",
		"users",
		"users:",
		":read",
		"Users:Read",
		"users:read:all",
		"users :read",
		"users;drop:read",
		"u:" + strings.Repeat("a", 63),
	} {
		assert.False(t, ValidPermissionName(v), v)
	}
}

func TestValidRoleName(t *testing.T) {
	for _, v := range []string{"Super Admin", "HR Intern", "auditor-2", "R", "Gestión_RRHH"} {
		assert.True(t, ValidRoleName(v), v)
	}
	for _, v := range []string{"", " Admin", "Admin ", "ad;min", "a/b", "two  spaces", strings.Repeat("x", 65)} {
		assert.False(t, ValidRoleName(v), v)
	}
}
