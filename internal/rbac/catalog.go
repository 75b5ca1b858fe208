package rbac

import "github.com/dropDatabas3/gatekeeper/internal/domain/types"

// Permisos que el propio core consulta.
const (
	PermManageUsers = "users:manage"
	PermReadUsers   = "users:read"
	PermManageRoles = "roles:manage"
	PermReadRoles   = "roles:read"
	PermReadAudit   = "audit:read"
	PermReadSystem  = "system:read"
)

// Roles de sistema.
const (
	RoleSuperAdmin    = "Super Admin"
	RoleHRManager     = "HR Manager"
	RoleRecruiter     = "Recruiter"
	RoleHRIntern      = "HR Intern"
	RoleSourcer       = "Sourcer"
	RoleHiringManager = "Hiring Manager"
)

// DefaultPermissions es el catálogo inicial ("resource:action").
var DefaultPermissions = []types.Permission{
	{Name: "users:manage", Description: "Create, update, delete users"},
	{Name: "users:read", Description: "View user information"},
	{Name: "roles:manage", Description: "Create, update, delete roles"},
	{Name: "roles:read", Description: "View roles"},
	{Name: "system:manage", Description: "Manage system settings"},
	{Name: "system:read", Description: "View system settings"},
	{Name: "documents:manage", Description: "Full document management"},
	{Name: "documents:create", Description: "Upload documents"},
	{Name: "documents:read", Description: "View documents"},
	{Name: "documents:update", Description: "Edit documents"},
	{Name: "documents:delete", Description: "Delete documents"},
	{Name: "documents:export", Description: "Export data"},
	{Name: "candidates:create", Description: "Create new candidates"},
	{Name: "candidates:read", Description: "View candidate information"},
	{Name: "candidates:update", Description: "Update candidate information"},
	{Name: "candidates:delete", Description: "Delete candidates"},
	{Name: "candidates:comment", Description: "Comment and rate candidates"},
	{Name: "candidates:read_assigned", Description: "View assigned candidates"},
	{Name: "ai:execute", Description: "Run AI queries"},
	{Name: "ai:advanced", Description: "Use advanced AI features"},
	{Name: "audit:read", Description: "View audit logs"},
	{Name: "pii:read", Description: "View personally identifiable information"},
}

// DefaultRoles retorna los roles iniciales con sus permisos. Super Admin
// recibe el catálogo completo.
func DefaultRoles() []types.Role {
	all := make([]string, 0, len(DefaultPermissions))
	for _, p := range DefaultPermissions {
		all = append(all, p.Name)
	}
	limited := []string{
		"documents:create", "documents:read",
		"candidates:create", "candidates:read", "candidates:comment",
	}
	return []types.Role{
		{Name: RoleSuperAdmin, Description: "Full access to everything", Permissions: all},
		{Name: RoleHRManager, Description: "Full control over recruitment data, can't change system settings", Permissions: []string{
			"users:read",
			"documents:manage", "documents:create", "documents:read", "documents:update", "documents:delete", "documents:export",
			"candidates:create", "candidates:read", "candidates:update", "candidates:delete",
			"ai:execute", "ai:advanced", "candidates:comment", "candidates:read_assigned", "pii:read",
		}},
		{Name: RoleRecruiter, Description: "Can upload/view/edit documents and run queries", Permissions: []string{
			"documents:create", "documents:read", "documents:update",
			"candidates:create", "candidates:read", "candidates:update",
			"ai:execute", "candidates:comment", "candidates:read_assigned", "pii:read",
		}},
		{Name: RoleHRIntern, Description: "Can upload/view limited info, no PII or advanced features", Permissions: append([]string(nil), limited...)},
		{Name: RoleSourcer, Description: "Can upload/view limited info, no PII or advanced features", Permissions: append([]string(nil), limited...)},
		{Name: RoleHiringManager, Description: "Read-only access to assigned candidates", Permissions: []string{
			"candidates:read_assigned", "candidates:comment",
		}},
	}
}
