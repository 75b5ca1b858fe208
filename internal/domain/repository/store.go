package repository

import "context"

// Store agrupa los repositorios de un driver.
type Store interface {
	Users() UserRepository
	RBAC() RBACRepository
	Audit() AuditRepository
	Ping(ctx context.Context) error
	Close()
}

// NormalizeLimit aplica default y máximo a un límite de paginación.
func NormalizeLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
