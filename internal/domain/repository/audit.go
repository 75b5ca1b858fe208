package repository

import (
	"context"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
)

// AuditFilter opciones para listar entradas de auditoría (más recientes primero).
type AuditFilter struct {
	ActorID string
	Action  string
	Outcome types.Outcome
	Limit   int // Default 100, max 500
	Offset  int
}

// AuditRepository es append-only: no existe Update ni Delete.
type AuditRepository interface {
	Append(ctx context.Context, e types.AuditEntry) error
	List(ctx context.Context, f AuditFilter) ([]types.AuditEntry, error)
}
