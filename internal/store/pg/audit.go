package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditRepo struct{ pool *pgxpool.Pool }

func (r *auditRepo) Append(ctx context.Context, e types.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	const q = `
INSERT INTO audit_log (id, actor_id, action, target, outcome, detail, request_id, ip, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, q, e.ID, e.ActorID, e.Action, e.Target, string(e.Outcome),
		e.Detail, e.RequestID, e.IP, e.Timestamp)
	return mapErr(err)
}

func (r *auditRepo) List(ctx context.Context, f repository.AuditFilter) ([]types.AuditEntry, error) {
	limit := repository.NormalizeLimit(f.Limit, 100, 500)
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	const q = `
SELECT id::text, actor_id::text, action, target, outcome, detail, request_id, ip, created_at
FROM audit_log
WHERE ($1 = '' OR actor_id::text = $1)
  AND ($2 = '' OR action = $2)
  AND ($3 = '' OR outcome = $3)
ORDER BY created_at DESC, id
LIMIT $4 OFFSET $5`
	rows, err := r.pool.Query(ctx, q, f.ActorID, f.Action, string(f.Outcome), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.AuditEntry, 0, limit)
	for rows.Next() {
		var (
			e       types.AuditEntry
			outcome string
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Target, &outcome, &e.Detail,
			&e.RequestID, &e.IP, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Outcome = types.Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}
