package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rbacRepo struct{ pool *pgxpool.Pool }

// ---------- LECTURAS ----------

// LoadCatalog lee roles, permisos y vínculos en una transacción REPEATABLE
// READ para que el snapshot no mezcle estados de mutaciones concurrentes.
func (r *rbacRepo) LoadCatalog(ctx context.Context) (types.Catalog, error) {
	var c types.Catalog
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT name, description FROM permission ORDER BY name`)
		if err != nil {
			return err
		}
		perms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Permission, error) {
			var p types.Permission
			err := row.Scan(&p.Name, &p.Description)
			return p, err
		})
		if err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `SELECT name, description, created_at FROM role ORDER BY name`)
		if err != nil {
			return err
		}
		roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Role, error) {
			var ro types.Role
			err := row.Scan(&ro.Name, &ro.Description, &ro.CreatedAt)
			return ro, err
		})
		if err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `SELECT role_name, permission_name FROM role_permission ORDER BY role_name, permission_name`)
		if err != nil {
			return err
		}
		links := map[string][]string{}
		for rows.Next() {
			var role, perm string
			if err := rows.Scan(&role, &perm); err != nil {
				rows.Close()
				return err
			}
			links[role] = append(links[role], perm)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for i := range roles {
			roles[i].Permissions = links[roles[i].Name]
		}
		c = types.Catalog{Roles: roles, Permissions: perms}
		return nil
	})
	return c, err
}

// ---------- ESCRITURAS ----------

func (r *rbacRepo) CreateRole(ctx context.Context, role types.Role) error {
	if strings.TrimSpace(role.Name) == "" {
		return repository.ErrInvalidInput
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO role (name, description) VALUES ($1, $2)`,
			role.Name, role.Description); err != nil {
			return mapErr(err)
		}
		if len(role.Permissions) == 0 {
			return nil
		}
		b := &pgx.Batch{}
		for _, p := range clean(role.Permissions) {
			b.Queue(`INSERT INTO role_permission (role_name, permission_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, role.Name, p)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			if errors.Is(mapErr(err), repository.ErrInvalidInput) {
				return repository.ErrNotFound // permiso inexistente
			}
			return mapErr(err)
		}
		return nil
	})
}

func (r *rbacRepo) DeleteRole(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM role WHERE name = $1`, name)
	if err != nil {
		mapped := mapErr(err)
		if errors.Is(mapped, repository.ErrInvalidInput) {
			return repository.ErrRoleInUse // FK desde app_user
		}
		return mapped
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *rbacRepo) CreatePermission(ctx context.Context, p types.Permission) error {
	if strings.TrimSpace(p.Name) == "" {
		return repository.ErrInvalidInput
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO permission (name, description) VALUES ($1, $2)`, p.Name, p.Description)
	return mapErr(err)
}

// DeletePermission: ON DELETE CASCADE en role_permission lo quita de todos los roles.
func (r *rbacRepo) DeletePermission(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permission WHERE name = $1`, name)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *rbacRepo) AddRolePermission(ctx context.Context, role, perm string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO role_permission (role_name, permission_name)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`, role, perm)
	if err = mapErr(err); errors.Is(err, repository.ErrInvalidInput) {
		return repository.ErrNotFound
	}
	return err
}

func (r *rbacRepo) RemoveRolePermission(ctx context.Context, role, perm string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM role WHERE name = $1)`, role).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permission WHERE role_name = $1 AND permission_name = $2`, role, perm)
	return mapErr(err)
}

// clean normaliza y deduplica nombres.
func clean(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
