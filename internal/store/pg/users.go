package pg

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/domain/repository"
	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepo struct{ pool *pgxpool.Pool }

const userCols = `id::text, email, display_name, auth_method, password_hash, federated_subject,
role_name, external_role, active, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var (
		u      types.User
		method string
		hash   *string
		sub    *string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &method, &hash, &sub,
		&u.Role, &u.ExternalRole, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	switch types.AuthMethod(method) {
	case types.AuthFederated:
		u.Credentials = types.FederatedCredentials{SubjectID: deref(sub), PasswordHash: deref(hash)}
	default:
		u.Credentials = types.LocalCredentials{PasswordHash: deref(hash)}
	}
	return &u, nil
}

// credentialColumns descompone la variante en columnas persistidas.
func credentialColumns(c types.Credentials) (method string, hash, sub *string, err error) {
	switch v := c.(type) {
	case types.LocalCredentials:
		if v.PasswordHash == "" {
			return "", nil, nil, repository.ErrInvalidInput
		}
		return string(types.AuthLocal), &v.PasswordHash, nil, nil
	case types.FederatedCredentials:
		if v.SubjectID == "" {
			return "", nil, nil, repository.ErrInvalidInput
		}
		if v.PasswordHash != "" {
			hash = &v.PasswordHash
		}
		return string(types.AuthFederated), hash, &v.SubjectID, nil
	default:
		return "", nil, nil, repository.ErrInvalidInput
	}
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*types.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	q := `SELECT ` + userCols + ` FROM app_user WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	q := `SELECT ` + userCols + ` FROM app_user WHERE LOWER(email) = LOWER($1) LIMIT 1`
	return scanUser(r.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
}

func (r *userRepo) GetBySubject(ctx context.Context, subject string) (*types.User, error) {
	q := `SELECT ` + userCols + ` FROM app_user WHERE federated_subject = $1`
	return scanUser(r.pool.QueryRow(ctx, q, subject))
}

func (r *userRepo) Create(ctx context.Context, u *types.User) error {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return repository.ErrInvalidInput
	}
	method, hash, sub, err := credentialColumns(u.Credentials)
	if err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	const q = `
INSERT INTO app_user (id, email, display_name, auth_method, password_hash, federated_subject,
                      role_name, external_role, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.pool.Exec(ctx, q, u.ID, u.Email, u.DisplayName, method, hash, sub,
		u.Role, u.ExternalRole, u.Active, u.CreatedAt, u.UpdatedAt)
	return mapErr(err)
}

func (r *userRepo) Update(ctx context.Context, u *types.User) error {
	if u == nil {
		return repository.ErrInvalidInput
	}
	method, hash, sub, err := credentialColumns(u.Credentials)
	if err != nil {
		return err
	}
	const q = `
UPDATE app_user
   SET email = $2, display_name = $3, auth_method = $4, password_hash = $5,
       federated_subject = $6, role_name = $7, external_role = $8, active = $9,
       updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at`
	err = r.pool.QueryRow(ctx, q, u.ID, u.Email, u.DisplayName, method, hash, sub,
		u.Role, u.ExternalRole, u.Active).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if hash == "" {
		return repository.ErrInvalidInput
	}
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrNotFound
	}
	const q = `
UPDATE app_user SET password_hash = $2, updated_at = now()
 WHERE id = $1 AND password_hash IS NOT NULL`
	tag, err := r.pool.Exec(ctx, q, id, hash)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, f repository.ListUsersFilter) ([]types.User, error) {
	limit := repository.NormalizeLimit(f.Limit, 50, 200)
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + userCols + ` FROM app_user
WHERE ($1 = '' OR role_name = $1)
  AND ($2 = '' OR LOWER(email) LIKE '%' || LOWER($2) || '%' OR LOWER(display_name) LIKE '%' || LOWER($2) || '%')
ORDER BY created_at, id
LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, q, f.Role, strings.TrimSpace(f.Search), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
