package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrator aplica archivos NNNN_name_up.sql / NNNN_name_down.sql y registra
// las versiones aplicadas en schema_migrations.
type Migrator struct {
	pool *pgxpool.Pool
	fsys fs.FS
}

func NewMigrator(pool *pgxpool.Pool, fsys fs.FS) *Migrator {
	return &Migrator{pool: pool, fsys: fsys}
}

// Up aplica las migraciones pendientes en orden ascendente. steps<=0 = todas.
func (m *Migrator) Up(ctx context.Context, steps int) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	files, err := listSQL(m.fsys, "_up.sql")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		v := version(f, "_up.sql")
		if applied[v] {
			continue
		}
		if steps > 0 && n >= steps {
			break
		}
		if err := m.exec(ctx, f, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, v)
			return err
		}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Down revierte las migraciones aplicadas más recientes. steps<=0 = todas.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	files, err := listSQL(m.fsys, "_down.sql")
	if err != nil {
		return 0, err
	}
	reverseInPlace(files)
	n := 0
	for _, f := range files {
		v := version(f, "_down.sql")
		if !applied[v] {
			continue
		}
		if steps > 0 && n >= steps {
			break
		}
		if err := m.exec(ctx, f, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, v)
			return err
		}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	return err
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

// exec corre el archivo y el registro de versión en la misma transacción.
func (m *Migrator) exec(ctx context.Context, name string, record func(pgx.Tx) error) error {
	b, err := fs.ReadFile(m.fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	start := time.Now()
	err = pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(b)); err != nil {
			return err
		}
		return record(tx)
	})
	if err != nil {
		return fmt.Errorf("exec %s: %w", name, err)
	}
	logger.From(ctx).Info("migration applied",
		logger.Component("migrate"),
		logger.String("file", name),
		logger.Duration(time.Since(start).Truncate(time.Millisecond)),
	)
	return nil
}

func listSQL(fsys fs.FS, suffix string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// version: "0001_init_up.sql" -> "0001_init".
func version(name, suffix string) string {
	return strings.TrimSuffix(name, suffix)
}

func reverseInPlace(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}
