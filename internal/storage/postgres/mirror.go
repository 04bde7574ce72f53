// Package postgres mirrors the aggregate into a Postgres table using pgx v5.
// The snapshot is written with TRUNCATE + COPY inside one transaction, so
// readers see either the previous run or the new one.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"salesagg/internal/storage"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Mirror, error) {
		return New(ctx, cfg.DSN)
	})
}

// Mirror is a Postgres-backed storage.Mirror.
type Mirror struct {
	pool *pgxpool.Pool
}

// New connects a pool to dsn and verifies it with a ping.
func New(ctx context.Context, dsn string) (*Mirror, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Mirror{pool: pool}, nil
}

// Close releases the pool.
func (m *Mirror) Close() { m.pool.Close() }

// Replace implements storage.Mirror.
func (m *Mirror) Replace(ctx context.Context, t storage.Table, rows [][]any, create bool) (int64, error) {
	if err := storage.CheckRows(t, rows); err != nil {
		return 0, err
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if create {
		if _, err := tx.Exec(ctx, CreateTableSQL(t)); err != nil {
			return 0, fmt.Errorf("postgres: create table: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+pgFQN(t.Name)); err != nil {
		return 0, fmt.Errorf("postgres: truncate: %w", err)
	}

	n, err := tx.CopyFrom(ctx, splitFQN(t.Name), t.ColumnNames(), pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return 0, fmt.Errorf("postgres: copy: %s (%s)", pgErr.Detail, pgErr.SQLState())
		}
		return 0, fmt.Errorf("postgres: copy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for t.
func CreateTableSQL(t storage.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pgIdent(c.Name) + " " + sqlType(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", pgFQN(t.Name), strings.Join(cols, ",\n  "))
}

func sqlType(ct storage.ColumnType) string {
	if ct == storage.Numeric {
		return "NUMERIC"
	}
	return "TEXT"
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.product_summary"
// to "public"."product_summary".
func pgFQN(name string) string {
	parts := splitFQN(name)
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = pgIdent(p)
	}
	return strings.Join(out, ".")
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// Empty segments are dropped.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
