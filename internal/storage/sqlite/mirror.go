// Package sqlite mirrors the aggregate into a SQLite database file. It
// performs DELETE + batched INSERTs inside one transaction; SQLite has no
// bulk-load API, but for one row per product that is plenty.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"salesagg/internal/storage"
)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Mirror, error) {
		return New(ctx, cfg.DSN)
	})
}

// Mirror is a SQLite-backed storage.Mirror.
type Mirror struct {
	db *sql.DB
}

// New opens dsn, e.g. "results/summary.db" or "file:summary.db?_pragma=busy_timeout(5000)".
func New(ctx context.Context, dsn string) (*Mirror, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Mirror{db: db}, nil
}

// Close closes the database.
func (m *Mirror) Close() { m.db.Close() }

// Replace implements storage.Mirror.
func (m *Mirror) Replace(ctx context.Context, t storage.Table, rows [][]any, create bool) (int64, error) {
	if len(t.Columns) == 0 {
		return 0, fmt.Errorf("sqlite: table %s has no columns", t.Name)
	}
	if err := storage.CheckRows(t, rows); err != nil {
		return 0, err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if create {
		if _, err := tx.ExecContext(ctx, CreateTableSQL(t)); err != nil {
			return 0, fmt.Errorf("sqlite: create table: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+quoteIdent(t.Name)); err != nil {
		return 0, fmt.Errorf("sqlite: clear table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(t))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return inserted, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for t.
func CreateTableSQL(t storage.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		typ := "TEXT"
		if c.Type == storage.Numeric {
			typ = "NUMERIC"
		}
		cols[i] = quoteIdent(c.Name) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(t.Name), strings.Join(cols, ", "))
}

func insertSQL(t storage.Table) string {
	cols := make([]string, len(t.Columns))
	ph := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c.Name)
		ph[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(t.Name), strings.Join(cols, ", "), strings.Join(ph, ", "))
}

func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
