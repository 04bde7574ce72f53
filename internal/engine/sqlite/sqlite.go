// Package sqlite registers the pure-Go SQLite engine (modernc.org/sqlite).
//
// SQLite has no CSV table function, so raw_data is materialized as a table:
// headers of every file are unioned by name, then rows are streamed through
// the Go CSV reader into a prepared INSERT inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"salesagg/internal/datasource/file"
	"salesagg/internal/engine"
	"salesagg/internal/parser/csv"
)

// Name is the registered engine kind.
const Name = "sqlite"

// DefaultDSN keeps the catalog in memory for the life of the session.
const DefaultDSN = ":memory:"

func init() {
	engine.Register(Name, engine.Driver{
		Open:    open,
		Setup:   setup,
		Dialect: Dialect{},
	})
}

func open(ctx context.Context, cfg engine.Config) (*sql.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

func setup(ctx context.Context, s *engine.Session, _ engine.Config) error {
	_, err := s.Exec(ctx, "PRAGMA temp_store = MEMORY")
	return err
}

// Column type hints for the fields the pipeline filters on. Everything else
// is stored as TEXT.
var hints = map[string]string{
	"product_id": "TEXT",
	"quantity":   "NUMERIC",
	"price":      "NUMERIC",
	"date":       "TEXT",
}

// defaultColumns shape raw_data when no file contributes a header.
var defaultColumns = []string{"product_id", "quantity", "price", "date"}

// Dialect implements engine.Dialect for SQLite.
type Dialect struct{}

// IngestCSV implements engine.Dialect.
func (Dialect) IngestCSV(ctx context.Context, s *engine.Session, relation string, files []string, opt engine.CSVOptions) error {
	popt := csv.Options{Comma: opt.Comma(), Header: opt.Header, IgnoreErrors: opt.IgnoreErrors}

	var headers [][]string
	for _, p := range files {
		src, err := file.NewLocal(p).Open(ctx)
		if err != nil {
			return err
		}
		h, err := csv.ReadHeader(ctx, src, popt)
		if errors.Is(err, csv.ErrNoHeader) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		headers = append(headers, h)
	}
	columns := csv.Union(headers...)
	if len(columns) == 0 {
		columns = defaultColumns
	}

	if _, err := s.Exec(ctx, createTableSQL(relation, columns)); err != nil {
		return err
	}
	return insertFiles(ctx, s, relation, columns, files, popt)
}

func createTableSQL(relation string, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		typ, ok := hints[c]
		if !ok {
			typ = "TEXT"
		}
		defs[i] = engine.QuoteIdent(c) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", engine.QuoteIdent(relation), strings.Join(defs, ", "))
}

func insertSQL(relation string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = engine.QuoteIdent(c)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		engine.QuoteIdent(relation), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

func insertFiles(ctx context.Context, s *engine.Session, relation string, columns []string, files []string, opt csv.Options) error {
	stmtSQL := insertSQL(relation, columns)
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return &engine.QueryError{Statement: stmtSQL, Err: err}
	}
	defer stmt.Close()

	numeric := make([]bool, len(columns))
	for i, c := range columns {
		numeric[i] = hints[c] == "NUMERIC"
	}

	for _, p := range files {
		src, err := file.NewLocal(p).Open(ctx)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		emit := func(line int, row []any) error {
			for i, v := range row {
				if !numeric[i] || v == nil {
					continue
				}
				n, ok := parseNumber(v.(string))
				if !ok {
					if opt.IgnoreErrors {
						return nil
					}
					return fmt.Errorf("%s line %d: column %s: not a number: %q", p, line, columns[i], v)
				}
				row[i] = n
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return &engine.QueryError{Statement: stmtSQL, Err: err}
			}
			return nil
		}
		if _, err := csv.StreamRows(ctx, src, columns, opt, emit, nil); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("ingest %s: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// parseNumber reads an integer when possible, else a float.
func parseNumber(s string) (any, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

// ValidDate implements engine.Dialect. date() normalizes out-of-range days
// forward, so the round trip rejects values like 2024-02-30.
func (Dialect) ValidDate(col string) string {
	return fmt.Sprintf("(date(%s) IS NOT NULL AND date(%s) = substr(%s, 1, 10))", col, col, col)
}

// DatePart implements engine.Dialect.
func (Dialect) DatePart(part engine.DatePart, col string) string {
	switch part {
	case engine.Year:
		return fmt.Sprintf("CAST(strftime('%%Y', %s) AS INTEGER)", col)
	case engine.Month:
		return fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER)", col)
	case engine.Quarter:
		return fmt.Sprintf("((CAST(strftime('%%m', %s) AS INTEGER) + 2) / 3)", col)
	}
	return "NULL"
}

// Positive implements engine.Dialect.
func (Dialect) Positive(col string) string {
	return fmt.Sprintf("(typeof(%s) IN ('integer', 'real') AND %s > 0)", col, col)
}

// CopyTo implements engine.Dialect.
func (Dialect) CopyTo(ctx context.Context, s *engine.Session, relation, path string, opt engine.CSVOptions) error {
	return engine.CopyViaRows(ctx, s, relation, path, opt)
}
