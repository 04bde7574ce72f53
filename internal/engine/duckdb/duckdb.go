// Package duckdb registers the embedded DuckDB engine, the default. Files are
// read by DuckDB's own CSV scanner and the result is written with COPY. Only
// the header lines are read in Go, to shape the raw view.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"salesagg/internal/datasource/file"
	"salesagg/internal/engine"
	"salesagg/internal/parser/csv"
)

// Name is the registered engine kind.
const Name = "duckdb"

func init() {
	engine.Register(Name, engine.Driver{
		Open:    open,
		Setup:   setup,
		Dialect: Dialect{},
	})
}

// open uses an in-memory database unless a DSN (a database file path) is set.
func open(ctx context.Context, cfg engine.Config) (*sql.DB, error) {
	db, err := sql.Open("duckdb", strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: ping: %w", err)
	}
	return db, nil
}

func setup(ctx context.Context, s *engine.Session, cfg engine.Config) error {
	for _, stmt := range settings(cfg) {
		if _, err := s.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func settings(cfg engine.Config) []string {
	var out []string
	if cfg.Threads > 0 {
		out = append(out, fmt.Sprintf("SET threads = %d", cfg.Threads))
	}
	if m := strings.TrimSpace(cfg.MemoryLimit); m != "" {
		out = append(out, "SET memory_limit = "+engine.QuoteLiteral(m))
	}
	return out
}

// Dialect implements engine.Dialect for DuckDB.
type Dialect struct{}

// IngestCSV implements engine.Dialect. Every cell is read as text and the
// filter columns are cast in the view, so one bad cell never retypes a whole
// column. With IgnoreErrors a row whose quantity or price is not a number is
// dropped like any other malformed row; without it the cast fails the load.
// Files without even a header line are skipped. The view is lazy; DuckDB
// scans the files when the relation is first counted.
func (Dialect) IngestCSV(ctx context.Context, s *engine.Session, relation string, files []string, opt engine.CSVOptions) error {
	if err := checkFiles(files); err != nil {
		return err
	}
	popt := csv.Options{Comma: opt.Comma(), Header: opt.Header}

	var (
		headers  [][]string
		readable []string
	)
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
		readable = append(readable, p)
	}

	_, err := s.Exec(ctx, rawViewSQL(relation, readable, csv.Union(headers...), opt))
	return err
}

func checkFiles(files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("duckdb: no input files")
	}
	for _, p := range files {
		if file.CompressionOf(p) == file.CompressionXZ {
			return fmt.Errorf("duckdb: %s: xz input is not supported by this engine, use sqlite", p)
		}
	}
	return nil
}

// required are the columns the pipeline filters on, with their view types.
var required = []struct{ name, typ string }{
	{"product_id", "VARCHAR"},
	{"quantity", "DOUBLE"},
	{"price", "DOUBLE"},
	{"date", "VARCHAR"},
}

// rawViewSQL builds the typed raw view over files, whose unioned normalized
// header is columns. Required columns no file provides are added as NULL.
// With no files the view is empty but keeps the required shape.
func rawViewSQL(relation string, files, columns []string, opt engine.CSVOptions) string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	var replace, extra, valid []string
	for _, r := range required {
		col := engine.QuoteIdent(r.name)
		switch {
		case len(files) == 0 || !present[r.name]:
			extra = append(extra, fmt.Sprintf("CAST(NULL AS %s) AS %s", r.typ, col))
		case r.typ == "DOUBLE":
			cast := "CAST"
			if opt.IgnoreErrors {
				cast = "TRY_CAST"
				valid = append(valid, fmt.Sprintf("(%s IS NULL OR TRY_CAST(%s AS DOUBLE) IS NOT NULL)", col, col))
			}
			replace = append(replace, fmt.Sprintf("%s(%s AS DOUBLE) AS %s", cast, col, col))
		default:
			replace = append(replace, fmt.Sprintf("NULLIF(TRIM(%s), '') AS %s", col, col))
		}
	}

	if len(files) == 0 {
		return fmt.Sprintf("CREATE VIEW %s AS SELECT %s LIMIT 0",
			engine.QuoteIdent(relation), strings.Join(extra, ", "))
	}

	lits := make([]string, len(files))
	for i, p := range files {
		lits[i] = engine.QuoteLiteral(p)
	}
	inner := fmt.Sprintf(
		"SELECT * FROM read_csv([%s], union_by_name = true, all_varchar = true, normalize_names = true, "+
			"ignore_errors = %t, header = %t, delim = %s)",
		strings.Join(lits, ", "),
		opt.IgnoreErrors,
		opt.Header,
		engine.QuoteLiteral(string(opt.Comma())),
	)
	if len(valid) > 0 {
		inner += " WHERE " + strings.Join(valid, " AND ")
	}

	sel := "*"
	if len(replace) > 0 {
		sel += " REPLACE (" + strings.Join(replace, ", ") + ")"
	}
	for _, e := range extra {
		sel += ", " + e
	}
	return fmt.Sprintf("CREATE VIEW %s AS SELECT %s FROM (%s) AS src", engine.QuoteIdent(relation), sel, inner)
}

// ValidDate implements engine.Dialect.
func (Dialect) ValidDate(col string) string {
	return fmt.Sprintf("TRY_CAST(%s AS DATE) IS NOT NULL", col)
}

// DatePart implements engine.Dialect.
func (Dialect) DatePart(part engine.DatePart, col string) string {
	switch part {
	case engine.Year:
		return fmt.Sprintf("EXTRACT(YEAR FROM CAST(%s AS DATE))", col)
	case engine.Month:
		return fmt.Sprintf("EXTRACT(MONTH FROM CAST(%s AS DATE))", col)
	case engine.Quarter:
		return fmt.Sprintf("EXTRACT(QUARTER FROM CAST(%s AS DATE))", col)
	}
	return "NULL"
}

// Positive implements engine.Dialect.
func (Dialect) Positive(col string) string {
	return fmt.Sprintf("%s > 0", col)
}

// CopyTo implements engine.Dialect.
func (Dialect) CopyTo(ctx context.Context, s *engine.Session, relation, path string, opt engine.CSVOptions) error {
	_, err := s.Exec(ctx, copySQL(relation, path, opt))
	return err
}

func copySQL(relation, path string, opt engine.CSVOptions) string {
	return fmt.Sprintf("COPY %s TO %s (HEADER, DELIMITER %s)",
		engine.QuoteIdent(relation), engine.QuoteLiteral(path), engine.QuoteLiteral(string(opt.Comma())))
}
