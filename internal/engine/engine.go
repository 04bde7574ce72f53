// Package engine is the only path from the pipeline to an embedded relational
// engine. A Driver registers itself by name from its init function; Open
// resolves it and returns a Session pinned to a single connection, so an
// in-memory catalog lives exactly as long as the session.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
)

// Config selects and tunes a driver.
type Config struct {
	Kind        string
	DSN         string
	Threads     int
	MemoryLimit string
}

// CSVOptions controls delimited text ingestion and export.
type CSVOptions struct {
	Delimiter    rune
	Header       bool
	IgnoreErrors bool
}

// Comma returns the delimiter, defaulting to ','.
func (o CSVOptions) Comma() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

// DatePart names a calendar field extracted from a date column.
type DatePart string

const (
	Year    DatePart = "year"
	Month   DatePart = "month"
	Quarter DatePart = "quarter"
)

// Dialect holds the SQL fragments and bulk operations that differ between
// engines. Fragment methods receive quoted identifiers.
type Dialect interface {
	// IngestCSV creates relation over the union by column name of files.
	IngestCSV(ctx context.Context, s *Session, relation string, files []string, opt CSVOptions) error
	// ValidDate is a predicate true when col holds a parseable calendar date.
	ValidDate(col string) string
	// DatePart extracts part from col as an integer.
	DatePart(part DatePart, col string) string
	// Positive is a predicate true when col is numeric and greater than zero.
	Positive(col string) string
	// CopyTo writes relation to path as delimited text with a header row.
	CopyTo(ctx context.Context, s *Session, relation, path string, opt CSVOptions) error
}

// Driver opens a database handle and configures the pinned connection.
type Driver struct {
	Open func(ctx context.Context, cfg Config) (*sql.DB, error)
	// Setup runs once on the pinned connection. Optional.
	Setup   func(ctx context.Context, s *Session, cfg Config) error
	Dialect Dialect
}

var (
	mu      sync.RWMutex
	drivers = map[string]Driver{}
)

// Register makes a driver available under name. It panics on an empty name,
// an incomplete driver or a duplicate registration.
func Register(name string, d Driver) {
	mu.Lock()
	defer mu.Unlock()
	if name == "" || d.Open == nil || d.Dialect == nil {
		panic("engine: Register with empty name or incomplete driver")
	}
	if _, dup := drivers[name]; dup {
		panic("engine: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Drivers returns the sorted names of registered drivers.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(drivers))
	for n := range drivers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func lookup(name string) (Driver, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := drivers[name]
	return d, ok
}

// Open starts a session on the driver named by cfg.Kind. Every failure is
// returned as *InitError.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	d, ok := lookup(cfg.Kind)
	if !ok {
		return nil, &InitError{Engine: cfg.Kind, Err: fmt.Errorf("unknown engine (registered: %v)", Drivers())}
	}

	db, err := d.Open(ctx, cfg)
	if err != nil {
		return nil, &InitError{Engine: cfg.Kind, Err: err}
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, &InitError{Engine: cfg.Kind, Err: fmt.Errorf("acquire connection: %w", err)}
	}

	s := &Session{kind: cfg.Kind, db: db, conn: conn, dialect: d.Dialect}
	if d.Setup != nil {
		if err := d.Setup(ctx, s, cfg); err != nil {
			s.Close()
			return nil, &InitError{Engine: cfg.Kind, Err: err}
		}
	}
	return s, nil
}
