// Package storage mirrors the final aggregate into an external table. The
// CSV output stays the primary artifact; a mirror is an optional copy for
// downstream SQL consumers.
//
// Backends register a Factory by kind from their init functions; import
// salesagg/internal/storage/all to enable every built-in backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ColumnType is the portable type of a mirrored column.
type ColumnType int

const (
	Text ColumnType = iota
	Numeric
)

// Column is one mirrored column.
type Column struct {
	Name string
	Type ColumnType
}

// Table describes the destination. Name may be schema-qualified where the
// backend supports it.
type Table struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Mirror replaces the content of a table with a full snapshot.
type Mirror interface {
	// Replace atomically swaps the table content for rows. With create set,
	// the table is created when missing.
	Replace(ctx context.Context, t Table, rows [][]any, create bool) (int64, error)
	Close()
}

// Config selects a backend.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a Mirror.
type Factory func(ctx context.Context, cfg Config) (Mirror, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// twice replaces the factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(kind)] = f
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens the backend named by cfg.Kind.
func New(ctx context.Context, cfg Config) (Mirror, error) {
	mu.RLock()
	f, ok := factories[strings.ToLower(cfg.Kind)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown mirror kind %q (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// CheckRows verifies every row has one value per column.
func CheckRows(t Table, rows [][]any) error {
	for i, r := range rows {
		if len(r) != len(t.Columns) {
			return fmt.Errorf("storage: row %d has %d values, table %s has %d columns", i, len(r), t.Name, len(t.Columns))
		}
	}
	return nil
}
