package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Session methods after Close.
var ErrClosed = errors.New("engine: session closed")

// Session is one engine connection and its catalog. It is not safe for
// concurrent use.
type Session struct {
	kind    string
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect

	closeOnce sync.Once
	closeErr  error
}

// Kind is the registered driver name.
func (s *Session) Kind() string { return s.kind }

// Dialect returns the driver's SQL dialect.
func (s *Session) Dialect() Dialect { return s.dialect }

// Exec runs a statement and returns the rows affected, or 0 when the engine
// does not report it.
func (s *Session) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	if s.conn == nil {
		return 0, ErrClosed
	}
	res, err := s.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, &QueryError{Statement: stmt, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Query runs a row-returning statement. The caller closes the rows.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.conn == nil {
		return nil, ErrClosed
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Statement: query, Err: err}
	}
	return rows, nil
}

// Scalar returns the single cell of a one-row, one-column query.
func (s *Session) Scalar(ctx context.Context, query string, args ...any) (any, error) {
	if s.conn == nil {
		return nil, ErrClosed
	}
	var v any
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return nil, &QueryError{Statement: query, Err: err}
	}
	return v, nil
}

// Count returns the number of rows in relation.
func (s *Session) Count(ctx context.Context, relation string) (int64, error) {
	if s.conn == nil {
		return 0, ErrClosed
	}
	q := "SELECT COUNT(*) FROM " + QuoteIdent(relation)
	var n int64
	if err := s.conn.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, &QueryError{Statement: q, Err: err}
	}
	return n, nil
}

// BeginTx starts a transaction on the pinned connection.
func (s *Session) BeginTx(ctx context.Context) (*sql.Tx, error) {
	if s.conn == nil {
		return nil, ErrClosed
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

// Close releases the connection and the handle. Later calls return the
// first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.conn != nil {
			errs = append(errs, s.conn.Close())
			s.conn = nil
		}
		if s.db != nil {
			errs = append(errs, s.db.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
