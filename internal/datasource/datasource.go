// Package datasource defines the minimal contract for byte sources feeding
// ingestion.
package datasource

import (
	"context"
	"io"
)

// Source opens a fresh reader over one input. Callers own the returned
// ReadCloser and must close it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
