// Package csv streams delimited text into rows aligned to a caller-chosen
// column order. Engines without a native CSV reader ingest through it, and
// the inspect command uses it to count rows and parse errors.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNoHeader is returned by ReadHeader for an input with no records at all.
var ErrNoHeader = errors.New("empty input: no header row")

// Options tunes the reader.
type Options struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
	// Header treats the first record as column names.
	Header bool
	// IgnoreErrors skips malformed rows instead of failing the stream.
	// Skipped rows are reported through onErr.
	IgnoreErrors bool
	// Log receives a heartbeat every logEveryN rows. Nil disables it.
	Log *zerolog.Logger
}

func (o Options) comma() rune {
	if o.Comma == 0 {
		return ','
	}
	return o.Comma
}

// Stats counts what one stream produced.
type Stats struct {
	Rows   int64
	Errors int64
}

const logEveryN = 50_000

func newReader(r io.Reader, opt Options) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = opt.comma()
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	return cr
}

// ReadHeader reads and normalizes the first record of src. With Header unset
// it returns positional names sized to the first record. src is closed.
func ReadHeader(ctx context.Context, src io.ReadCloser, opt Options) ([]string, error) {
	defer src.Close()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cr := newReader(src, opt)
	rec, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	hdr := make([]string, len(rec))
	if !opt.Header {
		for i := range rec {
			hdr[i] = PositionalName(i)
		}
		return hdr, nil
	}
	copy(hdr, rec)
	return NormalizeHeader(hdr), nil
}

// StreamRows reads src and calls emit once per data row with cells ordered
// like columns. Cells are trimmed; empty cells and columns absent from the
// file are nil. The row slice is reused between calls, so emit must not
// retain it.
//
// With Header set, the first record is mapped by normalized name. Without it
// the mapping is positional. A data row whose width differs from the header
// is malformed. Malformed rows go to onErr and are skipped when IgnoreErrors
// is set; otherwise the first one ends the stream with an error.
//
// An error returned by emit stops the stream and is returned as is. src is
// always closed.
func StreamRows(
	ctx context.Context,
	src io.ReadCloser,
	columns []string,
	opt Options,
	emit func(line int, row []any) error,
	onErr func(line int, err error),
) (Stats, error) {
	defer src.Close()

	var st Stats
	cr := newReader(src, opt)

	// colIx[target] = source index, or -1
	colIx := make([]int, len(columns))
	for i := range colIx {
		colIx[i] = -1
	}

	line := 0
	read := func() ([]string, error) { line++; return cr.Read() }

	width := -1
	if opt.Header {
		hdr, err := read()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			return st, fmt.Errorf("read header: %w", err)
		}
		names := NormalizeHeader(append([]string(nil), hdr...))
		width = len(names)
		srcIdx := make(map[string]int, len(names))
		for i, h := range names {
			if _, dup := srcIdx[h]; !dup {
				srcIdx[h] = i
			}
		}
		for t, target := range columns {
			if si, ok := srcIdx[target]; ok {
				colIx[t] = si
			}
		}
	} else {
		for i := range columns {
			colIx[i] = i
		}
	}

	bad := func(err error) error {
		st.Errors++
		if onErr != nil {
			onErr(line, err)
		}
		if opt.IgnoreErrors {
			return nil
		}
		return fmt.Errorf("line %d: %w", line, err)
	}

	row := make([]any, len(columns))
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		rec, err := read()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			if ferr := bad(err); ferr != nil {
				return st, ferr
			}
			continue
		}
		if width >= 0 && len(rec) != width {
			if ferr := bad(fmt.Errorf("expected %d fields, got %d", width, len(rec))); ferr != nil {
				return st, ferr
			}
			continue
		}

		for t := range columns {
			si := colIx[t]
			if si < 0 || si >= len(rec) {
				row[t] = nil
				continue
			}
			if v := strings.TrimSpace(rec[si]); v != "" {
				row[t] = v
			} else {
				row[t] = nil
			}
		}

		if err := emit(line, row); err != nil {
			return st, err
		}
		st.Rows++
		if opt.Log != nil && st.Rows%logEveryN == 0 {
			opt.Log.Debug().Int("line", line).Int64("rows", st.Rows).Msg("reader progress")
		}
	}
}
