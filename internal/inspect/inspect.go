// Package inspect reports what a pipeline run would ingest from an input
// directory without creating any relation.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"salesagg/internal/datasource"
	"salesagg/internal/datasource/file"
	"salesagg/internal/parser/csv"
)

// Required are the columns the Clean stage filters on.
var Required = []string{"product_id", "quantity", "price", "date"}

// numericColumns are typed on load; other cells stay text.
var numericColumns = []string{"quantity", "price"}

// FileReport describes one input file.
type FileReport struct {
	Name        string
	Size        int64
	Compression file.Compression
	Header      []string
	// Missing lists Required columns absent from Header.
	Missing []string
	Rows    int64
	// ParseErrors counts rows Load would skip as malformed: rows with a
	// broken CSV structure and rows whose quantity or price is not a number.
	ParseErrors int64
	// Err is set when the file could not be read at all.
	Err error
}

// Options mirror the ingestion settings of a run.
type Options struct {
	Patterns []string
	Comma    rune
	Header   bool
}

// Dir inspects every file in dir matching opt.Patterns. Per-file read
// failures are recorded on the report; discovery failures are returned.
func Dir(ctx context.Context, dir string, opt Options, exclude ...string) ([]FileReport, error) {
	entries, err := file.Discover(dir, opt.Patterns, exclude...)
	if err != nil {
		return nil, err
	}
	out := make([]FileReport, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, inspectFile(ctx, e, opt))
	}
	return out, nil
}

func inspectFile(ctx context.Context, e file.Entry, opt Options) FileReport {
	rep := FileReport{Name: e.Name, Size: e.Size, Compression: e.Compression}
	popt := csv.Options{Comma: opt.Comma, Header: opt.Header, IgnoreErrors: true}

	var ds datasource.Source = e.Source()
	src, err := ds.Open(ctx)
	if err != nil {
		rep.Err = err
		return rep
	}
	hdr, err := csv.ReadHeader(ctx, src, popt)
	if errors.Is(err, csv.ErrNoHeader) {
		rep.Missing = Required
		return rep
	}
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.Header = hdr
	for _, c := range Required {
		if !slices.Contains(hdr, c) {
			rep.Missing = append(rep.Missing, c)
		}
	}

	src, err = ds.Open(ctx)
	if err != nil {
		rep.Err = err
		return rep
	}
	// Headerless files get positional names, so no cell is typed on load.
	cols := hdr
	if opt.Header {
		cols = numericColumns
	}
	var badNumbers int64
	st, err := csv.StreamRows(ctx, src, cols, popt, func(_ int, row []any) error {
		if !opt.Header {
			return nil
		}
		for _, v := range row {
			if v == nil {
				continue
			}
			if _, err := strconv.ParseFloat(v.(string), 64); err != nil {
				badNumbers++
				return nil
			}
		}
		return nil
	}, nil)
	rep.Rows, rep.ParseErrors = st.Rows-badNumbers, st.Errors+badNumbers
	if err != nil {
		rep.Err = err
	}
	return rep
}

// Render writes reports as an aligned table followed by a totals line.
func Render(w io.Writer, reports []FileReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSIZE\tCODEC\tROWS\tERRORS\tCOLUMNS\tSTATUS")

	var size uint64
	var rows, bad int64
	for _, r := range reports {
		size += uint64(r.Size)
		rows += r.Rows
		bad += r.ParseErrors

		codec := string(r.Compression)
		if codec == "" {
			codec = "-"
		}
		status := "ok"
		switch {
		case r.Err != nil:
			status = "error: " + r.Err.Error()
		case len(r.Missing) > 0:
			status = "missing " + strings.Join(r.Missing, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Name, humanize.Bytes(uint64(r.Size)), codec,
			humanize.Comma(r.Rows), humanize.Comma(r.ParseErrors),
			strings.Join(r.Header, ","), status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d files, %s, %s rows, %s malformed\n",
		len(reports), humanize.Bytes(size), humanize.Comma(rows), humanize.Comma(bad))
	return err
}
