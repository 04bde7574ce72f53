package pipeline

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"salesagg/internal/metrics"
)

// Result describes one run.
type Result struct {
	RunID      string
	Engine     string
	InputDir   string
	OutputPath string

	Files      []string
	InputBytes int64

	RawRows     int64
	CleanedRows int64
	RemovedRows int64
	RemovedPct  float64
	Products    int64

	OutputBytes int64
	// Checksum is the hex xxh3-64 digest of the output file.
	Checksum string

	Mirrored     int64
	MirrorTarget string

	Metrics metrics.Summary
}

// WriteReport renders the human-readable run report.
func (r *Result) WriteReport(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("Run %s (%s)\n", r.RunID, r.Engine)
	ew.printf("Loaded %d files (%s) from %s\n", len(r.Files), humanize.Bytes(uint64(r.InputBytes)), r.InputDir)
	ew.printf("Total rows loaded: %s\n", humanize.Comma(r.RawRows))
	ew.printf("Removed %s invalid rows (%.2f%%)\n", humanize.Comma(r.RemovedRows), r.RemovedPct)
	ew.printf("Remaining rows: %s\n", humanize.Comma(r.CleanedRows))
	ew.printf("Aggregated to %s products\n", humanize.Comma(r.Products))
	ew.printf("Results saved to %s (%s, xxh3 %s)\n", r.OutputPath, humanize.Bytes(uint64(r.OutputBytes)), r.Checksum)
	if r.MirrorTarget != "" {
		ew.printf("Mirrored %s rows to %s\n", humanize.Comma(r.Mirrored), r.MirrorTarget)
	}
	return ew.err
}

// errWriter keeps the first write error so the report can be rendered
// without checking every line.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
