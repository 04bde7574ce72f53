package pipeline

import (
	"context"
	"fmt"

	"salesagg/internal/datasource/file"
	"salesagg/internal/engine"
)

var (
	colProductID = engine.QuoteIdent("product_id")
	colQuantity  = engine.QuoteIdent("quantity")
	colPrice     = engine.QuoteIdent("price")
	colDate      = engine.QuoteIdent("date")
	colRevenue   = engine.QuoteIdent("revenue")
)

// load creates raw_data over every matching file in dir. The output path is
// excluded so a previous result inside dir is never read back.
func (r *run) load(ctx context.Context, dir, outputPath string) (Relation, error) {
	entries, err := file.Discover(dir, r.opts.Patterns, outputPath)
	if err != nil {
		return Relation{}, err
	}
	var total int64
	for _, e := range entries {
		r.res.Files = append(r.res.Files, e.Name)
		total += e.Size
	}
	r.res.InputBytes = total
	r.log.Info().Int("files", len(entries)).Int64("bytes", total).Msg("loading input files")

	if err := r.sess.Dialect().IngestCSV(ctx, r.sess, RawData, file.Paths(entries), r.opts.Input); err != nil {
		return Relation{}, err
	}
	n, err := r.sess.Count(ctx, RawData)
	if err != nil {
		return Relation{}, err
	}
	r.res.RawRows = n
	r.opts.Reporter.RecordRows("raw", n)

	if n == 0 {
		if r.opts.RequireRows {
			return Relation{}, fmt.Errorf("%w loaded from %s", ErrNoRows, dir)
		}
		r.log.Warn().Msg("input files contain no rows")
	}
	return Relation{Name: RawData, Rows: n}, nil
}

// clean keeps rows with a product, positive quantity and price, and a
// parseable date.
func (r *run) clean(ctx context.Context, raw Relation) (Relation, error) {
	d := r.sess.Dialect()
	stmt := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM %s WHERE %s IS NOT NULL AND %s AND %s AND %s",
		engine.QuoteIdent(CleanedData), engine.QuoteIdent(raw.Name),
		colProductID, d.Positive(colQuantity), d.Positive(colPrice), d.ValidDate(colDate))
	if _, err := r.sess.Exec(ctx, stmt); err != nil {
		return Relation{}, err
	}
	n, err := r.sess.Count(ctx, CleanedData)
	if err != nil {
		return Relation{}, err
	}

	removed := raw.Rows - n
	r.res.CleanedRows = n
	r.res.RemovedRows = removed
	r.res.RemovedPct = removedPct(removed, raw.Rows)
	r.opts.Reporter.RecordRows("cleaned", n)
	r.opts.Reporter.RecordRows("removed", removed)
	r.log.Info().Int64("removed", removed).Float64("removed_pct", r.res.RemovedPct).Msg("invalid rows removed")

	if n == 0 && r.opts.RequireRows {
		return Relation{}, fmt.Errorf("%w left after cleaning %d rows", ErrNoRows, raw.Rows)
	}
	return Relation{Name: CleanedData, Rows: n}, nil
}

// removedPct is removed/raw as a percentage, 0 when nothing was loaded.
func removedPct(removed, raw int64) float64 {
	if raw == 0 {
		return 0
	}
	return float64(removed) / float64(raw) * 100
}

// transform adds revenue and calendar fields. It must not change the row count.
func (r *run) transform(ctx context.Context, cleaned Relation) (Relation, error) {
	d := r.sess.Dialect()
	stmt := fmt.Sprintf("CREATE VIEW %s AS SELECT *, %s * %s AS %s, %s AS %s, %s AS %s, %s AS %s FROM %s",
		engine.QuoteIdent(TransformedData),
		colQuantity, colPrice, colRevenue,
		d.DatePart(engine.Year, colDate), engine.QuoteIdent("year"),
		d.DatePart(engine.Month, colDate), engine.QuoteIdent("month"),
		d.DatePart(engine.Quarter, colDate), engine.QuoteIdent("quarter"),
		engine.QuoteIdent(cleaned.Name))
	if _, err := r.sess.Exec(ctx, stmt); err != nil {
		return Relation{}, err
	}
	n, err := r.sess.Count(ctx, TransformedData)
	if err != nil {
		return Relation{}, err
	}
	if n != cleaned.Rows {
		return Relation{}, fmt.Errorf("%w: %d cleaned, %d transformed", ErrRowCountDrift, cleaned.Rows, n)
	}
	return Relation{Name: TransformedData, Rows: n}, nil
}

// aggregate summarizes per product, highest revenue first. Ties are broken
// by product_id so the output is deterministic. The result is materialized
// so export reads it in insertion order.
func (r *run) aggregate(ctx context.Context, transformed Relation) (Relation, error) {
	stmt := fmt.Sprintf(
		"CREATE TABLE %s AS SELECT %s, SUM(%s) AS total_quantity, SUM(%s) AS total_revenue, AVG(%s) AS avg_price "+
			"FROM %s GROUP BY %s ORDER BY total_revenue DESC, %s ASC",
		engine.QuoteIdent(AggregatedData),
		colProductID, colQuantity, colRevenue, colPrice,
		engine.QuoteIdent(transformed.Name), colProductID, colProductID)
	if _, err := r.sess.Exec(ctx, stmt); err != nil {
		return Relation{}, err
	}
	n, err := r.sess.Count(ctx, AggregatedData)
	if err != nil {
		return Relation{}, err
	}
	r.res.Products = n
	r.opts.Reporter.RecordRows("aggregated", n)
	return Relation{Name: AggregatedData, Rows: n}, nil
}
