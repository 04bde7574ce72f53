package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"time"
)

// WriteCSV streams every row of relation to w with a header row. Floats use
// the shortest representation that round-trips; NULL is an empty field.
func WriteCSV(ctx context.Context, s *Session, relation string, w io.Writer, opt CSVOptions) (int64, error) {
	rows, err := s.Query(ctx, "SELECT * FROM "+QuoteIdent(relation))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("columns of %s: %w", relation, err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = opt.Comma()
	if err := cw.Write(cols); err != nil {
		return 0, err
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	rec := make([]string, len(cols))

	var n int64
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return n, fmt.Errorf("scan %s: %w", relation, err)
		}
		for i, v := range vals {
			rec[i] = FormatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("read %s: %w", relation, err)
	}
	cw.Flush()
	return n, cw.Error()
}

// CopyViaRows writes relation to path through WriteCSV. Drivers without a
// native export use it as their CopyTo.
func CopyViaRows(ctx context.Context, s *Session, relation, path string, opt CSVOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := WriteCSV(ctx, s, relation, f, opt); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FormatValue renders a scanned cell as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case *big.Int:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

// ReadAll loads every row of relation into memory with values normalized to
// string, int64 or float64. Use it only for small relations.
func ReadAll(ctx context.Context, s *Session, relation string) ([]string, [][]any, error) {
	rows, err := s.Query(ctx, "SELECT * FROM "+QuoteIdent(relation))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns of %s: %w", relation, err)
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", relation, err)
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", relation, err)
	}
	return cols, out, nil
}

// float64er matches fixed-point decimals returned by some drivers.
type float64er interface{ Float64() float64 }

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case float64er:
		return x.Float64()
	}
	return v
}
