package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"salesagg/internal/engine"
	"salesagg/internal/storage"
)

// persist writes the aggregate next to outputPath under a temporary name and
// renames it into place, so the destination is either the previous file or
// the complete new one. An existing destination is replaced.
func (r *run) persist(ctx context.Context, agg Relation, outputPath string) (Relation, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Relation{}, fmt.Errorf("create output directory: %w", err)
	}

	// The base name stays last so engines that pick a codec from the
	// extension see the same one as the destination.
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString()+"-"+filepath.Base(outputPath))
	defer os.Remove(tmp) // no-op after a successful rename

	if err := r.sess.Dialect().CopyTo(ctx, r.sess, agg.Name, tmp, r.opts.Output); err != nil {
		return Relation{}, fmt.Errorf("export %s: %w", agg.Name, err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return Relation{}, fmt.Errorf("replace %s: %w", outputPath, err)
	}

	size, sum, err := checksum(outputPath)
	if err != nil {
		return Relation{}, err
	}
	r.res.OutputBytes = size
	r.res.Checksum = sum
	r.log.Info().Str("path", outputPath).Int64("bytes", size).Str("xxh3", sum).Msg("results saved")

	if r.opts.Mirror.Kind != "" {
		n, err := r.mirror(ctx, agg)
		if err != nil {
			return Relation{}, fmt.Errorf("mirror to %s: %w", r.opts.Mirror.Kind, err)
		}
		r.res.Mirrored = n
		r.res.MirrorTarget = r.opts.Mirror.Kind + ":" + r.opts.Mirror.Table
	}
	return agg, nil
}

// checksum returns the size and hex xxh3-64 digest of the file at path.
func checksum(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := xxh3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return n, fmt.Sprintf("%016x", h.Sum64()), nil
}

// mirror copies the aggregate into the configured table, replacing its
// previous content.
func (r *run) mirror(ctx context.Context, agg Relation) (int64, error) {
	cols, rows, err := engine.ReadAll(ctx, r.sess, agg.Name)
	if err != nil {
		return 0, err
	}
	tbl := storage.Table{Name: r.opts.Mirror.Table, Columns: make([]storage.Column, len(cols))}
	for i, c := range cols {
		ct := storage.Numeric
		if c == "product_id" {
			ct = storage.Text
		}
		tbl.Columns[i] = storage.Column{Name: c, Type: ct}
	}

	m, err := storage.New(ctx, r.opts.Mirror.Config)
	if err != nil {
		return 0, err
	}
	defer m.Close()
	return m.Replace(ctx, tbl, rows, r.opts.Mirror.Create)
}
