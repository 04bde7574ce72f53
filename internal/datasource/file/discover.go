package file

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// ErrNoMatches is returned by Discover when the directory is readable but no
// entry matches any pattern. An empty match set is a configuration mistake,
// not an empty dataset.
var ErrNoMatches = errors.New("no input files match")

// Entry is one discovered input file.
type Entry struct {
	Path        string
	Name        string
	Size        int64
	Compression Compression
}

// Source returns a Local data source for the entry.
func (e Entry) Source() *Local { return NewLocal(e.Path) }

// Discover lists the regular files directly inside dir whose names match at
// least one of patterns (path.Match syntax, no directory separators). Paths
// listed in exclude are skipped; this keeps a previous output file that lives
// in the input directory from being ingested again.
//
// The result is sorted by name so that ingestion order is stable across runs.
func Discover(dir string, patterns []string, exclude ...string) ([]Entry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input directory %s: not a directory", dir)
	}

	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("input pattern %q: %w", p, err)
		}
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, x := range exclude {
		if abs, err := filepath.Abs(x); err == nil {
			excluded[abs] = struct{}{}
		}
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var out []Entry
	for _, de := range dirents {
		if de.IsDir() || !matchAny(patterns, de.Name()) {
			continue
		}
		full := filepath.Join(dir, de.Name())
		if abs, err := filepath.Abs(full); err == nil {
			if _, skip := excluded[abs]; skip {
				continue
			}
		}
		fi, err := os.Stat(full) // follows symlinks
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", full, err)
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		out = append(out, Entry{
			Path:        full,
			Name:        de.Name(),
			Size:        fi.Size(),
			Compression: CompressionOf(de.Name()),
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w %v in %s", ErrNoMatches, patterns, dir)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Paths returns the file paths of entries in order.
func Paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}
