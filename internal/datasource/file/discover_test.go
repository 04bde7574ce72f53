package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDiscover_MatchesAndSorts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "b.csv", "x\n")
	touch(t, dir, "a.csv", "xy\n")
	touch(t, dir, "c.csv.gz", "")
	touch(t, dir, "notes.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755))

	got, err := Discover(dir, []string{"*.csv"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.csv", got[0].Name)
	assert.Equal(t, int64(3), got[0].Size)
	assert.Equal(t, "b.csv", got[1].Name)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}, Paths(got))

	got, err = Discover(dir, []string{"*.csv", "*.csv.gz"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, CompressionGzip, got[2].Compression)
}

func TestDiscover_ExcludesOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "sales.csv", "")
	out := touch(t, dir, "summary.csv", "")

	got, err := Discover(dir, []string{"*.csv"}, out)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sales.csv", got[0].Name)
}

func TestDiscover_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plain := touch(t, dir, "file.csv", "")

	_, err := Discover(filepath.Join(dir, "missing"), []string{"*.csv"})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Discover(plain, []string{"*.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	_, err = Discover(dir, []string{"*.parquet"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatches)

	_, err = Discover(dir, []string{"["})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input pattern")
}
