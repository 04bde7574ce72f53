package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "data", cfg.InputDir)
	assert.Equal(t, "results/go_output.csv", cfg.OutputPath)
	assert.Equal(t, "duckdb", cfg.Engine.Kind)
	assert.Equal(t, []string{"*.csv"}, cfg.Input.Patterns)
	assert.True(t, cfg.Input.Header)
	assert.True(t, cfg.Input.IgnoreErrors)
	assert.Equal(t, ',', cfg.InputDelimiter())
	assert.Equal(t, ',', cfg.OutputDelimiter())
	assert.Equal(t, "none", cfg.Metrics.Backend)
	assert.Empty(t, cfg.Mirror.Kind)
}

// Load without a file and without environment must equal Default().
// Not parallel: t.Setenv is used by sibling tests.
func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	p := writeFile(t, "salesagg.yaml", `
input_dir: /srv/sales
output_path: /srv/out/summary.csv
require_rows: true
engine:
  kind: sqlite
input:
  patterns: ["*.csv", "*.csv.gz"]
  delimiter: ";"
output:
  delimiter: "|"
metrics:
  backend: pushgateway
  job: nightly
log:
  level: debug
  format: json
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "/srv/sales", cfg.InputDir)
	assert.Equal(t, "/srv/out/summary.csv", cfg.OutputPath)
	assert.True(t, cfg.RequireRows)
	assert.Equal(t, "sqlite", cfg.Engine.Kind)
	assert.Equal(t, []string{"*.csv", "*.csv.gz"}, cfg.Input.Patterns)
	assert.Equal(t, ';', cfg.InputDelimiter())
	assert.Equal(t, '|', cfg.OutputDelimiter())
	assert.Equal(t, "pushgateway", cfg.Metrics.Backend)
	assert.Equal(t, "nightly", cfg.Metrics.Job)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultPushgatewayURL, cfg.Metrics.PushgatewayURL)
	assert.True(t, cfg.Input.Header)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	p := writeFile(t, "empty.yaml", "\n\n")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	p := writeFile(t, "typo.yaml", "engin:\n  kind: sqlite\n")

	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	p := writeFile(t, "salesagg.yaml", "engine:\n  kind: duckdb\n  threads: 2\n")

	t.Setenv("SALESAGG_ENGINE_KIND", "sqlite")
	t.Setenv("SALESAGG_INPUT_PATTERNS", "*.tsv,*.csv")
	t.Setenv("SALESAGG_INPUT_DELIMITER", "\t")
	t.Setenv("SALESAGG_REQUIRE_ROWS", "true")
	t.Setenv("SALESAGG_MIRROR_KIND", "postgres")
	t.Setenv("SALESAGG_MIRROR_DSN", "postgres://u@localhost/db")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Engine.Kind)
	assert.Equal(t, 2, cfg.Engine.Threads)
	assert.Equal(t, []string{"*.tsv", "*.csv"}, cfg.Input.Patterns)
	assert.Equal(t, '\t', cfg.InputDelimiter())
	assert.True(t, cfg.RequireRows)
	assert.Equal(t, "postgres", cfg.Mirror.Kind)
	assert.Equal(t, "postgres://u@localhost/db", cfg.Mirror.DSN)
	assert.Equal(t, DefaultMirrorTable, cfg.Mirror.Table)
}

func TestLoad_BadEnvironmentValue(t *testing.T) {
	t.Setenv("SALESAGG_ENGINE_THREADS", "many")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment")
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "salesagg.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Engine.Kind)
	assert.Equal(t, []string{"*.csv", "*.csv.gz", "*.csv.zst"}, cfg.Input.Patterns)
	assert.Equal(t, "product_summary", cfg.Mirror.Table)
	assert.False(t, HasErrors(Validate(cfg)))
}
