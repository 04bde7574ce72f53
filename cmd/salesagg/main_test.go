package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sales = "product_id,quantity,price,date\n" +
	"A,2,10,2024-01-15\n" +
	"B,1,5,2024-02-01\n" +
	"C,-1,5,2024-02-01\n"

func inputDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales.csv"), []byte(sales), 0o644))
	return dir
}

func TestRun_Success(t *testing.T) {
	in := inputDir(t)
	out := filepath.Join(t.TempDir(), "nested", "out.csv")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--engine", "sqlite", "--log-level", "error", in, out}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())

	assert.Contains(t, stdout.String(), "Total rows loaded: 3")
	assert.Contains(t, stdout.String(), "Removed 1 invalid rows (33.33%)")
	assert.Contains(t, stdout.String(), "Aggregated to 2 products")
	assert.Contains(t, stdout.String(), "Pipeline Execution Summary (Go + SQLite)")
	assert.Contains(t, stdout.String(), "✅ Pipeline completed successfully")
	assert.FileExists(t, out)
}

func TestRun_Failures(t *testing.T) {
	in := inputDir(t)
	out := filepath.Join(t.TempDir(), "out.csv")

	cases := map[string][]string{
		"missing input dir": {"--engine", "sqlite", filepath.Join(t.TempDir(), "nope"), out},
		"too many args":     {"--engine", "sqlite", in, out, "extra"},
		"unknown engine":    {"--engine", "oracle", in, out},
		"missing config":    {"--config", filepath.Join(t.TempDir(), "none.yaml"), in, out},
		"unknown flag":      {"--no-such-flag", in, out},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 1, run(args, &stdout, &stderr))
			assert.NotContains(t, stdout.String(), "completed successfully")
			assert.Contains(t, stderr.String(), "❌ Pipeline failed:")
		})
	}
	assert.NoFileExists(t, out)
}

func TestRun_FailureMessage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--engine", "sqlite", "--log-level", "error", filepath.Join(t.TempDir(), "nope")}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "❌ Pipeline failed: load stage:")
	assert.Equal(t, 1, strings.Count(stderr.String(), "❌"), "reported once")
}

func TestRun_UsageErrorsReported(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"--engine", "sqlite", "a", "b", "c"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "❌ Pipeline failed: accepts at most 2 arg(s), received 3")

	stderr.Reset()
	assert.Equal(t, 1, run([]string{"inspect", "--bogus"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown flag: --bogus")
}

func TestRun_InspectFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"inspect", "--log-level", "error", filepath.Join(t.TempDir(), "nope")}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "❌ Inspect failed:")
}

func TestRun_DirectoryNamedInspect(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "inspect")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales.csv"), []byte(sales), 0o644))
	t.Chdir(base)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--engine", "sqlite", "--log-level", "error", "./inspect", "out.csv"}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	assert.Contains(t, stdout.String(), "Aggregated to 2 products")
	assert.FileExists(t, filepath.Join(base, "out.csv"))
}

func TestRun_HelpMentionsInspectDirectory(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "./inspect")
}

func TestRun_ConfigFile(t *testing.T) {
	in := inputDir(t)
	out := filepath.Join(t.TempDir(), "out.csv")
	cfg := filepath.Join(t.TempDir(), "salesagg.yaml")
	body := "input_dir: " + in + "\noutput_path: " + out + "\nengine:\n  kind: sqlite\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"--config", cfg}, &stdout, &stderr), "stderr: %s", stderr.String())
	assert.FileExists(t, out)
}

func TestRun_Inspect(t *testing.T) {
	in := inputDir(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"inspect", "--log-level", "error", in}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	assert.Contains(t, stdout.String(), "sales.csv")
	assert.Contains(t, stdout.String(), "1 files")
}
