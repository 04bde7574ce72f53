package pipeline

import (
	"github.com/rs/zerolog"

	"salesagg/internal/config"
	"salesagg/internal/engine"
	"salesagg/internal/metrics"
	"salesagg/internal/storage"
)

// Options configure a Pipeline. FromConfig(config.Default()) gives the
// standard settings; empty Engine.Kind and Patterns fall back to DuckDB and
// *.csv.
type Options struct {
	Engine engine.Config

	// Patterns select input files inside the input directory.
	Patterns []string
	// Input controls ingestion.
	Input engine.CSVOptions
	// Output controls the exported CSV; only the delimiter is used.
	Output engine.CSVOptions

	// RequireRows fails the run when raw or cleaned data is empty instead of
	// writing a header-only aggregate.
	RequireRows bool

	// Mirror, when Kind is set, receives a copy of the aggregate.
	Mirror MirrorOptions

	Log      zerolog.Logger
	Reporter *metrics.Reporter
	// Collector options, e.g. a fake memory reader in tests.
	Collector []metrics.Option
}

// MirrorOptions select the optional table copy of the aggregate.
type MirrorOptions struct {
	storage.Config
	Table  string
	Create bool
}

func (o Options) withDefaults() Options {
	if o.Engine.Kind == "" {
		o.Engine.Kind = config.DefaultEngine
	}
	if len(o.Patterns) == 0 {
		o.Patterns = []string{config.DefaultPattern}
	}
	if o.Mirror.Table == "" {
		o.Mirror.Table = config.DefaultMirrorTable
	}
	if o.Reporter == nil {
		o.Reporter = metrics.NewReporter(nil, config.DefaultJob)
	}
	return o
}

// FromConfig maps the file/env configuration onto Options. Logger and
// Reporter are left for the caller.
func FromConfig(cfg config.Config) Options {
	return Options{
		Engine: engine.Config{
			Kind:        cfg.Engine.Kind,
			DSN:         cfg.Engine.DSN,
			Threads:     cfg.Engine.Threads,
			MemoryLimit: cfg.Engine.MemoryLimit,
		},
		Patterns: cfg.Input.Patterns,
		Input: engine.CSVOptions{
			Delimiter:    cfg.InputDelimiter(),
			Header:       cfg.Input.Header,
			IgnoreErrors: cfg.Input.IgnoreErrors,
		},
		Output:      engine.CSVOptions{Delimiter: cfg.OutputDelimiter(), Header: true},
		RequireRows: cfg.RequireRows,
		Mirror: MirrorOptions{
			Config: storage.Config{Kind: cfg.Mirror.Kind, DSN: cfg.Mirror.DSN},
			Table:  cfg.Mirror.Table,
			Create: cfg.Mirror.Create,
		},
		Log: zerolog.Nop(),
	}
}
