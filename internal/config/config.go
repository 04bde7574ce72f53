// Package config defines the run configuration for salesagg.
//
// A Config is resolved in layers, each one overriding the previous:
//
//  1. Default() values baked into the binary.
//  2. An optional YAML file (see configs/salesagg.example.yaml).
//  3. Environment variables with the SALESAGG_ prefix.
//  4. Positional arguments and flags on the command line.
//
// Example (trimmed):
//
//	input_dir: data
//	output_path: results/go_output.csv
//	engine:
//	  kind: duckdb
//	  threads: 4
//	input:
//	  patterns: ["*.csv", "*.csv.gz"]
//	metrics:
//	  backend: pushgateway
//	  pushgateway_url: http://localhost:9091
package config

// Defaults applied when neither file, environment nor flags set a value.
const (
	DefaultInputDir       = "data"
	DefaultOutputPath     = "results/go_output.csv"
	DefaultEngine         = "duckdb"
	DefaultPattern        = "*.csv"
	DefaultDelimiter      = ","
	DefaultJob            = "salesagg"
	DefaultPushgatewayURL = "http://localhost:9091"
	DefaultDatadogAddr    = "127.0.0.1:8125"
	DefaultMirrorTable    = "product_summary"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
)

// Config is the top-level run configuration.
type Config struct {
	// InputDir is the directory scanned for delimited input files.
	InputDir string `yaml:"input_dir" envconfig:"INPUT_DIR"`

	// OutputPath is the destination of the aggregated file. An existing file
	// at this path is replaced.
	OutputPath string `yaml:"output_path" envconfig:"OUTPUT_PATH"`

	// RequireRows makes an empty raw or cleaned relation a stage failure
	// instead of producing a header-only output.
	RequireRows bool `yaml:"require_rows" envconfig:"REQUIRE_ROWS"`

	Engine  EngineConfig  `yaml:"engine" envconfig:"ENGINE"`
	Input   InputConfig   `yaml:"input" envconfig:"INPUT"`
	Output  OutputConfig  `yaml:"output" envconfig:"OUTPUT"`
	Mirror  MirrorConfig  `yaml:"mirror" envconfig:"MIRROR"`
	Metrics MetricsConfig `yaml:"metrics" envconfig:"METRICS"`
	Log     LogConfig     `yaml:"log" envconfig:"LOG"`
}

// EngineConfig selects and tunes the embedded relational engine.
type EngineConfig struct {
	// Kind is the registered engine driver: "duckdb" or "sqlite".
	Kind string `yaml:"kind" envconfig:"KIND"`

	// DSN is passed to the driver. Empty means a private in-memory database.
	DSN string `yaml:"dsn" envconfig:"DSN"`

	// Threads caps engine worker threads (duckdb only). 0 keeps the engine default.
	Threads int `yaml:"threads" envconfig:"THREADS"`

	// MemoryLimit is an engine memory cap such as "2GB" (duckdb only).
	MemoryLimit string `yaml:"memory_limit" envconfig:"MEMORY_LIMIT"`
}

// InputConfig controls file discovery and CSV parsing.
type InputConfig struct {
	// Patterns are glob patterns matched against file names in InputDir.
	Patterns []string `yaml:"patterns" envconfig:"PATTERNS"`

	// Delimiter is the field separator; only the first rune is used.
	Delimiter string `yaml:"delimiter" envconfig:"DELIMITER"`

	// Header reports whether the first line of each file is a header row.
	Header bool `yaml:"header" envconfig:"HEADER"`

	// IgnoreErrors drops malformed rows instead of failing the load.
	IgnoreErrors bool `yaml:"ignore_errors" envconfig:"IGNORE_ERRORS"`
}

// OutputConfig controls the persisted file format.
type OutputConfig struct {
	Delimiter string `yaml:"delimiter" envconfig:"DELIMITER"`
}

// MirrorConfig optionally copies the aggregate into a database table after
// the file has been written. Kind empty disables mirroring.
type MirrorConfig struct {
	Kind   string `yaml:"kind" envconfig:"KIND"`
	DSN    string `yaml:"dsn" envconfig:"DSN"`
	Table  string `yaml:"table" envconfig:"TABLE"`
	Create bool   `yaml:"create" envconfig:"CREATE"`
}

// MetricsConfig selects where run telemetry is exported, in addition to the
// summary printed on stdout.
type MetricsConfig struct {
	// Backend is one of "none", "pushgateway" or "datadog".
	Backend        string `yaml:"backend" envconfig:"BACKEND"`
	Job            string `yaml:"job" envconfig:"JOB"`
	PushgatewayURL string `yaml:"pushgateway_url" envconfig:"PUSHGATEWAY_URL"`
	DatadogAddr    string `yaml:"datadog_addr" envconfig:"DATADOG_ADDR"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" envconfig:"LEVEL"`
	// Format is "console" (human) or "json".
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		InputDir:   DefaultInputDir,
		OutputPath: DefaultOutputPath,
		Engine: EngineConfig{
			Kind: DefaultEngine,
		},
		Input: InputConfig{
			Patterns:     []string{DefaultPattern},
			Delimiter:    DefaultDelimiter,
			Header:       true,
			IgnoreErrors: true,
		},
		Output: OutputConfig{
			Delimiter: DefaultDelimiter,
		},
		Mirror: MirrorConfig{
			Table: DefaultMirrorTable,
		},
		Metrics: MetricsConfig{
			Backend:        "none",
			Job:            DefaultJob,
			PushgatewayURL: DefaultPushgatewayURL,
			DatadogAddr:    DefaultDatadogAddr,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// InputDelimiter returns the first rune of Input.Delimiter, or ','.
func (c Config) InputDelimiter() rune {
	return firstRune(c.Input.Delimiter, ',')
}

// OutputDelimiter returns the first rune of Output.Delimiter, or ','.
func (c Config) OutputDelimiter() rune {
	return firstRune(c.Output.Delimiter, ',')
}

func firstRune(s string, def rune) rune {
	for _, r := range s {
		return r
	}
	return def
}
