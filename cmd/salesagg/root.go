package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"salesagg/internal/config"
	"salesagg/internal/inspect"
	"salesagg/internal/logging"
	"salesagg/internal/metrics"
	"salesagg/internal/metrics/datadog"
	"salesagg/internal/metrics/prompush"
	"salesagg/internal/pipeline"
)

type flags struct {
	config         string
	engine         string
	logLevel       string
	logFormat      string
	metricsBackend string
	requireRows    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:   "salesagg [input_directory] [output_path]",
		Short: "Aggregate sales CSV files into a per-product revenue summary",
		Long: "Aggregate sales CSV files into a per-product revenue summary.\n\n" +
			"An input directory named inspect must be written as ./inspect, since\n" +
			"a bare inspect runs the inspect subcommand.",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := resolve(cmd, f, args, stderr)
			if err != nil {
				return err
			}
			return runPipeline(cmd, cfg, log, stdout)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&f.config, "config", "", "YAML config file (optional)")
	pf.StringVar(&f.engine, "engine", "", "relational engine: duckdb or sqlite")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&f.logFormat, "log-format", "", "log format: console or json")
	root.Flags().StringVar(&f.metricsBackend, "metrics-backend", "", "metrics export: none, pushgateway or datadog")
	root.Flags().BoolVar(&f.requireRows, "require-rows", false, "fail when no valid rows remain")

	root.AddCommand(newInspectCmd(&f, stdout, stderr))
	return root
}

// resolve layers flags and positional arguments over the loaded config and
// builds the logger. Validation warnings are logged; errors are returned.
func resolve(cmd *cobra.Command, f flags, args []string, stderr io.Writer) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	if len(args) > 0 {
		cfg.InputDir = args[0]
	}
	if len(args) > 1 {
		cfg.OutputPath = args[1]
	}
	if f.engine != "" {
		cfg.Engine.Kind = f.engine
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if f.metricsBackend != "" {
		cfg.Metrics.Backend = f.metricsBackend
	}
	if fl := cmd.Flags().Lookup("require-rows"); fl != nil && fl.Changed {
		cfg.RequireRows = f.requireRows
	}

	log := logging.New(cfg.Log, stderr, "salesagg")
	issues := config.Validate(cfg)
	for _, iss := range issues {
		ev := log.Warn()
		if iss.Severity == config.SeverityError {
			ev = log.Error()
		}
		ev.Str("path", iss.Path).Msg(iss.Message)
	}
	if config.HasErrors(issues) {
		return cfg, log, fmt.Errorf("invalid configuration (%d issues)", len(issues))
	}
	return cfg, log, nil
}

func runPipeline(cmd *cobra.Command, cfg config.Config, log zerolog.Logger, stdout io.Writer) error {
	opts := pipeline.FromConfig(cfg)
	opts.Log = log
	opts.Reporter = metrics.NewReporter(newBackend(cfg.Metrics, log), cfg.Metrics.Job)

	res, err := pipeline.New(opts).Run(cmd.Context(), cfg.InputDir, cfg.OutputPath)
	if err != nil {
		if res != nil {
			fmt.Fprint(stdout, res.Metrics.String())
		}
		return err
	}

	if err := res.WriteReport(stdout); err != nil {
		return err
	}
	fmt.Fprint(stdout, res.Metrics.String())
	fmt.Fprintln(stdout, "✅ Pipeline completed successfully")
	return nil
}

// newBackend returns the configured metrics exporter, or nil to discard.
// Backend setup failures are logged and metrics are disabled.
func newBackend(m config.MetricsConfig, log zerolog.Logger) metrics.Backend {
	switch m.Backend {
	case "pushgateway":
		b, err := prompush.NewBackend(m.Job, m.PushgatewayURL)
		if err != nil {
			log.Warn().Err(err).Msg("metrics: pushgateway backend unavailable; metrics disabled")
			return nil
		}
		log.Debug().Str("url", m.PushgatewayURL).Str("job", m.Job).Msg("metrics: pushgateway enabled")
		return b
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			GlobalTags: []string{"service:" + m.Job},
		})
		if err != nil {
			log.Warn().Err(err).Msg("metrics: datadog backend unavailable; metrics disabled")
			return nil
		}
		log.Debug().Str("addr", m.DatadogAddr).Msg("metrics: datadog enabled")
		return b
	case "", "none":
		return nil
	}
	log.Warn().Str("backend", m.Backend).Msg("metrics: unknown backend; metrics disabled")
	return nil
}

func newInspectCmd(f *flags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [input_directory]",
		Short: "List input files with their headers and row counts",
		Long: "List input files with their headers and row counts without running the pipeline.\n\n" +
			"To aggregate a directory that is itself named inspect, pass it as ./inspect.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := resolve(cmd, *f, args, stderr)
			if err != nil {
				return inspectFailed(err)
			}
			reps, err := inspect.Dir(cmd.Context(), cfg.InputDir, inspect.Options{
				Patterns: cfg.Input.Patterns,
				Comma:    cfg.InputDelimiter(),
				Header:   cfg.Input.Header,
			}, cfg.OutputPath)
			if err != nil {
				return inspectFailed(err)
			}
			return inspect.Render(stdout, reps)
		},
	}
}

// commandError carries the failure prefix printed by run.
type commandError struct {
	prefix string
	err    error
}

func (e *commandError) Error() string { return e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

func inspectFailed(err error) error { return &commandError{prefix: "Inspect failed", err: err} }

// failurePrefix names the failed action; argument and flag errors count as
// pipeline failures.
func failurePrefix(err error) string {
	var ce *commandError
	if errors.As(err, &ce) {
		return ce.prefix
	}
	return "Pipeline failed"
}
