// Package config provides configuration models and helpers for salesagg.
//
// This file adds a lightweight linter for Config values. It performs static
// checks over a resolved Config and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"path"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "engine.kind",
// "input.patterns[1]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of a Config. It does not mutate cfg.
func Validate(cfg Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(cfg.InputDir) == "" {
		issues = append(issues, errIssue("input_dir", "input_dir must not be empty"))
	}
	if strings.TrimSpace(cfg.OutputPath) == "" {
		issues = append(issues, errIssue("output_path", "output_path must not be empty"))
	}

	issues = append(issues, validateEngine(cfg.Engine)...)
	issues = append(issues, validateInput(cfg.Input)...)
	issues = append(issues, validateOutput(cfg.Output)...)
	issues = append(issues, validateMirror(cfg.Mirror)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	issues = append(issues, validateLog(cfg.Log)...)

	return issues
}

func validateEngine(e EngineConfig) []Issue {
	var issues []Issue

	switch strings.TrimSpace(e.Kind) {
	case "":
		issues = append(issues, errIssue("engine.kind", "engine.kind must not be empty"))
	case "duckdb", "sqlite":
	default:
		// Third-party drivers can register themselves; unknown names are
		// only a warning here and fail at engine.Open if truly missing.
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "engine.kind",
			Message:  fmt.Sprintf("unknown engine kind %q; ensure a matching driver is registered", e.Kind),
		})
	}

	if e.Threads < 0 {
		issues = append(issues, errIssue("engine.threads", "engine.threads must not be negative"))
	}
	if e.Kind == "sqlite" && (e.Threads > 0 || e.MemoryLimit != "") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "engine",
			Message:  "threads and memory_limit are ignored by the sqlite engine",
		})
	}
	return issues
}

func validateInput(in InputConfig) []Issue {
	var issues []Issue

	if len(in.Patterns) == 0 {
		issues = append(issues, errIssue("input.patterns", "at least one input pattern is required"))
	}
	for i, p := range in.Patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			issues = append(issues, errIssue(fmt.Sprintf("input.patterns[%d]", i), "pattern must not be empty"))
			continue
		}
		if strings.ContainsAny(p, `/\`) {
			issues = append(issues, errIssue(fmt.Sprintf("input.patterns[%d]", i),
				fmt.Sprintf("pattern %q must match file names, not paths", p)))
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			issues = append(issues, errIssue(fmt.Sprintf("input.patterns[%d]", i),
				fmt.Sprintf("malformed pattern %q: %v", p, err)))
		}
	}
	issues = append(issues, validateDelimiter("input.delimiter", in.Delimiter)...)

	if !in.IgnoreErrors {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "input.ignore_errors",
			Message:  "ignore_errors is false; a single malformed row will fail the load",
		})
	}
	return issues
}

func validateOutput(out OutputConfig) []Issue {
	return validateDelimiter("output.delimiter", out.Delimiter)
}

func validateDelimiter(p, d string) []Issue {
	switch {
	case d == "":
		return nil
	case len([]rune(d)) != 1:
		return []Issue{errIssue(p, fmt.Sprintf("delimiter %q must be a single character", d))}
	case d == `"` || d == "\n" || d == "\r":
		return []Issue{errIssue(p, fmt.Sprintf("delimiter %q is not allowed", d))}
	}
	return nil
}

func validateMirror(m MirrorConfig) []Issue {
	var issues []Issue

	switch m.Kind {
	case "":
		return nil
	case "postgres", "sqlite":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "mirror.kind",
			Message:  fmt.Sprintf("unknown mirror kind %q; ensure a matching backend is registered", m.Kind),
		})
	}
	if strings.TrimSpace(m.DSN) == "" {
		issues = append(issues, errIssue("mirror.dsn", "mirror.dsn must not be empty when mirror.kind is set"))
	}
	if strings.TrimSpace(m.Table) == "" {
		issues = append(issues, errIssue("mirror.table", "mirror.table must not be empty when mirror.kind is set"))
	}
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, errIssue("metrics.pushgateway_url", "pushgateway backend requires a URL"))
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, errIssue("metrics.datadog_addr", "datadog backend requires an address"))
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics export will be disabled", m.Backend),
		})
	}
	return issues
}

func validateLog(l LogConfig) []Issue {
	var issues []Issue

	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "log.level",
			Message:  fmt.Sprintf("unknown log level %q; info is used", l.Level),
		})
	}
	switch l.Format {
	case "", "console", "json":
	default:
		issues = append(issues, errIssue("log.format", fmt.Sprintf("log.format %q must be console or json", l.Format)))
	}
	return issues
}

func errIssue(p, msg string) Issue {
	return Issue{Severity: SeverityError, Path: p, Message: msg}
}
