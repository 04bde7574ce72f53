// Package metrics measures a pipeline run and optionally exports it.
//
// Collector samples wall-clock time and resident memory at stage boundaries
// and renders the end-of-run summary. Reporter forwards step, row and run
// telemetry to a pluggable Backend; concrete backends live in subpackages so
// the pipeline never imports Prometheus or Datadog directly.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names emitted by Reporter.
const (
	StepTotal       = "salesagg_step_total"
	StepDuration    = "salesagg_step_duration_seconds"
	RowsTotal       = "salesagg_rows_total"
	RunTotal        = "salesagg_run_total"
	RunDuration     = "salesagg_run_duration_seconds"
	PeakMemoryBytes = "salesagg_peak_memory_bytes"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// SetGauge sets a point-in-time value.
	SetGauge(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) SetGauge(string, float64, Labels)         {}
func (nopBackend) Flush() error                             { return nil }

// Nop returns a backend that discards everything.
func Nop() Backend { return nopBackend{} }

// Reporter records run telemetry on one backend under one job name. The zero
// value is not usable; use NewReporter.
type Reporter struct {
	backend Backend
	job     string
}

// NewReporter wraps b. A nil backend discards.
func NewReporter(b Backend, job string) *Reporter {
	if b == nil {
		b = nopBackend{}
	}
	return &Reporter{backend: b, job: job}
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep records one stage execution and its latency.
func (r *Reporter) RecordStep(step string, err error, d time.Duration) {
	lbls := Labels{"job": r.job, "step": step, "status": status(err)}
	r.backend.IncCounter(StepTotal, 1, lbls)
	r.backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta to the row counter of kind, e.g. "raw", "cleaned",
// "removed" or "aggregated". Non-positive deltas are ignored.
func (r *Reporter) RecordRows(kind string, delta int64) {
	if delta <= 0 {
		return
	}
	r.backend.IncCounter(RowsTotal, float64(delta), Labels{"job": r.job, "kind": kind})
}

// RecordRun records the outcome of a whole run with its summary gauges.
func (r *Reporter) RecordRun(s Summary, err error) {
	lbls := Labels{"job": r.job, "status": status(err)}
	r.backend.IncCounter(RunTotal, 1, lbls)
	r.backend.SetGauge(RunDuration, s.ElapsedSeconds, Labels{"job": r.job})
	r.backend.SetGauge(PeakMemoryBytes, float64(s.PeakBytes), Labels{"job": r.job})
}

// Flush delegates to the backend.
func (r *Reporter) Flush() error { return r.backend.Flush() }
