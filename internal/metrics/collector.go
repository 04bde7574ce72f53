package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// MemoryReader returns the current resident memory of the process in bytes.
type MemoryReader func() (uint64, error)

// Sample is one checkpoint reading.
type Sample struct {
	Label string
	// At is the elapsed time since Start.
	At  time.Duration
	RSS uint64
}

// Collector tracks wall-clock time and the resident memory high-water mark of
// one run. It is owned by the caller and is not safe for concurrent use.
type Collector struct {
	now   func() time.Time
	read  MemoryReader
	log   zerolog.Logger
	title string

	start   time.Time
	started bool
	last    uint64
	peak    uint64
	samples []Sample
}

// Option configures a Collector.
type Option func(*Collector)

// WithMemoryReader replaces the OS memory reader.
func WithMemoryReader(r MemoryReader) Option { return func(c *Collector) { c.read = r } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Collector) { c.now = now } }

// WithLogger sets where memory read failures are reported.
func WithLogger(l zerolog.Logger) Option { return func(c *Collector) { c.log = l } }

// WithTitle sets the parenthesized label of the summary heading.
func WithTitle(t string) Option { return func(c *Collector) { c.title = t } }

// NewCollector returns a Collector using the platform memory reader.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{now: time.Now, read: ResidentMemory, log: zerolog.Nop(), title: "Go"}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start records the run start. Calling it again restarts the clock and
// clears samples.
func (c *Collector) Start() {
	c.start = c.now()
	c.started = true
	c.last, c.peak = 0, 0
	c.samples = c.samples[:0]
}

// Sample reads resident memory and folds it into the high-water mark. A
// failed read is logged and the last known value is used instead.
func (c *Collector) Sample(label string) uint64 {
	rss, err := c.read()
	if err != nil {
		c.log.Warn().Err(err).Str("sample", label).Msg("memory read failed; using last known value")
		rss = c.last
	}
	c.last = rss
	if rss > c.peak {
		c.peak = rss
	}
	var at time.Duration
	if c.started {
		at = c.now().Sub(c.start)
	}
	c.samples = append(c.samples, Sample{Label: label, At: at, RSS: rss})
	return rss
}

// Peak returns the high-water mark in bytes.
func (c *Collector) Peak() uint64 { return c.peak }

// Summary is the end-of-run telemetry.
type Summary struct {
	Title          string
	Elapsed        time.Duration
	ElapsedSeconds float64
	ElapsedMinutes float64
	PeakBytes      uint64
	PeakMemoryMB   float64
	PeakMemoryGB   float64
	Samples        []Sample
}

// Summary computes elapsed time from Start and the memory peak. Before Start
// the elapsed time is zero.
func (c *Collector) Summary() Summary {
	var d time.Duration
	if c.started {
		d = c.now().Sub(c.start)
	}
	mb := float64(c.peak) / 1024 / 1024
	return Summary{
		Title:          c.title,
		Elapsed:        d,
		ElapsedSeconds: d.Seconds(),
		ElapsedMinutes: d.Seconds() / 60,
		PeakBytes:      c.peak,
		PeakMemoryMB:   mb,
		PeakMemoryGB:   mb / 1024,
		Samples:        append([]Sample(nil), c.samples...),
	}
}

// String renders the summary block printed at the end of a run.
func (s Summary) String() string {
	rule := strings.Repeat("=", 60)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "Pipeline Execution Summary (%s)\n", s.Title)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Duration: %.2f seconds (%.2f minutes)\n", s.ElapsedSeconds, s.ElapsedMinutes)
	fmt.Fprintf(&b, "Peak Memory: %.2f MB (%.2f GB)\n", s.PeakMemoryMB, s.PeakMemoryGB)
	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}
