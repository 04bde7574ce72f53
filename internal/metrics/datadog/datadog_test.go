package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesagg/internal/metrics"
)

var _ metrics.Backend = (*Backend)(nil)

type sent struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls  []sent
	closed bool
}

func (f *fakeClient) Count(name string, v int64, tags []string, _ float64) error {
	f.calls = append(f.calls, sent{"count", name, float64(v), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, v float64, tags []string, _ float64) error {
	f.calls = append(f.calls, sent{"histogram", name, v, tags})
	return nil
}

func (f *fakeClient) Gauge(name string, v float64, tags []string, _ float64) error {
	f.calls = append(f.calls, sent{"gauge", name, v, tags})
	return nil
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(Config{})
	assert.Error(t, err)
}

func TestBackend_Routing(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	r := metrics.NewReporter(&Backend{client: fc}, "salesagg")

	r.RecordStep("clean", nil, 250*time.Millisecond)
	r.RecordRows("removed", 3)
	r.RecordRun(metrics.Summary{ElapsedSeconds: 2, PeakBytes: 2048}, nil)
	require.NoError(t, r.Flush())

	require.Len(t, fc.calls, 6)
	assert.Equal(t, sent{"count", metrics.StepTotal, 1, []string{"job:salesagg", "status:success", "step:clean"}}, fc.calls[0])
	assert.Equal(t, "histogram", fc.calls[1].kind)
	assert.InDelta(t, 0.25, fc.calls[1].value, 1e-9)
	assert.Equal(t, sent{"count", metrics.RowsTotal, 3, []string{"job:salesagg", "kind:removed"}}, fc.calls[2])
	assert.Equal(t, sent{"gauge", metrics.PeakMemoryBytes, 2048, []string{"job:salesagg"}}, fc.calls[5])
	assert.True(t, fc.closed)
}

func TestBackend_ZeroValue(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	b.SetGauge("x", 1, nil)
	assert.NoError(t, b.Flush())
}

func TestBackend_UDP(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	b, err := NewBackend(Config{Addr: pc.LocalAddr().String(), Namespace: "salesagg."})
	require.NoError(t, err)
	b.SetGauge("run_duration_seconds", 1.5, metrics.Labels{"job": "nightly"})
	require.NoError(t, b.Flush())

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 8192)
	var got string
	for !strings.Contains(got, "salesagg.run_duration_seconds:") {
		n, _, err := pc.ReadFrom(buf)
		require.NoError(t, err)
		got += string(buf[:n]) + "\n"
	}
	assert.Contains(t, got, "salesagg.run_duration_seconds:1.5|g")
	assert.Contains(t, got, "job:nightly")
}
