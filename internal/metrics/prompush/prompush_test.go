package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesagg/internal/metrics"
)

var _ metrics.Backend = (*Backend)(nil)

// readCounterValue reads the current value of a Counter for assertions in tests.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	require.NotNil(t, m.GetCounter())
	return m.GetCounter().GetValue()
}

func readGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	require.NotNil(t, m.GetGauge())
	return m.GetGauge().GetValue()
}

// readSummaryCountSum reads sample count and sum from a SummaryVec.
func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()
	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	require.True(t, ok)
	require.NoError(t, metric.Write(m))
	require.NotNil(t, m.GetSummary())
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	_, err := NewBackend("salesagg", "")
	require.Error(t, err)

	b, err := NewBackend("", "http://pushgateway:9091")
	require.NoError(t, err)
	assert.Equal(t, "salesagg", b.jobName)

	b, err = NewBackend("nightly", "http://pushgateway:9091")
	require.NoError(t, err)
	assert.Equal(t, "nightly", b.jobName)
	assert.Equal(t, "http://pushgateway:9091", b.gatewayURL)
}

func TestReporterRouting(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("salesagg", "http://example.com")
	require.NoError(t, err)
	r := metrics.NewReporter(b, "salesagg")

	r.RecordStep("load", nil, 1500*time.Millisecond)
	r.RecordRows("raw", 7)
	r.RecordRows("raw", 3)
	r.RecordRun(metrics.Summary{ElapsedSeconds: 12.5, PeakBytes: 1 << 20}, nil)
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	assert.Equal(t, 1.0, readCounterValue(t, b.stepCounter.WithLabelValues("load", "success")))
	count, sum := readSummaryCountSum(t, b.stepDuration, "load", "success")
	assert.Equal(t, uint64(1), count)
	assert.InDelta(t, 1.5, sum, 1e-9)
	assert.Equal(t, 10.0, readCounterValue(t, b.rowCounter.WithLabelValues("raw")))
	assert.Equal(t, 1.0, readCounterValue(t, b.runCounter.WithLabelValues("success")))
	assert.Equal(t, 12.5, readGaugeValue(t, b.runDuration))
	assert.Equal(t, float64(1<<20), readGaugeValue(t, b.peakMemory))
}

func TestZeroBackendIsSafe(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "raw"})
	b.ObserveHistogram(metrics.StepDuration, 1, nil)
	b.SetGauge(metrics.RunDuration, 1, nil)
	assert.NoError(t, b.Flush())
}

func TestFlush(t *testing.T) {
	t.Parallel()

	type pushRequestInfo struct {
		method string
		path   string
		body   string
	}
	reqCh := make(chan pushRequestInfo, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushRequestInfo{method: r.Method, path: r.URL.Path, body: string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("salesagg", server.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "load", "status": "success"})
	require.NoError(t, b.Flush())

	var got pushRequestInfo
	select {
	case got = <-reqCh:
	default:
		t.Fatal("Flush() did not reach the Pushgateway")
	}
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/metrics/job/salesagg", got.path)
	assert.NotEmpty(t, got.body)
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	b, err := NewBackend("salesagg", server.URL)
	require.NoError(t, err)
	assert.Error(t, b.Flush())
}
