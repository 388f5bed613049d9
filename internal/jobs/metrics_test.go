package jobmetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	require.NoError(t, m.Track("sales_record").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("sales_record").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sales_record", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sales_record", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.FailureCounter("sales_record")))
	require.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestSkippedIgnoresEmptyReason(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddSkipped("")
	m.AddSkipped("duplicate")
	m.AddSkipped("duplicate")

	require.Equal(t, 2.0, testutil.ToFloat64(m.SkippedCounter("duplicate")))
	require.Equal(t, 1, testutil.CollectAndCount(m.skipped))
}

func TestObserveLag(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveLag("sales_record", time.Now().Add(-2*time.Second))
	m.ObserveLag("sales_record", time.Time{})
	m.ObserveLag("sales_record", time.Now().Add(time.Hour))

	require.Equal(t, 1, testutil.CollectAndCount(m.lag))
	count, sum := histogramSample(t, m.lag.WithLabelValues("sales_record"))
	require.Equal(t, uint64(1), count)
	require.GreaterOrEqual(t, sum, 2.0)
}

func histogramSample(t *testing.T, o prometheus.Observer) (uint64, float64) {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, metric.Write(&out))
	return out.GetHistogram().GetSampleCount(), out.GetHistogram().GetSampleSum()
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddSkipped("duplicate")
	m.ObserveLag("sales_record", time.Now())
	require.NoError(t, m.Track("sales_record").End(nil))
}
