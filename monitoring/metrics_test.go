package monitoring

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterAccumulates(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordPrediction(1, 0.9, 2*time.Millisecond)
	mc.RecordPrediction(1, 0.7, 4*time.Millisecond)
	mc.RecordPrediction(0, 0.2, 6*time.Millisecond)

	v, ok := mc.Value(MetricPredictions, map[string]string{"label": "1"})
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, ok = mc.Value(MetricPredictions, map[string]string{"label": "0"})
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = mc.Value(MetricPredictionErrors, map[string]string{"source": "api"})
	assert.False(t, ok)
}

func TestGaugeKeepsLatest(t *testing.T) {
	mc := NewMetricsCollector()
	mc.SetGauge(MetricGoroutines, 10, nil)
	mc.SetGauge(MetricGoroutines, 4, nil)

	v, ok := mc.Value(MetricGoroutines, nil)
	require.True(t, ok)
	assert.Equal(t, 4.0, v)
}

func TestMetricSummary(t *testing.T) {
	mc := NewMetricsCollector()
	for _, p := range []float64{0.2, 0.9, 0.4} {
		mc.Observe(MetricDeathProbability, p, nil)
	}

	summary, err := mc.GetMetricSummary(MetricDeathProbability, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 0.4, summary.Latest)
	assert.Equal(t, 0.2, summary.Min)
	assert.Equal(t, 0.9, summary.Max)
	assert.InDelta(t, 0.5, summary.Average, 1e-9)

	_, err = mc.GetMetricSummary("missing", nil)
	assert.Error(t, err)
}

func TestHistoryIsBounded(t *testing.T) {
	mc := NewMetricsCollector()
	for i := 0; i < maxHistory+50; i++ {
		mc.IncrCounter(MetricPredictionErrors, 1, nil)
	}
	summary, err := mc.GetMetricSummary(MetricPredictionErrors, nil)
	require.NoError(t, err)
	assert.Equal(t, maxHistory, summary.Count)

	v, _ := mc.Value(MetricPredictionErrors, nil)
	assert.Equal(t, float64(maxHistory+50), v)
}

func TestExportPrometheus(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordPrediction(1, 0.9, time.Second)
	mc.RecordError("socket")

	out := mc.ExportPrometheus()
	assert.Contains(t, out, "# TYPE heartrisk_predictions_total counter\n")
	assert.Contains(t, out, `heartrisk_predictions_total{label="1"} 1`+"\n")
	assert.Contains(t, out, `heartrisk_prediction_errors_total{source="socket"} 1`+"\n")
	assert.Contains(t, out, "heartrisk_prediction_latency_seconds_sum 1\n")
	assert.Contains(t, out, "heartrisk_prediction_latency_seconds_count 1\n")
	assert.Equal(t, 1, strings.Count(out, "# HELP heartrisk_predictions_total"))
}

func TestSummaryCountSurvivesHistoryBound(t *testing.T) {
	mc := NewMetricsCollector()
	const n = maxHistory + 500
	for i := 0; i < n; i++ {
		mc.RecordPrediction(0, 0.5, time.Millisecond)
	}

	out := mc.ExportPrometheus()
	assert.Contains(t, out, "heartrisk_death_probability_sum 750\n")
	assert.Contains(t, out, "heartrisk_death_probability_count 1500\n")
	assert.Contains(t, out, "heartrisk_prediction_latency_seconds_count 1500\n")
	assert.Contains(t, out, `heartrisk_predictions_total{label="0"} 1500`+"\n")
}

func TestRunCollectsRuntimeMetrics(t *testing.T) {
	mc := NewMetricsCollector()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mc.Run(ctx, time.Hour)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, ok := mc.Value(MetricGoroutines, nil)
		return ok
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
