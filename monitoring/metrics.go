// Package monitoring records prediction counters and latencies and exports
// them in the Prometheus text format.
package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType metric type
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
	MetricTypeSummary MetricType = "summary"
)

const (
	MetricPredictions       = "heartrisk_predictions_total"
	MetricPredictionErrors  = "heartrisk_prediction_errors_total"
	MetricPredictionLatency = "heartrisk_prediction_latency_seconds"
	MetricDeathProbability  = "heartrisk_death_probability"
	MetricGoroutines        = "heartrisk_goroutines"
	MetricHeapAlloc         = "heartrisk_memory_heap_alloc_bytes"
)

// maxHistory bounds the samples kept per series.
const maxHistory = 1000

// Metric is one sample.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Help      string            `json:"help,omitempty"`
}

// Summary aggregates the samples of one series.
type Summary struct {
	Name    string    `json:"name"`
	Count   int       `json:"count"`
	Latest  float64   `json:"latest"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Average float64   `json:"average"`
	Updated time.Time `json:"updated"`
}

type series struct {
	metricType MetricType
	help       string
	labels     map[string]string
	samples    []Metric
	// total and count cover every sample ever recorded, not only the
	// retained history.
	total float64
	count int
}

// MetricsCollector keeps recent samples per series. A series is a metric name
// plus its label set.
type MetricsCollector struct {
	mu     sync.RWMutex
	series map[string]*series
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{series: make(map[string]*series)}
}

// RecordMetric stores one sample.
func (mc *MetricsCollector) RecordMetric(metric Metric) {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}
	key := seriesKey(metric.Name, metric.Labels)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	s, ok := mc.series[key]
	if !ok {
		s = &series{metricType: metric.Type, help: metric.Help, labels: metric.Labels}
		mc.series[key] = s
	}
	s.total += metric.Value
	s.count++
	s.samples = append(s.samples, metric)
	if len(s.samples) > maxHistory {
		s.samples = s.samples[len(s.samples)-maxHistory:]
	}
}

// IncrCounter adds value to a counter.
func (mc *MetricsCollector) IncrCounter(name string, value float64, labels map[string]string) {
	mc.RecordMetric(Metric{Name: name, Type: MetricTypeCounter, Value: value, Labels: labels})
}

// SetGauge records the current value of a gauge.
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.RecordMetric(Metric{Name: name, Type: MetricTypeGauge, Value: value, Labels: labels})
}

// Observe records one summary observation such as a latency.
func (mc *MetricsCollector) Observe(name string, value float64, labels map[string]string) {
	mc.RecordMetric(Metric{Name: name, Type: MetricTypeSummary, Value: value, Labels: labels})
}

// RecordPrediction records a successful prediction.
func (mc *MetricsCollector) RecordPrediction(label int, probability float64, elapsed time.Duration) {
	labels := map[string]string{"label": fmt.Sprint(label)}
	mc.IncrCounter(MetricPredictions, 1, labels)
	mc.Observe(MetricPredictionLatency, elapsed.Seconds(), nil)
	mc.Observe(MetricDeathProbability, probability, nil)
}

// RecordError counts a failed prediction by the surface it came from.
func (mc *MetricsCollector) RecordError(source string) {
	mc.IncrCounter(MetricPredictionErrors, 1, map[string]string{"source": source})
}

// Value returns the exported value of a series: the running total for
// counters and the latest sample otherwise.
func (mc *MetricsCollector) Value(name string, labels map[string]string) (float64, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	s, ok := mc.series[seriesKey(name, labels)]
	if !ok || len(s.samples) == 0 {
		return 0, false
	}
	return s.value(), true
}

// GetMetricSummary summarises the retained samples of one series.
func (mc *MetricsCollector) GetMetricSummary(name string, labels map[string]string) (Summary, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	s, ok := mc.series[seriesKey(name, labels)]
	if !ok || len(s.samples) == 0 {
		return Summary{}, fmt.Errorf("metric %s not found", name)
	}

	last := s.samples[len(s.samples)-1]
	summary := Summary{
		Name:    name,
		Count:   len(s.samples),
		Latest:  last.Value,
		Min:     s.samples[0].Value,
		Max:     s.samples[0].Value,
		Updated: last.Timestamp,
	}
	sum := 0.0
	for _, m := range s.samples {
		sum += m.Value
		if m.Value < summary.Min {
			summary.Min = m.Value
		}
		if m.Value > summary.Max {
			summary.Max = m.Value
		}
	}
	summary.Average = sum / float64(len(s.samples))
	return summary, nil
}

// Run samples runtime gauges every interval until ctx is done.
func (mc *MetricsCollector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	mc.collectRuntimeMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mc.collectRuntimeMetrics()
		}
	}
}

func (mc *MetricsCollector) collectRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mc.SetGauge(MetricHeapAlloc, float64(m.HeapAlloc), nil)
	mc.SetGauge(MetricGoroutines, float64(runtime.NumGoroutine()), nil)
}

// ExportPrometheus renders every series in the Prometheus text format, sorted
// by series key.
func (mc *MetricsCollector) ExportPrometheus() string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	keys := make([]string, 0, len(mc.series))
	for key := range mc.series {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	described := make(map[string]bool)
	for _, key := range keys {
		s := mc.series[key]
		if len(s.samples) == 0 {
			continue
		}
		name := s.samples[0].Name
		if !described[name] {
			described[name] = true
			help := s.help
			if help == "" {
				help = fmt.Sprintf("Metric %s", name)
			}
			fmt.Fprintf(&b, "# HELP %s %s\n", name, help)
			fmt.Fprintf(&b, "# TYPE %s %s\n", name, promType(s.metricType))
		}
		if s.metricType == MetricTypeSummary {
			fmt.Fprintf(&b, "%s_sum%s %g\n", name, formatLabels(s.labels), s.total)
			fmt.Fprintf(&b, "%s_count%s %d\n", name, formatLabels(s.labels), s.count)
			continue
		}
		fmt.Fprintf(&b, "%s%s %g\n", name, formatLabels(s.labels), s.value())
	}
	return b.String()
}

func (s *series) value() float64 {
	if s.metricType == MetricTypeCounter {
		return s.total
	}
	return s.samples[len(s.samples)-1].Value
}

func promType(t MetricType) string {
	switch t {
	case MetricTypeCounter, MetricTypeGauge, MetricTypeSummary:
		return string(t)
	default:
		return "untyped"
	}
}

func seriesKey(name string, labels map[string]string) string {
	return name + formatLabels(labels)
}

// formatLabels renders labels as {k="v",...} with sorted keys.
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
