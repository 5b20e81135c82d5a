package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	cfg := CollectorConfig{
		Namespace: "test",
		Subsystem: "unit",
	}
	c, err := NewMetricsCollector(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	handler := collector.Handler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollectorEmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)

	counter := c.RegisterCounter("requests_total", "Total requests", "method")
	counter.WithLabelValues("GET").Inc()
	counter.WithLabelValues("GET").Add(2)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_requests_total{method="GET"} 3`)
}

func TestRegisterCounterIdempotent(t *testing.T) {
	c := newTestCollector(t)

	first := c.RegisterCounter("dup_total", "dup")
	second := c.RegisterCounter("dup_total", "dup")
	first.WithLabelValues().Inc()
	second.WithLabelValues().Inc()

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, "test_unit_dup_total 2")
}

func TestRegisterGauge(t *testing.T) {
	c := newTestCollector(t)

	gauge := c.RegisterGauge("active_jobs", "Active jobs")
	gauge.WithLabelValues().Set(5)
	gauge.WithLabelValues().Dec()

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, "test_unit_active_jobs 4")
}

func TestRegisterHistogram(t *testing.T) {
	c := newTestCollector(t)

	hist := c.RegisterHistogram("job_duration_seconds", "Job duration", []float64{1, 10}, "kind")
	hist.WithLabelValues("match").Observe(0.5)
	hist.WithLabelValues("match").Observe(5)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_job_duration_seconds_count{kind="match"} 2`)
	assert.Contains(t, output, `test_unit_job_duration_seconds_bucket{kind="match",le="1"} 1`)
}

func TestTimerObservesDuration(t *testing.T) {
	c := newTestCollector(t)

	hist := c.RegisterHistogram("timed_seconds", "Timed", []float64{10})
	timer := NewTimer(hist.WithLabelValues())
	time.Sleep(time.Millisecond)
	timer.ObserveDuration()

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, "test_unit_timed_seconds_count 1")
}

func TestTimerNilHistogram(t *testing.T) {
	timer := NewTimer(nil)
	timer.ObserveDuration()
}

//Personal.AI order the ending
