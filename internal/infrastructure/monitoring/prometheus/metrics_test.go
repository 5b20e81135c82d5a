package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipelineMetrics(t *testing.T) (*PipelineMetrics, MetricsCollector) {
	c := newTestCollector(t)
	m := NewPipelineMetrics(c)
	require.NotNil(t, m)
	return m, c
}

func TestNewPipelineMetricsAllRegistered(t *testing.T) {
	m, _ := newTestPipelineMetrics(t)

	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.JobsEnqueuedTotal)
	assert.NotNil(t, m.JobDuration)
	assert.NotNil(t, m.ElementsMatchedTotal)
	assert.NotNil(t, m.ProviderRequestsTotal)
	assert.NotNil(t, m.EscalationsTotal)
	assert.NotNil(t, m.CombinedCreatedTotal)
	assert.NotNil(t, m.CacheHitsTotal)
	assert.NotNil(t, m.DeadLetteredTotal)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestPipelineMetrics(t)

	RecordHTTPRequest(m, "POST", "/api/v1/citation/jobs", 202, 30*time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_http_requests_total{method="POST",path="/api/v1/citation/jobs",status_code="202"} 1`)
	assert.Contains(t, output, `test_unit_http_request_duration_seconds_count{method="POST",path="/api/v1/citation/jobs"} 1`)
}

func TestRecordJobOutcomes(t *testing.T) {
	m, c := newTestPipelineMetrics(t)

	RecordJobCompleted(m, 12*time.Second)
	RecordJobFailed(m, "timeout", 60*time.Second)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, "test_unit_jobs_completed_total 1")
	assert.Contains(t, output, `test_unit_jobs_failed_total{reason="timeout"} 1`)
	assert.Contains(t, output, "test_unit_job_duration_seconds_count 2")
}

func TestRecordProviderCall(t *testing.T) {
	m, c := newTestPipelineMetrics(t)

	RecordProviderCall(m, "score", true, 500*time.Millisecond)
	RecordProviderCall(m, "analyze", false, 2*time.Second)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_provider_requests_total{operation="score",status="success"} 1`)
	assert.Contains(t, output, `test_unit_provider_requests_total{operation="analyze",status="failure"} 1`)
	assert.Contains(t, output, `test_unit_provider_duration_seconds_count{operation="score"} 1`)
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestPipelineMetrics(t)

	RecordCacheAccess(m, "matches", true)
	RecordCacheAccess(m, "matches", true)
	RecordCacheAccess(m, "combined", false)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_cache_hits_total{kind="matches"} 2`)
	assert.Contains(t, output, `test_unit_cache_misses_total{kind="combined"} 1`)
}

func TestRecordError(t *testing.T) {
	m, c := newTestPipelineMetrics(t)

	RecordError(m, "matcher", "CIT_001")

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_errors_total{code="CIT_001",component="matcher"} 1`)
}

func TestConcurrentRecording(t *testing.T) {
	m, _ := newTestPipelineMetrics(t)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				RecordHTTPRequest(m, "GET", "/path", 200, time.Millisecond)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

//Personal.AI order the ending
