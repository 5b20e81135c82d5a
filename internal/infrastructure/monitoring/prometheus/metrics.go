package prometheus

import (
	"fmt"
	"time"
)

// PipelineMetrics holds every metric the citation pipeline emits.
type PipelineMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Job controller
	JobsEnqueuedTotal  CounterVec
	JobsCompletedTotal CounterVec
	JobsFailedTotal    CounterVec
	JobDuration        HistogramVec
	ActiveJobs         GaugeVec

	// Reference matcher
	ElementsMatchedTotal  CounterVec
	MatchScoreDistribution HistogramVec
	CandidateSections     HistogramVec
	ProviderRequestsTotal CounterVec
	ProviderDuration      HistogramVec

	// Deep analysis escalator
	EscalationsTotal     CounterVec
	DeepAnalysisDuration HistogramVec

	// Combined aggregator
	CombinedCreatedTotal CounterVec

	// Cache layer
	CacheHitsTotal        CounterVec
	CacheMissesTotal      CounterVec
	CacheInvalidatedTotal CounterVec

	// Messaging
	ConsumerLag            GaugeVec
	MessageProcessDuration HistogramVec
	DeadLetteredTotal      CounterVec

	// Infrastructure
	DBPoolSize      GaugeVec
	DBPoolActive    GaugeVec
	DBQueryDuration HistogramVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default buckets
var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultJobDurationBuckets  = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800}
	DefaultProviderBuckets     = []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultScoreBuckets        = []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .9, 1}
)

// NewPipelineMetrics registers all metrics and returns the handle struct.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	m := &PipelineMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Jobs
	m.JobsEnqueuedTotal = collector.RegisterCounter("jobs_enqueued_total", "Citation jobs enqueued", "result")
	m.JobsCompletedTotal = collector.RegisterCounter("jobs_completed_total", "Citation jobs completed")
	m.JobsFailedTotal = collector.RegisterCounter("jobs_failed_total", "Citation jobs failed", "reason")
	m.JobDuration = collector.RegisterHistogram("job_duration_seconds", "Citation job duration", DefaultJobDurationBuckets)
	m.ActiveJobs = collector.RegisterGauge("active_jobs", "Citation jobs currently running")

	// Matcher
	m.ElementsMatchedTotal = collector.RegisterCounter("elements_matched_total", "Claim elements matched", "outcome")
	m.MatchScoreDistribution = collector.RegisterHistogram("match_score", "Shallow match score distribution", DefaultScoreBuckets)
	m.CandidateSections = collector.RegisterHistogram("candidate_sections", "Candidate sections per element", []float64{0, 1, 2, 5, 10, 20, 50})
	m.ProviderRequestsTotal = collector.RegisterCounter("provider_requests_total", "Analysis provider requests", "operation", "status")
	m.ProviderDuration = collector.RegisterHistogram("provider_duration_seconds", "Analysis provider call duration", DefaultProviderBuckets, "operation")

	// Escalation
	m.EscalationsTotal = collector.RegisterCounter("escalations_total", "References escalated to deep analysis", "outcome")
	m.DeepAnalysisDuration = collector.RegisterHistogram("deep_analysis_duration_seconds", "Deep analysis duration", DefaultProviderBuckets)

	// Aggregation
	m.CombinedCreatedTotal = collector.RegisterCounter("combined_created_total", "Combined analyses created")

	// Cache
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "kind")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "kind")
	m.CacheInvalidatedTotal = collector.RegisterCounter("cache_invalidated_total", "Cache keys invalidated", "reason")

	// Messaging
	m.ConsumerLag = collector.RegisterGauge("consumer_lag", "Consumer lag per topic", "topic")
	m.MessageProcessDuration = collector.RegisterHistogram("message_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic")
	m.DeadLetteredTotal = collector.RegisterCounter("dead_lettered_total", "Messages routed to the dead-letter topic", "topic")

	// Infrastructure
	m.DBPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")

	// Health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// Helpers

func RecordHTTPRequest(m *PipelineMetrics, method, path string, statusCode int, duration time.Duration) {
	status := fmt.Sprintf("%d", statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordJobCompleted(m *PipelineMetrics, duration time.Duration) {
	m.JobsCompletedTotal.WithLabelValues().Inc()
	m.JobDuration.WithLabelValues().Observe(duration.Seconds())
}

func RecordJobFailed(m *PipelineMetrics, reason string, duration time.Duration) {
	m.JobsFailedTotal.WithLabelValues(reason).Inc()
	m.JobDuration.WithLabelValues().Observe(duration.Seconds())
}

func RecordProviderCall(m *PipelineMetrics, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.ProviderRequestsTotal.WithLabelValues(operation, status).Inc()
	m.ProviderDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordCacheAccess(m *PipelineMetrics, kind string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(kind).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(kind).Inc()
	}
}

func RecordError(m *PipelineMetrics, component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
