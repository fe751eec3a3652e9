package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the toolkit records.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Library operations
	OperationsTotal   CounterVec
	OperationDuration HistogramVec
	ComponentsTotal   CounterVec

	// Caches and stores
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	DBQueryDuration  HistogramVec

	// Worker
	JobsTotal        CounterVec
	JobDuration      HistogramVec
	JobRetriesTotal  CounterVec
	WorkerActiveJobs GaugeVec
	DeadLettersTotal CounterVec

	ErrorsTotal CounterVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	DefaultJobDurationBuckets  = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(c MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "HTTP requests", "method", "route", "status_code"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route"),
		HTTPActiveRequests:  c.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method"),

		OperationsTotal:   c.RegisterCounter("operations_total", "RInChI library operations", "operation", "status"),
		OperationDuration: c.RegisterHistogram("operation_duration_seconds", "RInChI library operation duration", DefaultHTTPDurationBuckets, "operation"),
		ComponentsTotal:   c.RegisterCounter("components_total", "Reaction components processed", "role"),

		CacheHitsTotal:   c.RegisterCounter("cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal: c.RegisterCounter("cache_misses_total", "Cache misses", "cache"),
		DBQueryDuration:  c.RegisterHistogram("db_query_duration_seconds", "Store query duration", DefaultDBDurationBuckets, "db", "operation"),

		JobsTotal:        c.RegisterCounter("jobs_total", "Batch jobs processed", "type", "status"),
		JobDuration:      c.RegisterHistogram("job_duration_seconds", "Batch job duration", DefaultJobDurationBuckets, "type"),
		JobRetriesTotal:  c.RegisterCounter("job_retries_total", "Batch job retries", "type"),
		WorkerActiveJobs: c.RegisterGauge("worker_active_jobs", "Jobs currently being processed", "worker"),
		DeadLettersTotal: c.RegisterCounter("dead_letters_total", "Jobs sent to the dead-letter topic", "type"),

		ErrorsTotal: c.RegisterCounter("errors_total", "Errors by component and code", "component", "code"),
	}
}

// NewNopMetrics returns AppMetrics whose vectors discard everything.
func NewNopMetrics() *AppMetrics {
	cv, gv, hv := nopCounterVec{}, nopGaugeVec{}, nopHistogramVec{}
	return &AppMetrics{
		HTTPRequestsTotal: cv, HTTPRequestDuration: hv, HTTPActiveRequests: gv,
		OperationsTotal: cv, OperationDuration: hv, ComponentsTotal: cv,
		CacheHitsTotal: cv, CacheMissesTotal: cv, DBQueryDuration: hv,
		JobsTotal: cv, JobDuration: hv, JobRetriesTotal: cv, WorkerActiveJobs: gv, DeadLettersTotal: cv,
		ErrorsTotal: cv,
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordHTTPRequest(m *AppMetrics, method, route string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordOperation counts one library call.
func RecordOperation(m *AppMetrics, operation string, d time.Duration, err error) {
	m.OperationsTotal.WithLabelValues(operation, status(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func RecordDBQuery(m *AppMetrics, db, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(db, operation).Observe(d.Seconds())
	if err != nil {
		m.ErrorsTotal.WithLabelValues(db, "query").Inc()
	}
}

func RecordJob(m *AppMetrics, jobType string, d time.Duration, err error) {
	m.JobsTotal.WithLabelValues(jobType, status(err)).Inc()
	m.JobDuration.WithLabelValues(jobType).Observe(d.Seconds())
}

func RecordError(m *AppMetrics, component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
