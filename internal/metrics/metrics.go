// Package metrics holds the Prometheus collectors for the HTTP surface and the
// analysis pipeline. Recording functions are no-ops until Init is called.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agritox/agritox/internal/core"
)

// Namespace prefixes every metric name.
const Namespace = "agritox"

var durationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Registry owns the collectors exposed on /metrics.
type Registry struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpErrors       *prometheus.CounterVec
	errors           *prometheus.CounterVec
	errorsByEndpoint *prometheus.CounterVec
	panics           prometheus.Counter

	sourceFetches  *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	resolutions    *prometheus.CounterVec
	resolveLatency prometheus.Histogram
	analyses       *prometheus.CounterVec

	serverStart prometheus.Gauge
}

var (
	current   *Registry
	currentMu sync.RWMutex
)

// NewRegistry builds a registry with every collector registered.
func NewRegistry(withRuntime bool) *Registry {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	}

	r := &Registry{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "endpoint", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   durationBuckets,
		}, []string{"method", "endpoint"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_errors_total",
			Help:      "HTTP responses with a 4xx or 5xx status.",
		}, []string{"method", "endpoint", "error_type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Error envelopes written, by code.",
		}, []string{"error_code", "http_status"}),
		errorsByEndpoint: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_by_endpoint_total",
			Help:      "Error envelopes written, by endpoint.",
		}, []string{"endpoint", "error_code"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "panics_total",
			Help:      "Recovered handler panics.",
		}),
		sourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "source_fetches_total",
			Help:      "Source adapter fetches, by outcome.",
		}, []string{"source", "status", "cached"}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Source adapter fetch latency.",
			Buckets:   durationBuckets,
		}, []string{"source"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resolutions_total",
			Help:      "Product name resolutions, by method and confidence.",
		}, []string{"method", "confidence"}),
		resolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Product name resolution latency.",
			Buckets:   durationBuckets,
		}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "analyses_total",
			Help:      "Completed analyses, by query type and mammalian level.",
		}, []string{"query_type", "mammalian_level"}),
		serverStart: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_start_time_seconds",
			Help:      "Unix time the HTTP server started.",
		}),
	}

	reg.MustRegister(
		r.httpRequests, r.httpDuration, r.httpErrors,
		r.errors, r.errorsByEndpoint, r.panics,
		r.sourceFetches, r.sourceDuration,
		r.resolutions, r.resolveLatency, r.analyses,
		r.serverStart,
	)
	return r
}

// Init installs a fresh registry as the process-wide default.
func Init() *Registry {
	r := NewRegistry(true)
	SetDefault(r)
	return r
}

// SetDefault replaces the process-wide registry; nil disables recording.
func SetDefault(r *Registry) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = r
}

// Default returns the process-wide registry or nil.
func Default() *Registry {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	r := Default()
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())

	if status >= 400 {
		errorType := "client_error"
		if status >= 500 {
			errorType = "server_error"
		}
		r.httpErrors.WithLabelValues(method, endpoint, errorType).Inc()
	}
}

// RecordError records an error with code and status
func RecordError(errorCode string, httpStatus int) {
	if r := Default(); r != nil {
		r.errors.WithLabelValues(errorCode, strconv.Itoa(httpStatus)).Inc()
	}
}

// RecordPanic records a panic recovery
func RecordPanic() {
	if r := Default(); r != nil {
		r.panics.Inc()
	}
}

// RecordErrorByEndpoint records an error by endpoint
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	if r := Default(); r != nil {
		r.errorsByEndpoint.WithLabelValues(endpoint, errorCode).Inc()
	}
}

// RecordAnalysis counts a finished report.
func RecordAnalysis(report *core.Report) {
	r := Default()
	if r == nil || report == nil {
		return
	}
	r.analyses.WithLabelValues(string(report.QueryType), string(report.Toxicity.MammalianLevel)).Inc()
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(at time.Time) {
	if r := Default(); r != nil {
		r.serverStart.Set(float64(at.Unix()))
	}
}

// Observer feeds pipeline events into the default registry.
type Observer struct{}

// ObserveResolution counts a resolver outcome.
func (Observer) ObserveResolution(result *core.ResolutionResult, elapsed time.Duration) {
	r := Default()
	if r == nil || result == nil {
		return
	}
	r.resolutions.WithLabelValues(string(result.Method), string(result.Confidence)).Inc()
	r.resolveLatency.Observe(elapsed.Seconds())
}

// ObserveSource counts an adapter outcome.
func (Observer) ObserveSource(record *core.SourceRecord, elapsed time.Duration) {
	r := Default()
	if r == nil || record == nil {
		return
	}
	r.sourceFetches.WithLabelValues(record.SourceID, string(record.Status), strconv.FormatBool(record.Provenance.FromCache)).Inc()
	r.sourceDuration.WithLabelValues(record.SourceID).Observe(elapsed.Seconds())
}
