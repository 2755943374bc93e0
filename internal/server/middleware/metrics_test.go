package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agritox/agritox/internal/metrics"
)

func setupMetrics(t *testing.T) *metrics.Registry {
	t.Helper()

	original := metrics.Default()
	registry := metrics.NewRegistry(false)
	metrics.SetDefault(registry)
	t.Cleanup(func() { metrics.SetDefault(original) })
	return registry
}

func countSeries(t *testing.T, registry *metrics.Registry, name string) int {
	t.Helper()
	count, err := testutil.GatherAndCount(registry.Gatherer(), name)
	require.NoError(t, err)
	return count
}

func TestRequestMetrics_BasicFunctionality(t *testing.T) {
	registry := setupMetrics(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("test response"))
	})

	req := httptest.NewRequest("GET", "/api/v1/analyze", nil)
	rec := httptest.NewRecorder()

	RequestMetrics(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test response", rec.Body.String())
	assert.Equal(t, 1, countSeries(t, registry, "agritox_http_requests_total"))
	assert.Equal(t, 1, countSeries(t, registry, "agritox_http_request_duration_seconds"))
	assert.Equal(t, 0, countSeries(t, registry, "agritox_http_errors_total"))
}

func TestRequestMetrics_WithMetricsDisabled(t *testing.T) {
	original := metrics.Default()
	metrics.SetDefault(nil)
	t.Cleanup(func() { metrics.SetDefault(original) })

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	RequestMetrics(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestMetrics_WithErrorStatus(t *testing.T) {
	registry := setupMetrics(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	rec := httptest.NewRecorder()
	RequestMetrics(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/analyze", nil))

	assert.Equal(t, 1, countSeries(t, registry, "agritox_http_errors_total"))
}

func TestGetEndpointPattern_StandardPaths(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/health", "/health/*"},
		{"/health/live", "/health/*"},
		{"/health/ready", "/health/*"},
		{"/version", "/version"},
		{"/metrics", "/metrics"},
		{"/api/v1/analyze", "/api/v1/analyze"},
		{"/api/v1/export/markdown", "/api/v1/export/markdown"},
		{"/api/v1/other", "/unknown"},
		{"/roundup", "/unknown"},
		{"/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			assert.Equal(t, tt.expected, getEndpointPattern(req))
		})
	}
}

func TestRequestMetrics_WithRequestID(t *testing.T) {
	registry := setupMetrics(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-request-id")
	rec := httptest.NewRecorder()

	RequestID(RequestMetrics(handler)).ServeHTTP(rec, req)

	assert.Equal(t, "test-request-id", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, 1, countSeries(t, registry, "agritox_http_requests_total"))
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", string(make([]byte, maxRequestIDLength+1)))
	rec := httptest.NewRecorder()

	RequestID(handler).ServeHTTP(rec, req)

	assert.NotEmpty(t, seen)
	assert.LessOrEqual(t, len(seen), maxRequestIDLength)
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	registry := setupMetrics(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("adapter exploded")
	})

	rec := httptest.NewRecorder()
	Recovery(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/analyze", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.Equal(t, 1, countSeries(t, registry, "agritox_panics_total"))
}
