package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agritox/agritox/internal/core"
	apperrors "github.com/agritox/agritox/internal/errors"
	"github.com/agritox/agritox/internal/metrics"
	"github.com/agritox/agritox/internal/server/handlers"
)

type fixedAnalyzer struct{}

func (fixedAnalyzer) Analyze(ctx context.Context, raw string) (*core.Report, error) {
	return &core.Report{
		Query:            raw,
		QueryType:        core.Classify(raw),
		Toxicity:         core.ToxicitySummary{MammalianLevel: core.MammalianLowToModerate},
		RegulatoryStatus: map[string]any{"ECHA": "Unknown", "CLP": []string{}},
		Notes:            []string{"No special notes."},
	}, nil
}

func newTestServer(t *testing.T) (*Server, *metrics.Registry) {
	t.Helper()
	original := metrics.Default()
	registry := metrics.NewRegistry(false)
	metrics.SetDefault(registry)
	t.Cleanup(func() {
		metrics.SetDefault(original)
		handlers.ResetHTTPErrorResponder()
	})

	srv := New(Options{
		Host:          "127.0.0.1",
		Analysis:      &handlers.AnalysisHandlers{Analyzer: fixedAnalyzer{}},
		Metrics:       registry,
		HealthEnabled: true,
	})
	return srv, registry
}

func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/does-not-exist")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.NotEmpty(t, body.Error.RequestID)
}

func TestAnalyzeRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/api/v1/analyze?query=Unknown+Compound+9999")
	require.Equal(t, http.StatusOK, rec.Code)

	var report core.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, core.QueryTypeActiveIngredient, report.QueryType)
	assert.Equal(t, []string{"No special notes."}, report.Notes)
}

func TestAnalyzeRouteMissingQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/api/v1/analyze")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INVALID_INPUT", body.Error.Code)
}

func TestAnalyzeRouteRejectsPost(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, http.MethodPost, "/api/v1/analyze?query=glyphosate")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	serve(srv, http.MethodGet, "/api/v1/analyze?query=glyphosate")
	rec := serve(srv, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agritox_http_requests_total")
	assert.Contains(t, rec.Body.String(), `endpoint="/api/v1/analyze"`)
}

func TestHealthAndVersionRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	handlers.InitHealthManager("test")

	assert.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/version").Code)
}

func TestOptionalRoutesStayUnmounted(t *testing.T) {
	t.Cleanup(handlers.ResetHTTPErrorResponder)
	srv := New(Options{Host: "127.0.0.1"})

	assert.Equal(t, http.StatusNotFound, serve(srv, http.MethodGet, "/metrics").Code)
	assert.Equal(t, http.StatusNotFound, serve(srv, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusNotFound, serve(srv, http.MethodGet, "/api/v1/analyze?query=x").Code)
	assert.Equal(t, http.StatusNotFound, serve(srv, http.MethodPost, "/admin/signal").Code)
}
