package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/core/source"
	apperrors "github.com/agritox/agritox/internal/errors"
	"github.com/agritox/agritox/internal/metrics"
	"github.com/agritox/agritox/internal/observability"
	"github.com/agritox/agritox/internal/output"
)

// QueryParam names the query string parameter carrying the product or
// ingredient name.
const QueryParam = "query"

// Analyzer produces a report for a raw query.
type Analyzer interface {
	Analyze(ctx context.Context, raw string) (*core.Report, error)
}

// Prober checks that one external source answers.
type Prober interface {
	Probe(ctx context.Context) source.ProbeResult
}

// AnalysisHandlers serves the analysis API.
type AnalysisHandlers struct {
	Analyzer Analyzer
	Probers  []Prober

	// Timeout bounds a single analysis; zero leaves it to the request context.
	Timeout time.Duration
}

// SourcesTestResponse lists per-source reachability.
type SourcesTestResponse struct {
	Sources []source.ProbeResult `json:"sources"`
}

// Analyze handles GET /api/v1/analyze?query=.
func (h *AnalysisHandlers) Analyze(w http.ResponseWriter, r *http.Request) {
	report, ok := h.run(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(report)
}

// ExportMarkdown handles GET /api/v1/export/markdown?query=.
func (h *AnalysisHandlers) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	report, ok := h.run(w, r)
	if !ok {
		return
	}

	rendered, err := (&output.MarkdownFormatter{}).FormatReport(report)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to render report"))
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+output.ExportFilename(report.Query)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rendered))
}

// SourcesTest handles GET /api/v1/sources/test. Unreachable sources are
// reported, never turned into an HTTP error.
func (h *AnalysisHandlers) SourcesTest(w http.ResponseWriter, r *http.Request) {
	results := ProbeAll(r.Context(), h.Probers)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(SourcesTestResponse{Sources: results})
}

// ProbeAll probes every source concurrently. Results keep the order of probers.
func ProbeAll(ctx context.Context, probers []Prober) []source.ProbeResult {
	results := make([]source.ProbeResult, len(probers))

	var group errgroup.Group
	for i, prober := range probers {
		group.Go(func() error {
			results[i] = prober.Probe(ctx)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func (h *AnalysisHandlers) run(w http.ResponseWriter, r *http.Request) (*core.Report, bool) {
	query := strings.TrimSpace(r.URL.Query().Get(QueryParam))
	if query == "" {
		respondWithError(w, r, apperrors.NewQueryRequiredError(QueryParam))
		return nil, false
	}
	if h.Analyzer == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("analyzer not configured"))
		return nil, false
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	report, err := h.Analyzer.Analyze(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			respondWithError(w, r, apperrors.WrapTimeout(r.Context(), err, "analysis timed out"))
		} else {
			respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "analysis aborted"))
		}
		return nil, false
	}

	metrics.RecordAnalysis(report)
	if logger := observability.ServerLogger; logger != nil {
		logger.Debug("analysis complete",
			zap.String("query", query),
			zap.String("lookup_name", report.LookupName),
			zap.String("mammalian_level", string(report.Toxicity.MammalianLevel)))
	}
	return report, true
}
