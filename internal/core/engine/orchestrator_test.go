package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agritox/agritox/internal/core"
)

type stubAdapter struct {
	id     string
	role   core.SourceRole
	record func(ctx context.Context, name string) *core.SourceRecord

	mu   sync.Mutex
	seen []string
}

func (s *stubAdapter) ID() string            { return s.id }
func (s *stubAdapter) Role() core.SourceRole { return s.role }

func (s *stubAdapter) Fetch(ctx context.Context, name string) *core.SourceRecord {
	s.mu.Lock()
	s.seen = append(s.seen, name)
	s.mu.Unlock()
	if s.record != nil {
		return s.record(ctx, name)
	}
	return core.NewSourceRecord(s.id, s.role)
}

type stubResolver struct {
	result *core.ResolutionResult
	calls  int
}

func (s *stubResolver) Resolve(ctx context.Context, product string) *core.ResolutionResult {
	s.calls++
	return s.result
}

type recordingObserver struct {
	mu          sync.Mutex
	resolutions int
	sources     []string
}

func (r *recordingObserver) ObserveResolution(result *core.ResolutionResult, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions++
}

func (r *recordingObserver) ObserveSource(record *core.SourceRecord, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, record.SourceID)
}

func TestAnalyzeActiveIngredientSkipsResolver(t *testing.T) {
	resolver := &stubResolver{}
	identity := &stubAdapter{id: "pubchem", role: core.SourceRoleIdentity}
	orchestrator := &Orchestrator{Resolver: resolver, Adapters: []Adapter{identity}}

	report, err := orchestrator.Analyze(context.Background(), "atrazine")
	require.NoError(t, err)
	require.Zero(t, resolver.calls)
	require.Nil(t, report.Resolution)
	require.Equal(t, []string{"atrazine"}, identity.seen)
}

func TestAnalyzeProductPassesResolvedName(t *testing.T) {
	resolver := &stubResolver{result: &core.ResolutionResult{
		ResolvedName: core.StringPtr("glyphosate"),
		Method:       core.MethodDirect,
		Confidence:   core.ConfidenceHigh,
	}}
	identity := &stubAdapter{id: "pubchem", role: core.SourceRoleIdentity}
	regulatory := &stubAdapter{id: "echa", role: core.SourceRoleRegulatory}
	observer := &recordingObserver{}
	orchestrator := &Orchestrator{Resolver: resolver, Adapters: []Adapter{identity, regulatory}, Observer: observer}

	report, err := orchestrator.Analyze(context.Background(), "RoundUp Max")
	require.NoError(t, err)
	require.Equal(t, 1, resolver.calls)
	require.Equal(t, []string{"glyphosate"}, identity.seen)
	require.Equal(t, []string{"glyphosate"}, regulatory.seen)
	require.Equal(t, "glyphosate", report.LookupName)
	require.Equal(t, 1, observer.resolutions)
	require.ElementsMatch(t, []string{"pubchem", "echa"}, observer.sources)
	require.Equal(t, "pubchem", report.Sources[0].SourceID)
	require.Equal(t, "echa", report.Sources[1].SourceID)
}

func TestAnalyzeFailedResolutionSkipsAdapters(t *testing.T) {
	resolver := &stubResolver{result: &core.ResolutionResult{
		Method:     core.MethodFailed,
		Confidence: core.ConfidenceNone,
		Error:      core.StringPtr("no active ingredient found"),
	}}
	identity := &stubAdapter{id: "pubchem", role: core.SourceRoleIdentity}
	orchestrator := &Orchestrator{Resolver: resolver, Adapters: []Adapter{identity}}

	report, err := orchestrator.Analyze(context.Background(), "Nothing Gold")
	require.NoError(t, err)
	require.Empty(t, identity.seen)
	require.Len(t, report.Sources, 1)
	require.Equal(t, core.SourceStatusUnavailable, report.Sources[0].Status)
	require.Equal(t, ErrNoIngredient.Error(), *report.Sources[0].Error)
	require.ErrorIs(t, ErrNoIngredient, core.ErrResolution)
	require.Equal(t, "Unknown", report.ActiveIngredient)
}

func TestAnalyzeSlowAdapterDegradesOnlyItself(t *testing.T) {
	identity := &stubAdapter{id: "pubchem", role: core.SourceRoleIdentity, record: func(ctx context.Context, name string) *core.SourceRecord {
		record := core.NewSourceRecord("pubchem", core.SourceRoleIdentity)
		record.IdentityFields["title"] = "Glyphosate"
		return record
	}}
	regulatory := &stubAdapter{id: "echa", role: core.SourceRoleRegulatory, record: func(ctx context.Context, name string) *core.SourceRecord {
		<-ctx.Done()
		return core.UnavailableRecord("echa", core.SourceRoleRegulatory, ctx.Err())
	}}
	orchestrator := &Orchestrator{Adapters: []Adapter{identity, regulatory}, AdapterTimeout: 20 * time.Millisecond}

	report, err := orchestrator.Analyze(context.Background(), "glyphosate")
	require.NoError(t, err)
	require.Equal(t, core.SourceStatusOK, report.Sources[0].Status)
	require.Equal(t, core.SourceStatusUnavailable, report.Sources[1].Status)
	require.NotNil(t, report.Sources[1].Error)
	require.Equal(t, "Unknown", report.RecommendedUse)
	require.Equal(t, "Glyphosate", report.ActiveIngredient)
}

func TestAnalyzeCancelledReturnsNoReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	regulatory := &stubAdapter{id: "echa", role: core.SourceRoleRegulatory, record: func(ctx context.Context, name string) *core.SourceRecord {
		cancel()
		<-ctx.Done()
		return core.UnavailableRecord("echa", core.SourceRoleRegulatory, ctx.Err())
	}}
	orchestrator := &Orchestrator{Adapters: []Adapter{regulatory}}

	report, err := orchestrator.Analyze(ctx, "glyphosate")
	require.Nil(t, report)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestAnalyzeNilRecordBecomesUnavailable(t *testing.T) {
	broken := &stubAdapter{id: "epa", role: core.SourceRoleIdentity, record: func(ctx context.Context, name string) *core.SourceRecord {
		return nil
	}}
	orchestrator := &Orchestrator{Adapters: []Adapter{broken}}

	report, err := orchestrator.Analyze(context.Background(), "glyphosate")
	require.NoError(t, err)
	require.Equal(t, core.SourceStatusUnavailable, report.Sources[0].Status)
	require.NotNil(t, report.Sources[0].HazardCodes)
}
