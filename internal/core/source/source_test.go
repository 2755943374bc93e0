package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/core/engine"
)

type stubRecordStore struct {
	cached map[string]*core.SourceRecord
	ttls   map[string]time.Duration
}

func (s *stubRecordStore) GetCachedRecord(ctx context.Context, sourceID, name string) (*core.SourceRecord, error) {
	if s.cached == nil {
		return nil, nil
	}
	return s.cached[sourceID+"|"+name], nil
}

func (s *stubRecordStore) SetCachedRecord(ctx context.Context, name string, record *core.SourceRecord, ttl time.Duration) error {
	if s.cached == nil {
		s.cached = make(map[string]*core.SourceRecord)
		s.ttls = make(map[string]time.Duration)
	}
	s.cached[record.SourceID+"|"+name] = record
	s.ttls[record.SourceID+"|"+name] = ttl
	return nil
}

type memoryRateStore struct {
	state map[string]*core.RateLimitState
}

func (m *memoryRateStore) GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	return m.state[endpoint], nil
}

func (m *memoryRateStore) UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error {
	if m.state == nil {
		m.state = make(map[string]*core.RateLimitState)
	}
	m.state[endpoint] = state
	return nil
}

func TestEmptyNameIsOKWithoutNetwork(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	adapter := &PubChemAdapter{Base: Base{Client: server.Client(), BaseURL: server.URL}}
	record := adapter.Fetch(context.Background(), "   ")

	require.Equal(t, core.SourceStatusOK, record.Status)
	require.NotNil(t, record.Note)
	require.Equal(t, "no match", *record.Note)
	require.Zero(t, calls)
	require.NotNil(t, record.HazardCodes)
	require.NotEmpty(t, record.Provenance.RecordID)
}

func TestUnavailableOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := &EPAAdapter{Base: Base{Client: server.Client(), BaseURL: server.URL}}
	record := adapter.Fetch(context.Background(), "glyphosate")

	require.Equal(t, core.SourceStatusUnavailable, record.Status)
	require.NotNil(t, record.Error)
	require.Contains(t, *record.Error, "502")
	require.NotNil(t, record.HazardCodes)
	require.NotNil(t, record.PrecautionaryCodes)
	require.NotNil(t, record.IdentityFields)
}

func TestAdapterTimeoutDegradesToUnavailable(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	adapter := &ECHAAdapter{Base: Base{Client: server.Client(), BaseURL: server.URL, Timeout: 50 * time.Millisecond}}
	record := adapter.Fetch(context.Background(), "glyphosate")

	require.Equal(t, core.SourceStatusUnavailable, record.Status)
	require.NotNil(t, record.Error)
	require.Nil(t, record.RecommendedUse)
}

func TestRateLimitedIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	host := strings.Split(strings.TrimPrefix(server.URL, "http://"), ":")[0]
	limiter := &engine.RateLimiter{
		Store:  &memoryRateStore{},
		Limits: map[string]engine.RateLimit{host: {RequestsPerWindow: 1, WindowDuration: time.Minute}},
	}
	require.NoError(t, limiter.Record(context.Background(), host))

	adapter := &EPAAdapter{Base: Base{Client: server.Client(), BaseURL: server.URL, Limiter: limiter}}
	record := adapter.Fetch(context.Background(), "glyphosate")

	require.Equal(t, core.SourceStatusUnavailable, record.Status)
	require.Equal(t, "rate limited", *record.Error)
}

func TestCacheRoundTripAndTTL(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"dtxsid":"DTXSID8020563","casrn":"1071-83-6","preferredName":"Glyphosate"}]`))
	}))
	defer server.Close()

	store := &stubRecordStore{}
	adapter := &EPAAdapter{Base: Base{Store: store, UseCache: true, Client: server.Client(), BaseURL: server.URL}}

	first := adapter.Fetch(context.Background(), "Glyphosate")
	require.Equal(t, core.SourceStatusOK, first.Status)
	require.False(t, first.Provenance.FromCache)
	require.Equal(t, time.Hour, store.ttls["epa|glyphosate"])

	second := adapter.Fetch(context.Background(), "glyphosate")
	require.True(t, second.Provenance.FromCache)
	require.Equal(t, 1, calls)
}

func TestUnavailableCachedBriefly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store := &stubRecordStore{}
	adapter := &EPAAdapter{Base: Base{Store: store, UseCache: true, Client: server.Client(), BaseURL: server.URL}}
	adapter.Fetch(context.Background(), "glyphosate")

	require.Equal(t, 30*time.Second, store.ttls["epa|glyphosate"])
}

func TestCancelledParentSkipsCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &stubRecordStore{}
	adapter := &EPAAdapter{Base: Base{Store: store, UseCache: true, Client: server.Client(), BaseURL: server.URL}}
	record := adapter.Fetch(ctx, "glyphosate")

	require.Equal(t, core.SourceStatusUnavailable, record.Status)
	require.Empty(t, store.cached)
}

func TestUserAgent(t *testing.T) {
	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := &PubChemAdapter{Base: Base{Client: server.Client(), BaseURL: server.URL}}
	adapter.Fetch(context.Background(), "glyphosate")

	require.Equal(t, "AgriToxInsight/1.0", agent)
}

func TestProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := &ECHAAdapter{Base: Base{Client: server.Client(), BaseURL: server.URL}}
	result := adapter.Probe(context.Background())

	require.True(t, result.Reachable)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, ECHASource, result.SourceID)
}
