// Package source implements adapters that fetch identity and hazard data
// from external chemical databases. Adapters never return errors; failures
// are captured on the returned record.
package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/core/engine"
)

// DefaultTimeout bounds a single adapter fetch.
const DefaultTimeout = 10 * time.Second

const noMatchNote = "no match"

// RecordStore caches finished source records.
type RecordStore interface {
	GetCachedRecord(ctx context.Context, sourceID, name string) (*core.SourceRecord, error)
	SetCachedRecord(ctx context.Context, name string, record *core.SourceRecord, ttl time.Duration) error
}

// Base carries the settings shared by every adapter.
type Base struct {
	Store       RecordStore
	Client      *http.Client
	Limiter     *engine.RateLimiter
	CachePolicy CachePolicy
	UseCache    bool
	BaseURL     string
	Timeout     time.Duration
	ToolVersion string
	Clock       func() time.Time
}

// fetchFunc performs the network part of an adapter and returns the record
// with the URL that produced it.
type fetchFunc func(ctx context.Context, name string) (*core.SourceRecord, string, error)

func (b *Base) run(ctx context.Context, sourceID string, role core.SourceRole, name string, fetch fetchFunc) *core.SourceRecord {
	if ctx == nil {
		ctx = context.Background()
	}

	value := strings.TrimSpace(name)
	requestedAt := b.now()

	if value == "" {
		record := core.NewSourceRecord(sourceID, role)
		record.SetNote(noMatchNote)
		b.stamp(record, requestedAt, "")
		return record
	}

	key := strings.ToLower(value)
	if b.UseCache && b.Store != nil {
		if cached, err := b.Store.GetCachedRecord(ctx, sourceID, key); err == nil && cached != nil {
			cached.Normalize()
			cached.Provenance.FromCache = true
			return cached
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, b.timeout())
	defer cancel()

	record, target, err := fetch(fetchCtx, value)
	if err != nil {
		record = core.UnavailableRecord(sourceID, role, err)
	}
	record.SourceID = sourceID
	record.Role = role
	record.Normalize()
	b.stamp(record, requestedAt, target)

	// A cancelled parent says nothing about the source itself.
	if ctx.Err() == nil {
		b.cache(ctx, key, record)
	}
	return record
}

func (b *Base) stamp(record *core.SourceRecord, requestedAt time.Time, target string) {
	record.Provenance = core.Provenance{
		RecordID:    uuid.New().String(),
		RequestedAt: requestedAt,
		ResolvedAt:  b.now(),
		URL:         target,
		ToolVersion: b.ToolVersion,
	}
}

func (b *Base) cache(ctx context.Context, key string, record *core.SourceRecord) {
	if b.Store == nil || !b.UseCache || record == nil {
		return
	}

	ttl := cacheTTL(b.CachePolicy, record.Status)
	if ttl <= 0 {
		return
	}

	expires := b.now().Add(ttl)
	record.Provenance.CacheExpiresAt = &expires
	_ = b.Store.SetCachedRecord(ctx, key, record, ttl)
}

func (b *Base) requester() Requester {
	return Requester{Client: b.Client, Limiter: b.Limiter, UserAgent: UserAgent(b.ToolVersion)}
}

func (b *Base) timeout() time.Duration {
	if b.Timeout > 0 {
		return b.Timeout
	}
	return DefaultTimeout
}

func (b *Base) now() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}

// ProbeResult reports whether a source answered a reachability check.
type ProbeResult struct {
	SourceID   string        `json:"source_id"`
	URL        string        `json:"url"`
	Reachable  bool          `json:"reachable"`
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"latency_ns"`
	Error      string        `json:"error,omitempty"`
}

func (b *Base) probe(ctx context.Context, sourceID string, target string) ProbeResult {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout())
	defer cancel()

	result := ProbeResult{SourceID: sourceID, URL: target}
	parsed := ParseBase(target, target)
	if parsed == nil {
		result.Error = "invalid url"
		return result
	}

	started := time.Now()
	resp, err := b.requester().Get(ctx, sourceID+" probe", parsed, nil)
	result.Latency = time.Since(started)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.StatusCode = resp.StatusCode
	result.Reachable = resp.StatusCode < http.StatusInternalServerError
	return result
}
