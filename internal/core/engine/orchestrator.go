package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/core/report"
)

// ErrNoIngredient marks source records skipped because resolution failed.
var ErrNoIngredient = core.ResolutionError("no active ingredient resolved")

// Orchestrator runs the analysis pipeline: classify, resolve products,
// fetch every source concurrently, then build the report.
type Orchestrator struct {
	Resolver       Resolver
	Adapters       []Adapter
	Builder        *report.Builder
	AdapterTimeout time.Duration
	Observer       Observer
}

// Adapter fetches one source record for a name. Fetch never fails; problems
// are reported on the record.
type Adapter interface {
	ID() string
	Role() core.SourceRole
	Fetch(ctx context.Context, name string) *core.SourceRecord
}

// Resolver maps a product name to an active ingredient.
type Resolver interface {
	Resolve(ctx context.Context, product string) *core.ResolutionResult
}

// Observer receives pipeline events, typically for metrics.
type Observer interface {
	ObserveResolution(result *core.ResolutionResult, elapsed time.Duration)
	ObserveSource(record *core.SourceRecord, elapsed time.Duration)
}

// Analyze produces a report for raw. It returns an error only when ctx ends
// before the report is complete.
func (o *Orchestrator) Analyze(ctx context.Context, raw string) (*core.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	query := core.NewChemicalQuery(raw)

	var resolution *core.ResolutionResult
	if query.ClassifiedType == core.QueryTypeProduct {
		resolution = o.resolve(ctx, raw)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	name := report.LookupName(query, resolution)

	var records []*core.SourceRecord
	if query.ClassifiedType == core.QueryTypeProduct && !resolution.Resolved() {
		records = o.skipped()
	} else {
		records = o.fetchAll(ctx, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	builder := o.Builder
	if builder == nil {
		builder = &report.Builder{}
	}
	return builder.Build(query, resolution, records), nil
}

func (o *Orchestrator) resolve(ctx context.Context, raw string) *core.ResolutionResult {
	if o.Resolver == nil {
		message := "resolver not configured"
		return &core.ResolutionResult{
			ResolvedName: core.StringPtr(raw),
			Method:       core.MethodDirect,
			Confidence:   core.ConfidenceUnknown,
			Error:        &message,
		}
	}

	started := time.Now()
	result := o.Resolver.Resolve(ctx, raw)
	if o.Observer != nil {
		o.Observer.ObserveResolution(result, time.Since(started))
	}
	return result
}

// fetchAll runs every adapter concurrently. Records keep adapter order.
func (o *Orchestrator) fetchAll(ctx context.Context, name string) []*core.SourceRecord {
	records := make([]*core.SourceRecord, len(o.Adapters))

	var group errgroup.Group
	for i, adapter := range o.Adapters {
		group.Go(func() error {
			fetchCtx := ctx
			if o.AdapterTimeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, o.AdapterTimeout)
				defer cancel()
			}

			started := time.Now()
			record := adapter.Fetch(fetchCtx, name)
			if record == nil {
				record = core.UnavailableRecord(adapter.ID(), adapter.Role(), nil)
			}
			record.Normalize()
			if o.Observer != nil {
				o.Observer.ObserveSource(record, time.Since(started))
			}
			records[i] = record
			return nil
		})
	}
	_ = group.Wait()

	return records
}

func (o *Orchestrator) skipped() []*core.SourceRecord {
	records := make([]*core.SourceRecord, 0, len(o.Adapters))
	for _, adapter := range o.Adapters {
		records = append(records, core.UnavailableRecord(adapter.ID(), adapter.Role(), ErrNoIngredient))
	}
	return records
}
