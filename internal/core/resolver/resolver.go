// Package resolver maps commercial product names to active ingredients.
//
// Resolution tries, in order, the local alias table, a structured entity
// lookup checked against the same table, and a free-text web search whose
// results are graded by how the ingredient was found.
package resolver

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/agritox/agritox/internal/core"
)

const (
	// AliasTableReference is the source reference for alias table matches.
	AliasTableReference = "alias-table"

	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 24 * time.Hour
	noIngredient    = "no active ingredient found"
)

// The leftmost phrase in a result wins, whichever form it takes.
var ingredientPattern = regexp.MustCompile(
	`(?i)\b(?:active ingredient is\s+|active ingredient:\s*|contains\s+)` +
		`(?:\d+(?:\.\d+)?\s*%\s*)?(?:(?:the|an?)\s+)?([\w][\w\-,]*)`)

// Searcher runs a free-text web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// EntityLookup finds the best structured entity for a name.
type EntityLookup interface {
	Lookup(ctx context.Context, name string) (*Entity, error)
}

// ResolutionStore caches finished resolutions.
type ResolutionStore interface {
	GetCachedResolution(ctx context.Context, key string) (*core.ResolutionResult, error)
	SetCachedResolution(ctx context.Context, key string, result *core.ResolutionResult, ttl time.Duration) error
}

// Resolver implements the product name resolution policy.
type Resolver struct {
	Aliases  *AliasTable
	Lookup   EntityLookup
	Search   Searcher
	Store    ResolutionStore
	UseCache bool
	CacheTTL time.Duration
	Timeout  time.Duration
}

// Resolve maps product to an active ingredient. It never fails; problems are
// reported on the result.
func (r *Resolver) Resolve(ctx context.Context, product string) *core.ResolutionResult {
	if ctx == nil {
		ctx = context.Background()
	}

	value := strings.TrimSpace(product)
	key := normalizeAlias(value)

	if ingredient, ok := r.Aliases.Match(value); ok {
		return direct(ingredient, core.ConfidenceHigh, AliasTableReference)
	}

	if r.UseCache && r.Store != nil && key != "" {
		if cached, err := r.Store.GetCachedResolution(ctx, key); err == nil && cached != nil {
			cached.FromCache = true
			return cached
		}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	resolveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, cacheable := r.resolveRemote(resolveCtx, value)
	if cacheable && ctx.Err() == nil {
		r.cache(ctx, key, result)
	}
	return result
}

func (r *Resolver) resolveRemote(ctx context.Context, value string) (*core.ResolutionResult, bool) {
	if r.Lookup != nil && value != "" {
		if entity, err := r.Lookup.Lookup(ctx, value); err == nil && entity != nil {
			if ingredient, ok := r.Aliases.Match(entity.Label); ok {
				return direct(ingredient, core.ConfidenceHigh, entity.URL), true
			}
		}
	}

	if r.Search == nil {
		return passthrough(value, "search is not configured"), false
	}

	results, err := r.Search.Search(ctx, value+" active ingredient pesticide")
	if err != nil {
		return passthrough(value, err.Error()), false
	}

	return Grade(results), true
}

// Grade applies the free-text grading rules to ranked search results.
func Grade(results []SearchResult) *core.ResolutionResult {
	for _, result := range results {
		if ingredient, ok := MatchIngredient(result.Text()); ok {
			return &core.ResolutionResult{
				ResolvedName:    core.StringPtr(ingredient),
				Method:          core.MethodSearchMatch,
				Confidence:      core.ConfidenceMedium,
				SourceReference: reference(result.URL),
			}
		}
	}

	if len(results) > 0 {
		first := results[0]
		return &core.ResolutionResult{
			ResolvedName:    core.StringPtr(first.Title),
			Method:          core.MethodSearchFallback,
			Confidence:      core.ConfidenceLow,
			SourceReference: reference(first.URL),
		}
	}

	return &core.ResolutionResult{
		Method:     core.MethodFailed,
		Confidence: core.ConfidenceNone,
		Error:      core.StringPtr(core.ResolutionError(noIngredient).Error()),
	}
}

// MatchIngredient extracts the ingredient named by an "active ingredient is",
// "active ingredient:" or "contains" phrase.
func MatchIngredient(text string) (string, bool) {
	match := ingredientPattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return "", false
	}
	ingredient := strings.TrimRight(match[1], ",-")
	return ingredient, ingredient != ""
}

func (r *Resolver) cache(ctx context.Context, key string, result *core.ResolutionResult) {
	if r.Store == nil || !r.UseCache || key == "" || result == nil {
		return
	}
	ttl := r.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	_ = r.Store.SetCachedResolution(ctx, key, result, ttl)
}

func direct(ingredient string, confidence core.Confidence, ref string) *core.ResolutionResult {
	return &core.ResolutionResult{
		ResolvedName:    core.StringPtr(ingredient),
		Method:          core.MethodDirect,
		Confidence:      confidence,
		SourceReference: reference(ref),
	}
}

// passthrough keeps the raw product text when search could not run.
func passthrough(value, message string) *core.ResolutionResult {
	return &core.ResolutionResult{
		ResolvedName: core.StringPtr(value),
		Method:       core.MethodDirect,
		Confidence:   core.ConfidenceUnknown,
		Error:        core.StringPtr(message),
	}
}

func reference(value string) *string {
	if value == "" {
		return nil
	}
	return core.StringPtr(value)
}
