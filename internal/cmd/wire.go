package cmd

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/agritox/agritox/internal/config"
	"github.com/agritox/agritox/internal/core/engine"
	"github.com/agritox/agritox/internal/core/resolver"
	"github.com/agritox/agritox/internal/core/source"
	"github.com/agritox/agritox/internal/core/store"
	"github.com/agritox/agritox/internal/metrics"
	"github.com/agritox/agritox/internal/observability"
	"github.com/agritox/agritox/internal/server/handlers"
)

// pipeline is the assembled analysis stack for one command invocation.
type pipeline struct {
	orchestrator *engine.Orchestrator
	probers      []handlers.Prober
	store        *store.Store
}

type pipelineOptions struct {
	noCache bool
}

// buildPipeline wires adapters, resolver and store from cfg. A store that
// cannot be opened disables caching and persisted rate limits; analysis
// still runs.
func buildPipeline(ctx context.Context, cfg *config.Config, opts pipelineOptions) (*pipeline, error) {
	p := &pipeline{}

	db, err := openStoreWith(ctx, cfg.Store)
	if err != nil {
		if logger := observability.Logger(); logger != nil {
			logger.Warn("Store unavailable; running without cache", zap.Error(err))
		}
	} else {
		p.store = db
	}

	limiter := &engine.RateLimiter{}
	if p.store != nil {
		limiter.Store = p.store
	}
	limiter.ApplyOverrides(cfg.RateLimits)
	limiter.ApplySafetyMargin(cfg.RateLimitMargin)

	useCache := cfg.Cache.Enabled && !opts.noCache && p.store != nil
	client := &http.Client{}

	base := func(sc config.SourceConfig) source.Base {
		b := source.Base{
			Client:  client,
			Limiter: limiter,
			CachePolicy: source.CachePolicy{
				OKTTL:          cfg.Cache.OKTTL,
				UnavailableTTL: cfg.Cache.UnavailableTTL,
			},
			UseCache:    useCache,
			BaseURL:     sc.BaseURL,
			Timeout:     cfg.Sources.Timeout,
			ToolVersion: versionInfo.Version,
		}
		if p.store != nil {
			b.Store = p.store
		}
		return b
	}

	var adapters []engine.Adapter
	if cfg.Sources.PubChem.Enabled {
		a := &source.PubChemAdapter{Base: base(cfg.Sources.PubChem)}
		adapters = append(adapters, a)
		p.probers = append(p.probers, a)
	}
	if cfg.Sources.ECHA.Enabled {
		a := &source.ECHAAdapter{Base: base(cfg.Sources.ECHA)}
		adapters = append(adapters, a)
		p.probers = append(p.probers, a)
	}
	if cfg.Sources.EPA.Enabled {
		a := &source.EPAAdapter{Base: base(cfg.Sources.EPA.SourceConfig), APIKey: cfg.Sources.EPA.APIKey}
		adapters = append(adapters, a)
		p.probers = append(p.probers, a)
	}

	res, err := buildResolver(cfg, limiter, client)
	if err != nil {
		p.Close()
		return nil, err
	}
	res.UseCache = useCache
	if p.store != nil {
		res.Store = p.store
	}

	p.orchestrator = &engine.Orchestrator{
		Resolver:       res,
		Adapters:       adapters,
		AdapterTimeout: cfg.Sources.Timeout,
		Observer:       metrics.Observer{},
	}
	return p, nil
}

func buildResolver(cfg *config.Config, limiter *engine.RateLimiter, client *http.Client) (*resolver.Resolver, error) {
	aliases, err := resolver.LoadAliases(cfg.Resolver.AliasFile)
	if err != nil {
		return nil, err
	}

	requester := source.Requester{
		Client:    client,
		Limiter:   limiter,
		UserAgent: source.UserAgent(versionInfo.Version),
	}

	res := &resolver.Resolver{
		Aliases:  aliases,
		CacheTTL: cfg.Cache.ResolutionTTL,
		Timeout:  cfg.Resolver.Timeout,
	}
	if cfg.Resolver.Wikidata.Enabled {
		res.Lookup = &resolver.WikidataLookup{
			Requester: requester,
			BaseURL:   cfg.Resolver.Wikidata.BaseURL,
			Language:  cfg.Resolver.Wikidata.Language,
		}
	}
	if cfg.Resolver.Search.Enabled {
		res.Search = &resolver.DuckDuckGoSearch{
			Requester: requester,
			BaseURL:   cfg.Resolver.Search.BaseURL,
		}
	}
	return res, nil
}

// Close releases the store.
func (p *pipeline) Close() {
	if p == nil || p.store == nil {
		return
	}
	if err := p.store.Close(); err != nil {
		if logger := observability.Logger(); logger != nil {
			logger.Debug("Store close failed", zap.Error(err))
		}
	}
	p.store = nil
}
