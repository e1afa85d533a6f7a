package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/audit"
	"github.com/Ads97/Veritas/internal/cache"
	"github.com/Ads97/Veritas/internal/extract"
	"github.com/Ads97/Veritas/internal/llm"
	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/market"
	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/reconcile"
	"github.com/Ads97/Veritas/internal/records"
	"github.com/Ads97/Veritas/internal/score"
	"github.com/Ads97/Veritas/internal/scrape"
	"github.com/Ads97/Veritas/internal/search"
	"github.com/Ads97/Veritas/internal/util"
	"github.com/Ads97/Veritas/internal/worker"
)

// FromConfig builds a Verifier with the adapters selected in cfg. The returned
// func releases the audit database and cache connections.
func FromConfig(ctx context.Context, cfg model.Config, log *zap.Logger) (*Verifier, func(), error) {
	log = logger.OrNop(log)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Verifier, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	client, err := util.NewHTTPClient(cfg.HTTP)
	if err != nil {
		return fail(fmt.Errorf("http client: %w", err))
	}
	limiter := worker.NewLimiter(cfg.Concurrency.RatePerSecond, cfg.Concurrency.Burst)
	retry := worker.PolicyFromConfig(cfg.Concurrency)

	judge, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP.Timeout, client))
	if err != nil {
		return fail(fmt.Errorf("llm: %w", err))
	}
	judge = llm.NewResilient(judge, retry, log)

	var searcher search.Provider
	serper, err := search.NewSerperProvider(cfg.Search.APIKey, cfg.Search.BaseURL, worker.LimitClient(client, limiter))
	if err != nil {
		return fail(fmt.Errorf("search: %w", err))
	}
	searcher = serper

	scraper, err := scrape.New(cfg, client, limiter, log)
	if err != nil {
		return fail(fmt.Errorf("scrape: %w", err))
	}

	resolver, lookup, err := records.New(cfg, judge, client, log)
	if err != nil {
		return fail(fmt.Errorf("records: %w", err))
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache)
		if err != nil {
			return fail(fmt.Errorf("cache: %w", err))
		}
		if closer, ok := c.(interface{ Close() }); ok {
			closers = append(closers, closer.Close)
		}
		searcher = search.NewCached(searcher, c, cfg.Cache.TTL, log)
		scraper = scrape.NewCached(scraper, c, cfg.Cache.TTL, log)
		resolver = records.NewCachedResolver(resolver, c, cfg.Cache.TTL, log)
		lookup = records.NewCachedLookup(lookup, c, cfg.Cache.TTL, log)
	}

	policy, err := reconcile.ParsePolicy(cfg.Reconcile.Policy)
	if err != nil {
		return fail(err)
	}

	deps := Deps{
		Search:     searcher,
		Scraper:    scraper,
		Extractor:  extract.NewExtractor(judge, cfg.Scrape.MaxChars, log),
		Resolver:   resolver,
		Lookup:     lookup,
		Reconciler: reconcile.New(policy),
		Builder:    score.NewBuilder(cfg.Scoring),
	}

	if cfg.Market.Enabled {
		deps.Market = market.NewEstimator(searcher, scraper, judge, cfg.Market.MaxPages, log)
	}

	if cfg.Audit.Enabled {
		store, err := audit.Open(ctx, cfg.Audit.DSN, log)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				log.Warn("close audit database", zap.Error(err))
			}
		})
		deps.Audit = store
	}

	v, err := NewVerifier(deps, OptionsFromConfig(cfg), log)
	if err != nil {
		return fail(err)
	}
	return v, cleanup, nil
}
