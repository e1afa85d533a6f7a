// Package pipeline runs one verification: search, per-source extraction,
// owner reconciliation and the market estimate, folded into a verdict.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/aggregate"
	"github.com/Ads97/Veritas/internal/audit"
	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/metrics"
	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/reconcile"
	"github.com/Ads97/Veritas/internal/records"
	"github.com/Ads97/Veritas/internal/score"
	"github.com/Ads97/Veritas/internal/scrape"
	"github.com/Ads97/Veritas/internal/search"
	"github.com/Ads97/Veritas/internal/worker"
)

// ClaimExtractor turns one scraped source into exactly one claim per dimension
type ClaimExtractor interface {
	Extract(ctx context.Context, subject model.Subject, hit model.SearchHit, content model.ScrapedContent) []model.Claim
}

// MarketEstimator compares the listed rent with the local market
type MarketEstimator interface {
	Estimate(ctx context.Context, subject model.Subject) (*model.MarketEstimate, error)
}

// Deps are the adapters a Verifier runs against. Market and Audit are optional.
type Deps struct {
	Search     search.Provider
	Scraper    scrape.Provider
	Extractor  ClaimExtractor
	Resolver   records.ParcelResolver
	Lookup     records.OwnerLookup
	Reconciler *reconcile.Reconciler
	Builder    *score.Builder
	Market     MarketEstimator
	Audit      audit.Recorder
}

// Options bound a run
type Options struct {
	Workers       int
	MaxResults    int
	SourceTimeout time.Duration // Per search hit, scrape and judge together
	BranchTimeout time.Duration // Reconciliation and market estimate, each
	RunTimeout    time.Duration // Whole run; 0 leaves it to the caller
	Retry         worker.RetryPolicy

	DiscountListing bool // Drop support from the subject's own listing page
}

// OptionsFromConfig reads Options from cfg
func OptionsFromConfig(cfg model.Config) Options {
	return Options{
		Workers:       cfg.Concurrency.Workers,
		MaxResults:    cfg.Search.MaxResults,
		SourceTimeout: cfg.Concurrency.SourceTimeout,
		BranchTimeout: cfg.Concurrency.BranchTimeout,
		RunTimeout:    cfg.Concurrency.RunTimeout,
		Retry:         worker.PolicyFromConfig(cfg.Concurrency),

		DiscountListing: cfg.Evidence.DiscountListing,
	}
}

// Result is everything one run produced. Claims include the Unknown ones.
type Result struct {
	RunID          string                `json:"run_id"`
	Verdict        model.Verdict         `json:"verdict"`
	Hits           []model.SearchHit     `json:"hits"`
	Claims         []model.Claim         `json:"claims"`
	Reconciliation model.Reconciliation  `json:"reconciliation"`
	Market         *model.MarketEstimate `json:"market,omitempty"`
}

// Verifier orchestrates verification runs. It holds no per-run state and is
// safe for concurrent use.
type Verifier struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// NewVerifier checks deps and applies option defaults
func NewVerifier(deps Deps, opts Options, log *zap.Logger) (*Verifier, error) {
	switch {
	case deps.Search == nil:
		return nil, errors.New("pipeline: search provider is required")
	case deps.Scraper == nil:
		return nil, errors.New("pipeline: scraper is required")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: claim extractor is required")
	case deps.Resolver == nil || deps.Lookup == nil:
		return nil, errors.New("pipeline: parcel resolver and owner lookup are required")
	}
	if deps.Reconciler == nil {
		deps.Reconciler = reconcile.New(reconcile.AnyToken)
	}
	if deps.Builder == nil {
		deps.Builder = score.NewBuilder(model.DefaultScoring())
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}

	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.Retry.Retryable == nil {
		opts.Retry = worker.DefaultRetryPolicy()
	}

	return &Verifier{deps: deps, opts: opts, logger: logger.OrNop(log)}, nil
}

// Verify runs the whole verification for subject. When ctx ends first Verify
// returns ctx.Err() and no verdict. Hitting RunTimeout or BranchTimeout only
// degrades the verdict: late sources count as unknown, a late reconciliation
// as unmatched and a late market estimate as missing. When neither the search
// nor the owner lookup produced anything the run fails with a *model.RunError.
func (v *Verifier) Verify(ctx context.Context, subject model.Subject) (*Result, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}

	parent := ctx
	if v.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.opts.RunTimeout)
		defer cancel()
	}

	started := time.Now()
	runID := audit.NewRunID()
	log := v.logger.With(zap.String("run_id", runID))
	log.Info("verification started", zap.String("name", subject.Name), zap.String("address", subject.Address))

	var (
		wg     sync.WaitGroup
		rec    model.Reconciliation
		market *model.MarketEstimate
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		bctx, cancel := v.branchContext(ctx)
		defer cancel()
		rec = v.reconcile(bctx, subject, log)
	}()

	if v.deps.Market != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bctx, cancel := v.branchContext(ctx)
			defer cancel()
			est, err := v.deps.Market.Estimate(bctx, subject)
			if err != nil {
				log.Warn("market estimate failed", zap.Error(err))
			}
			if bctx.Err() != nil {
				log.Warn("market estimate timed out", zap.Error(bctx.Err()))
				return
			}
			market = est
		}()
	}

	hits, claims := v.sources(ctx, subject, log)

	wg.Wait()

	if err := parent.Err(); err != nil {
		metrics.ObserveRunFailure(errors.Is(err, context.Canceled))
		log.Info("verification canceled", zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		log.Warn("run deadline reached, building verdict from partial results", zap.Duration("run_timeout", v.opts.RunTimeout))
	}

	run := audit.Run{
		ID:             runID,
		StartedAt:      started,
		Subject:        subject,
		Claims:         claims,
		Reconciliation: rec,
		Market:         market,
	}

	if len(hits) == 0 && !rec.Attempted {
		runErr := model.NewRunError(fmt.Errorf("%w: no search results and no county owner records", model.ErrRunFailed))
		metrics.ObserveRunFailure(false)
		run.FinishedAt = time.Now()
		run.Err = runErr.Message
		v.record(ctx, run, log)
		log.Warn("verification failed", zap.String("reason", runErr.Message))
		return nil, runErr
	}

	attributed, rejected := aggregate.Attributed(hits, claims)
	if rejected > 0 {
		log.Warn("claims without a matching search hit dropped", zap.Int("count", rejected))
	}
	bundle := aggregate.Aggregate(subject, attributed, aggregate.WithListingDiscount(v.opts.DiscountListing))

	verdict := v.deps.Builder.Build(bundle, rec, &score.AnalysisContext{
		Subject:         subject,
		SourcesAnalyzed: len(hits),
		Market:          market,
	})
	metrics.ObserveVerdict(&verdict)

	run.FinishedAt = time.Now()
	run.Verdict = &verdict
	v.record(ctx, run, log)

	log.Info("verification finished",
		zap.Bool("clear_outcome", verdict.ClearOutcome),
		zap.Float64("scam_likelihood", verdict.ScamLikelihood),
		zap.Int("sources", len(hits)),
		zap.Bool("owner_match", rec.Matched),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &Result{
		RunID:          runID,
		Verdict:        verdict,
		Hits:           hits,
		Claims:         claims,
		Reconciliation: rec,
		Market:         market,
	}, nil
}

// sources searches for the subject and extracts claims from every hit.
// A failed search degrades to no hits.
func (v *Verifier) sources(ctx context.Context, subject model.Subject, log *zap.Logger) ([]model.SearchHit, []model.Claim) {
	start := time.Now()
	hits, err := worker.Do(ctx, v.opts.Retry, func(ctx context.Context) ([]model.SearchHit, error) {
		return v.deps.Search.Search(ctx, subject.SearchQuery(), v.opts.MaxResults)
	})
	metrics.ObserveProvider("search", "search", start, err)
	if err != nil {
		log.Warn("search failed", zap.Error(err))
		return nil, nil
	}
	if len(hits) == 0 {
		log.Info("search returned no results")
		return nil, nil
	}

	jobs := make([]worker.Job, len(hits))
	for i, hit := range hits {
		jobs[i] = &sourceJob{
			index:   i,
			subject: subject,
			hit:     hit,
			timeout: v.opts.SourceTimeout,
			scraper: v.deps.Scraper,
			claimer: v.deps.Extractor,
			logger:  log,
		}
	}

	results, err := worker.Run(ctx, v.opts.Workers, jobs)

	done := make([]*sourceResult, 0, len(hits))
	finished := make(map[int]bool, len(results))
	for _, r := range results {
		sr := r.(*sourceResult)
		finished[sr.index] = true
		done = append(done, sr)
	}
	if err != nil {
		for i, hit := range hits {
			if !finished[i] {
				done = append(done, &sourceResult{index: i, claims: model.UnknownClaims(hit, "not processed before the run ended")})
			}
		}
		log.Warn("source processing cut short", zap.Int("processed", len(results)), zap.Int("hits", len(hits)), zap.Error(err))
	}
	sort.Slice(done, func(i, j int) bool { return done[i].index < done[j].index })

	var claims []model.Claim
	for _, r := range done {
		claims = append(claims, r.claims...)
	}
	return hits, claims
}

// branchContext bounds one side branch of the run
func (v *Verifier) branchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.opts.BranchTimeout > 0 {
		return context.WithTimeout(ctx, v.opts.BranchTimeout)
	}
	return context.WithCancel(ctx)
}

// reconcile resolves the address to a parcel, looks up its owners and
// matches the declared name. Every failure ends as an unmatched reconciliation.
func (v *Verifier) reconcile(ctx context.Context, subject model.Subject, log *zap.Logger) model.Reconciliation {
	var rec model.Reconciliation

	parcel, err := v.deps.Resolver.Resolve(ctx, subject.Address)
	if err != nil {
		log.Warn("parcel resolution failed", zap.String("address", subject.Address), zap.Error(err))
		rec.Err = err.Error()
		return rec
	}
	rec.Parcel = &parcel

	owners, err := v.deps.Lookup.LookupOwners(ctx, parcel)
	if err != nil {
		log.Warn("owner lookup failed", zap.Stringer("parcel", parcel), zap.Error(err))
		rec.Err = err.Error()
		return rec
	}
	rec.Attempted = true
	rec.Owners = owners
	rec.Matched, rec.MatchedName = v.deps.Reconciler.Reconcile(subject.Name, owners)

	log.Debug("owner reconciliation",
		zap.Stringer("parcel", parcel),
		zap.Strings("owners", owners),
		zap.Bool("matched", rec.Matched),
	)
	return rec
}

// record writes the run to the audit trail. A write failure never fails the run.
func (v *Verifier) record(ctx context.Context, run audit.Run, log *zap.Logger) {
	if err := v.deps.Audit.Record(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("audit record failed", zap.Error(err))
	}
}

// sourceJob scrapes and judges one search hit
type sourceJob struct {
	index   int
	subject model.Subject
	hit     model.SearchHit
	timeout time.Duration
	scraper scrape.Provider
	claimer ClaimExtractor
	logger  *zap.Logger
}

type sourceResult struct {
	index  int
	claims []model.Claim
}

func (r *sourceResult) GetError() error { return nil }

// Execute never fails: scrape and judge problems come back as Unknown claims
func (j *sourceJob) Execute(ctx context.Context) worker.Result {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	content := j.scraper.Scrape(ctx, j.hit.Link)
	claims := j.claimer.Extract(ctx, j.subject, j.hit, content)

	j.logger.Debug("source processed",
		zap.String("link", j.hit.Link),
		zap.Bool("content", !content.Empty()),
		zap.Int("claims", len(claims)),
	)
	return &sourceResult{index: j.index, claims: claims}
}
