// Package pipeline orchestrates a full site audit: crawl submission and
// polling, report retrieval, enrichment waves, keyword generation, SERP
// checks, scoring, and persistence.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rankward/siteaudit/internal/business"
	"github.com/rankward/siteaudit/internal/config"
	"github.com/rankward/siteaudit/internal/cost"
	"github.com/rankward/siteaudit/internal/crawl"
	"github.com/rankward/siteaudit/internal/keywords"
	"github.com/rankward/siteaudit/internal/model"
	"github.com/rankward/siteaudit/internal/resilience"
	"github.com/rankward/siteaudit/internal/scoring"
	"github.com/rankward/siteaudit/internal/serp"
	"github.com/rankward/siteaudit/internal/store"
	"github.com/rankward/siteaudit/pkg/dataforseo"
	"github.com/rankward/siteaudit/pkg/pagespeed"
)

// Pipeline phases, in execution order. Each phase persists a checkpoint on
// completion so partial progress survives a failed run.
const (
	PhaseSubmitting = "submitting"
	PhaseCrawling   = "crawling"
	PhaseFetching   = "fetching"
	PhaseAnalyzing  = "analyzing"
	PhaseKeywords   = "keywords"
	PhaseComplete   = "complete"
)

// Pipeline runs site audits end to end.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	dfs       dataforseo.Client
	psi       pagespeed.Client
	crawlOpts []crawl.Option
	retry     resilience.RetryConfig
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithCrawlOptions forwards options to the crawl engine, overriding the
// intervals derived from config.
func WithCrawlOptions(opts ...crawl.Option) Option {
	return func(p *Pipeline) { p.crawlOpts = append(p.crawlOpts, opts...) }
}

// WithRetryConfig overrides the retry policy for transient submit errors.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(p *Pipeline) { p.retry = cfg }
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, st store.Store, dfs dataforseo.Client, psi pagespeed.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:   cfg,
		store: st,
		dfs:   dfs,
		psi:   psi,
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) engineOptions() []crawl.Option {
	var opts []crawl.Option
	if p.cfg.Crawl.PollIntervalSecs > 0 {
		opts = append(opts, crawl.WithPollInterval(time.Duration(p.cfg.Crawl.PollIntervalSecs)*time.Second))
	}
	if p.cfg.Crawl.TimeoutMins > 0 {
		opts = append(opts, crawl.WithCrawlTimeout(time.Duration(p.cfg.Crawl.TimeoutMins)*time.Minute))
	}
	return append(opts, p.crawlOpts...)
}

// Run executes one audit for the request. Submit failures and crawl timeouts
// fail the audit; every enrichment degrades to a warning and an empty section.
func (p *Pipeline) Run(ctx context.Context, req model.AuditRequest) (*model.Audit, error) {
	log := zap.L().With(
		zap.String("business_id", req.BusinessID),
		zap.String("domain", req.Domain),
	)

	if n, err := p.store.InvalidateInFlight(ctx, req.BusinessID); err != nil {
		log.Warn("pipeline: invalidate in-flight audits", zap.Error(err))
	} else if n > 0 {
		log.Info("pipeline: superseded in-flight audits", zap.Int("count", n))
	}

	audit, err := p.store.CreateAudit(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create audit")
	}
	log = log.With(zap.String("audit_id", audit.ID))

	costs := cost.NewTracker()
	dfs := withCostTracking(p.dfs, costs)
	engine := crawl.NewEngine(dfs, p.engineOptions()...)
	detector := business.NewDetector(dfs, log)
	checker := serp.NewChecker(dfs,
		serp.WithDepth(p.cfg.Serp.Depth),
		serp.WithKeywordCap(p.cfg.Serp.MaxKeywordsPerMkt),
	)
	prog := newProgress(log)

	checkpoint := func(phase string) {
		if cpErr := p.store.SaveCheckpoint(ctx, audit.ID, phase, prog.Snapshot()); cpErr != nil {
			log.Warn("pipeline: save checkpoint", zap.String("phase", phase), zap.Error(cpErr))
		}
	}
	setStatus := func(status model.AuditStatus) {
		if stErr := p.store.UpdateAuditStatus(ctx, audit.ID, status); stErr != nil {
			log.Warn("pipeline: update status", zap.Error(stErr))
		}
	}
	fail := func(reason string, cause error) (*model.Audit, error) {
		prog.Error(reason)
		if fErr := p.store.FailAudit(ctx, audit.ID, reason); fErr != nil {
			log.Warn("pipeline: mark failed", zap.Error(fErr))
		}
		return audit, cause
	}

	// Phase: submitting. The crawl submit is the only call retried on
	// transient errors; everything downstream polls or degrades.
	prog.SetPhase(PhaseSubmitting)
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = p.cfg.Crawl.MaxPages
	}
	retryCfg := p.retry
	retryCfg.OnRetry = resilience.RetryLogger("dataforseo", "submit crawl")
	taskID, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
		return engine.SubmitCrawl(ctx, req.Domain, maxPages)
	})
	if err != nil {
		return fail(fmt.Sprintf("crawl submit failed: %v", err), eris.Wrap(err, "pipeline: submit crawl"))
	}
	prog.CompleteTask("crawl submitted")

	// Wave 1: Lighthouse submits and business lookup, while the crawl queues.
	var (
		lhDesktopID, lhMobileID string
		biz                     *model.BusinessRecord
	)
	wave1, wave1Ctx := errgroup.WithContext(ctx)
	wave1.Go(func() error {
		id, lhErr := engine.SubmitLighthouse(wave1Ctx, req.Domain, false)
		if lhErr != nil {
			prog.Warn("lighthouse desktop submit failed")
			return nil
		}
		lhDesktopID = id
		prog.CompleteTask("lighthouse desktop submitted")
		return nil
	})
	wave1.Go(func() error {
		id, lhErr := engine.SubmitLighthouse(wave1Ctx, req.Domain, true)
		if lhErr != nil {
			prog.Warn("lighthouse mobile submit failed")
			return nil
		}
		lhMobileID = id
		prog.CompleteTask("lighthouse mobile submitted")
		return nil
	})
	wave1.Go(func() error {
		rec, bizErr := detector.Detect(wave1Ctx, req.Domain)
		if bizErr != nil {
			prog.Warn("business lookup failed")
			return nil
		}
		biz = rec
		if rec != nil {
			prog.CompleteTask("business profile found")
		} else {
			prog.Info("no business listing for domain")
		}
		return nil
	})
	_ = wave1.Wait()
	checkpoint(PhaseSubmitting)

	// Phase: crawling. Only the wall-clock timeout or cancellation is fatal.
	prog.SetPhase(PhaseCrawling)
	setStatus(model.AuditStatusCrawling)
	status, err := engine.WaitForCrawl(ctx, taskID, func(s *crawl.Status) {
		prog.StartTask(fmt.Sprintf("crawling: %d pages, %d queued", s.PagesCrawled, s.PagesInQueue))
	})
	if err != nil {
		if eris.Is(err, crawl.ErrCrawlTimeout) {
			return fail("crawl timed out", err)
		}
		return fail(fmt.Sprintf("crawl aborted: %v", err), err)
	}
	prog.CompleteTask(fmt.Sprintf("crawl finished: %d pages", status.PagesCrawled))
	checkpoint(PhaseCrawling)

	// Phase: fetching. Per-report failures already degrade inside the engine.
	prog.SetPhase(PhaseFetching)
	cd, err := engine.FetchReports(ctx, taskID)
	if err != nil {
		return fail(fmt.Sprintf("report fetch aborted: %v", err), err)
	}
	if cd.Summary == nil {
		cd.Summary = status.Summary
	}
	cd.Business = biz
	prog.CompleteTask(fmt.Sprintf("reports fetched: %d pages", len(cd.Pages)))
	checkpoint(PhaseFetching)

	// Phase: analyzing. Wave 2 enrichments run in parallel; all non-fatal.
	prog.SetPhase(PhaseAnalyzing)
	setStatus(model.AuditStatusAnalyzing)
	p.runEnrichments(ctx, engine, checker, prog, cd, req.Domain, lhDesktopID, lhMobileID)
	checkpoint(PhaseAnalyzing)

	// Phase: keywords. Market resolution, keyword generation, SERP checks.
	prog.SetPhase(PhaseKeywords)
	cd.Markets = business.ResolveMarkets(req.Tracked, biz, cd.Pages, p.cfg.Serp.MaxMarkets)
	cd.Keywords = keywords.Extract(cd.Pages, cd.Markets, req.Domain)
	prog.CompleteTask(fmt.Sprintf("keywords generated: %d across %d markets", len(cd.Keywords), len(cd.Markets)))

	if len(cd.Keywords) > 0 && len(cd.Markets) > 0 {
		cd.Serps = checker.CheckLocalSerps(ctx, cd.Keywords, req.Domain, cd.Markets)
		if biz.HasCoordinates() {
			checker.CheckMapsForMarkets(ctx, cd.Serps, req.Domain, biz.Name, biz.Latitude, biz.Longitude)
		}
		prog.CompleteTask("local rankings checked")
	} else {
		prog.Warn("skipping rank checks: no keywords or markets")
	}
	checkpoint(PhaseKeywords)

	// Phase: complete. Score, archive, persist.
	prog.SetPhase(PhaseComplete)
	scores := scoring.Compute(cd)
	issues := 0
	for _, cat := range scores.Categories {
		issues += cat.Issues
	}

	pageRows := make([]store.PageRow, 0, len(cd.Pages))
	for _, page := range cd.Pages {
		pageRows = append(pageRows, store.PageRow{
			URL:        page.URL,
			StatusCode: page.StatusCode,
			Health:     scoring.PageHealth(page),
		})
	}
	if archErr := p.store.ArchivePages(ctx, audit.ID, pageRows); archErr != nil {
		log.Warn("pipeline: archive pages", zap.Error(archErr))
	}
	if kwErr := p.store.SaveKeywords(ctx, audit.ID, cd.Keywords); kwErr != nil {
		log.Warn("pipeline: save keywords", zap.Error(kwErr))
	}

	result := &model.AuditResult{
		Scores:      scores,
		PagesCount:  len(cd.Pages),
		IssuesCount: issues,
		Tasks:       prog.CompletedTasks(),
		APICost:     costs.Total(),
		CostLines:   costs.Breakdown(),
		Log:         prog.Entries(),
		CrawlData:   cd,
	}
	if err := p.store.UpdateAuditResult(ctx, audit.ID, result); err != nil {
		return fail(fmt.Sprintf("persist result failed: %v", err), eris.Wrap(err, "pipeline: save result"))
	}
	if cpErr := p.store.DeleteCheckpoint(ctx, audit.ID); cpErr != nil {
		log.Warn("pipeline: delete checkpoint", zap.Error(cpErr))
	}

	log.Info("pipeline: audit complete",
		zap.Int("overall", scores.Overall),
		zap.Int("pages", len(cd.Pages)),
		zap.Int("issues", issues),
		zap.Float64("api_cost", costs.Total()),
	)

	audit.Status = model.AuditStatusComplete
	audit.Scores = scores
	audit.PagesCount = len(cd.Pages)
	audit.IssuesCount = issues
	audit.Tasks = result.Tasks
	audit.APICost = result.APICost
	audit.CostLines = result.CostLines
	audit.Log = result.Log
	return audit, nil
}

// runEnrichments executes wave 2: the domain rank overview, both Lighthouse
// retrievals, and the two PageSpeed strategies. Each failure logs a warning
// and leaves its section empty.
func (p *Pipeline) runEnrichments(
	ctx context.Context,
	engine *crawl.Engine,
	checker *serp.Checker,
	prog *Progress,
	cd *model.CrawlData,
	domain, lhDesktopID, lhMobileID string,
) {
	var (
		psiDesktop, psiMobile *pagespeed.Result
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		overview, err := checker.DomainRankOverview(gCtx, domain)
		if err != nil {
			prog.Warn("domain rank overview unavailable")
			return nil
		}
		cd.DomainRank = overview
		prog.CompleteTask("domain rank fetched")
		return nil
	})
	if lhDesktopID != "" {
		g.Go(func() error {
			if lh := engine.FetchLighthouse(gCtx, lhDesktopID); lh != nil {
				cd.Lighthouse = lh
				prog.CompleteTask("lighthouse desktop retrieved")
			} else {
				prog.Warn("lighthouse desktop unavailable")
			}
			return nil
		})
	}
	if lhMobileID != "" {
		g.Go(func() error {
			if lh := engine.FetchLighthouse(gCtx, lhMobileID); lh != nil {
				cd.LighthouseMobile = lh
				prog.CompleteTask("lighthouse mobile retrieved")
			} else {
				prog.Warn("lighthouse mobile unavailable")
			}
			return nil
		})
	}
	if p.psi != nil {
		pageURL := "https://" + domain
		g.Go(func() error {
			res, err := p.psi.Run(gCtx, pageURL, "desktop")
			if err != nil {
				prog.Warn("pagespeed desktop unavailable")
				return nil
			}
			psiDesktop = res
			return nil
		})
		g.Go(func() error {
			res, err := p.psi.Run(gCtx, pageURL, "mobile")
			if err != nil {
				prog.Warn("pagespeed mobile unavailable")
				return nil
			}
			psiMobile = res
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range []*pagespeed.Result{psiDesktop, psiMobile} {
		if res == nil {
			continue
		}
		cd.PageSpeed = append(cd.PageSpeed, model.PageSpeedResult{
			Strategy:      res.Strategy,
			Performance:   res.Performance,
			Accessibility: res.Accessibility,
			BestPractices: res.BestPractices,
			SEO:           res.SEO,
			FieldMetrics:  res.FieldMetrics,
			OriginMetrics: res.OriginMetrics,
		})
	}
	if len(cd.PageSpeed) > 0 {
		prog.CompleteTask("field data collected")
	}
}
