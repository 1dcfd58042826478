package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rankward/siteaudit/internal/model"
	"github.com/rankward/siteaudit/pkg/dataforseo"
)

// ErrCrawlTimeout is returned when a crawl does not finish within the
// wall-clock budget. Distinct from provider errors so the orchestrator can
// surface it as a fatal timeout rather than a flaky API call.
var ErrCrawlTimeout = eris.New("crawl: timed out waiting for completion")

const (
	defaultPollInterval = 4 * time.Second
	defaultCrawlTimeout = 15 * time.Minute

	defaultLighthouseAttempts = 15
	defaultLighthouseInterval = 4 * time.Second

	// Report endpoints are fetched sequentially; pace them so a burst of
	// seven requests stays inside the provider's per-second limits.
	reportFetchRate = 2
)

// Option configures the Engine.
type Option func(*Engine)

// WithPollInterval overrides the crawl poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// WithCrawlTimeout overrides the crawl-completion wall-clock budget.
func WithCrawlTimeout(d time.Duration) Option {
	return func(e *Engine) { e.crawlTimeout = d }
}

// WithLighthouseRetrieval overrides the Lighthouse poll attempt count and spacing.
func WithLighthouseRetrieval(attempts int, interval time.Duration) Option {
	return func(e *Engine) {
		e.lhAttempts = attempts
		e.lhInterval = interval
	}
}

// Engine submits and tracks crawl and Lighthouse jobs at the provider.
type Engine struct {
	dfs     dataforseo.Client
	limiter *rate.Limiter

	pollInterval time.Duration
	crawlTimeout time.Duration
	lhAttempts   int
	lhInterval   time.Duration
}

// NewEngine creates an Engine on top of a DataForSEO client.
func NewEngine(dfs dataforseo.Client, opts ...Option) *Engine {
	e := &Engine{
		dfs:          dfs,
		limiter:      rate.NewLimiter(rate.Limit(reportFetchRate), 1),
		pollInterval: defaultPollInterval,
		crawlTimeout: defaultCrawlTimeout,
		lhAttempts:   defaultLighthouseAttempts,
		lhInterval:   defaultLighthouseInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitCrawl submits a crawl job for the domain and returns its task ID.
// The job requests resource loading, JS rendering, redirect and sitemap checks.
func (e *Engine) SubmitCrawl(ctx context.Context, domain string, maxPages int) (string, error) {
	body := []map[string]any{{
		"target":            domain,
		"max_crawl_pages":   maxPages,
		"load_resources":    true,
		"enable_javascript": true,
		"follow_redirects":  true,
		"check_sitemap":     true,
	}}

	resp, err := e.dfs.Post(ctx, "on_page/task_post", body)
	if err != nil {
		return "", eris.Wrap(err, "crawl: submit task")
	}
	if len(resp.Tasks) == 0 {
		return "", eris.New("crawl: provider returned no task")
	}
	task := resp.Tasks[0]
	if !task.OK() {
		return "", eris.Errorf("crawl: task rejected: %d %s", task.StatusCode, task.StatusMessage)
	}
	return task.ID, nil
}

// SubmitLighthouse submits a Lighthouse job, trying https://domain and then
// https://www.domain. Callers treat an error as non-fatal; Lighthouse is
// optional enrichment.
func (e *Engine) SubmitLighthouse(ctx context.Context, domain string, mobile bool) (string, error) {
	var lastErr error
	for _, host := range []string{domain, "www." + domain} {
		body := []map[string]any{{
			"url":        "https://" + host,
			"for_mobile": mobile,
			"categories": []string{"performance", "accessibility", "best_practices", "seo"},
		}}

		resp, err := e.dfs.Post(ctx, "on_page/lighthouse/task_post", body)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Tasks) == 0 || !resp.Tasks[0].OK() {
			lastErr = eris.Errorf("crawl: lighthouse task rejected for %s", host)
			continue
		}
		return resp.Tasks[0].ID, nil
	}
	return "", eris.Wrap(lastErr, "crawl: submit lighthouse")
}

// Status is one poll's snapshot of a crawl job.
type Status struct {
	Finished     bool
	PagesCrawled int
	PagesInQueue int
	Progress     model.CrawlProgress
	Summary      *model.CrawlSummary
}

// summaryResult mirrors the on_page summary result object.
type summaryResult struct {
	CrawlProgress string `json:"crawl_progress"`
	CrawlStatus   struct {
		MaxCrawlPages int `json:"max_crawl_pages"`
		PagesInQueue  int `json:"pages_in_queue"`
		PagesCrawled  int `json:"pages_crawled"`
	} `json:"crawl_status"`
	DomainInfo struct {
		Checks map[string]bool `json:"checks"`
	} `json:"domain_info"`
}

// PollStatus performs a single status poll. A task with no result yet is
// reported as in_queue rather than erroring.
func (e *Engine) PollStatus(ctx context.Context, taskID string) (*Status, error) {
	resp, err := e.dfs.Get(ctx, fmt.Sprintf("on_page/summary/%s", taskID))
	if err != nil {
		return nil, eris.Wrap(err, "crawl: poll status")
	}
	if len(resp.Tasks) == 0 || len(resp.Tasks[0].Result) == 0 {
		return &Status{Progress: model.CrawlInQueue}, nil
	}

	var results []summaryResult
	if err := json.Unmarshal(resp.Tasks[0].Result, &results); err != nil || len(results) == 0 {
		return &Status{Progress: model.CrawlInQueue}, nil
	}
	sr := results[0]

	progress := model.CrawlProgress(sr.CrawlProgress)
	switch progress {
	case model.CrawlInQueue, model.CrawlWorking, model.CrawlFinished:
	default:
		progress = model.CrawlUnknown
	}

	summary := &model.CrawlSummary{
		PagesCrawled: sr.CrawlStatus.PagesCrawled,
		PagesInQueue: sr.CrawlStatus.PagesInQueue,
		MaxPages:     sr.CrawlStatus.MaxCrawlPages,
		Progress:     progress,
	}
	// The summary only reports the check when the crawl probed TLS.
	if ssl, ok := sr.DomainInfo.Checks["ssl"]; ok {
		summary.SSLValid = &ssl
	}

	return &Status{
		Finished:     progress == model.CrawlFinished,
		PagesCrawled: sr.CrawlStatus.PagesCrawled,
		PagesInQueue: sr.CrawlStatus.PagesInQueue,
		Progress:     progress,
		Summary:      summary,
	}, nil
}

// WaitForCrawl polls until the crawl finishes or the wall-clock budget is
// exceeded. Poll failures are retried at the fixed interval; only the
// timeout or context cancellation ends the loop early.
func (e *Engine) WaitForCrawl(ctx context.Context, taskID string, onPoll func(*Status)) (*Status, error) {
	deadline := time.Now().Add(e.crawlTimeout)

	for {
		status, err := e.PollStatus(ctx, taskID)
		if err != nil {
			zap.L().Warn("crawl: poll failed, retrying",
				zap.String("task_id", taskID),
				zap.Error(err),
			)
		} else {
			if onPoll != nil {
				onPoll(status)
			}
			if status.Finished {
				return status, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, eris.Wrap(ErrCrawlTimeout, fmt.Sprintf("task %s", taskID))
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "crawl: wait cancelled")
		case <-time.After(e.pollInterval):
		}
	}
}
