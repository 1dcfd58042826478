package crawl

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rankward/siteaudit/internal/model"
)

// reportSpec describes one paginated report endpoint and how its items fold
// into the CrawlData aggregate. A fetch or decode failure substitutes the
// zero value; it never aborts the whole fetch.
type reportSpec struct {
	name     string
	endpoint string
	assign   func(cd *model.CrawlData, raw json.RawMessage) error
}

// itemsResult is the common result wrapper: each result object carries an
// items array of the endpoint-specific record.
type itemsResult[T any] struct {
	ItemsCount int `json:"items_count"`
	Items      []T `json:"items"`
}

func decodeItems[T any](raw json.RawMessage) ([]T, error) {
	var results []itemsResult[T]
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, err
	}
	var items []T
	for _, r := range results {
		items = append(items, r.Items...)
	}
	return items, nil
}

func assignItems[T any](set func(cd *model.CrawlData, items []T)) func(*model.CrawlData, json.RawMessage) error {
	return func(cd *model.CrawlData, raw json.RawMessage) error {
		items, err := decodeItems[T](raw)
		if err != nil {
			return err
		}
		set(cd, items)
		return nil
	}
}

var reportSpecs = []reportSpec{
	{"pages", "on_page/pages", assignItems(func(cd *model.CrawlData, items []model.CrawledPage) { cd.Pages = items })},
	{"resources", "on_page/resources", assignItems(func(cd *model.CrawlData, items []model.Resource) { cd.Resources = items })},
	{"links", "on_page/links", assignItems(func(cd *model.CrawlData, items []model.Link) { cd.Links = items })},
	{"duplicate_tags", "on_page/duplicate_tags", assignItems(func(cd *model.CrawlData, items []model.DuplicateTagGroup) { cd.DuplicateTags = items })},
	{"duplicate_content", "on_page/duplicate_content", assignItems(func(cd *model.CrawlData, items []model.DuplicateContentGroup) { cd.DuplicateContent = items })},
	{"non_indexable", "on_page/non_indexable", assignItems(func(cd *model.CrawlData, items []model.NonIndexablePage) { cd.NonIndexable = items })},
	{"redirect_chains", "on_page/redirect_chains", assignItems(func(cd *model.CrawlData, items []model.RedirectChain) { cd.RedirectChains = items })},
}

// FetchReports fetches the seven report endpoints sequentially (rate-limited,
// not parallel) and folds them into a CrawlData partial. A failure on any
// single endpoint logs a warning and leaves that section empty.
func (e *Engine) FetchReports(ctx context.Context, taskID string) (*model.CrawlData, error) {
	cd := &model.CrawlData{}

	for _, spec := range reportSpecs {
		if err := e.limiter.Wait(ctx); err != nil {
			return cd, eris.Wrap(err, "crawl: fetch reports cancelled")
		}

		if err := e.fetchReport(ctx, taskID, spec, cd); err != nil {
			zap.L().Warn("crawl: report fetch failed, substituting empty",
				zap.String("report", spec.name),
				zap.String("task_id", taskID),
				zap.Error(err),
			)
		}
	}

	return cd, nil
}

func (e *Engine) fetchReport(ctx context.Context, taskID string, spec reportSpec, cd *model.CrawlData) error {
	body := []map[string]any{{
		"id":    taskID,
		"limit": 1000,
	}}

	resp, err := e.dfs.Post(ctx, spec.endpoint, body)
	if err != nil {
		return err
	}
	if len(resp.Tasks) == 0 || !resp.Tasks[0].OK() {
		return eris.Errorf("crawl: %s report unavailable", spec.name)
	}
	if len(resp.Tasks[0].Result) == 0 {
		return nil
	}
	if err := spec.assign(cd, resp.Tasks[0].Result); err != nil {
		return eris.Wrapf(err, "crawl: decode %s report", spec.name)
	}
	return nil
}
