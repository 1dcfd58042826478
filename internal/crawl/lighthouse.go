package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rankward/siteaudit/internal/model"
)

// lighthouseSummary mirrors the category scores of a Lighthouse report.
type lighthouseSummary struct {
	Categories struct {
		Performance   struct{ Score float64 `json:"score"` } `json:"performance"`
		Accessibility struct{ Score float64 `json:"score"` } `json:"accessibility"`
		BestPractices struct{ Score float64 `json:"score"` } `json:"best-practices"`
		SEO           struct{ Score float64 `json:"score"` } `json:"seo"`
	} `json:"categories"`
}

// FetchLighthouse polls for a Lighthouse result, bounded by attempt count
// rather than wall clock. Returns nil on timeout or malformed response;
// callers degrade to heuristic scoring.
func (e *Engine) FetchLighthouse(ctx context.Context, taskID string) *model.LighthouseResult {
	for attempt := 1; attempt <= e.lhAttempts; attempt++ {
		resp, err := e.dfs.Get(ctx, fmt.Sprintf("on_page/lighthouse/summary/%s", taskID))
		if err == nil && len(resp.Tasks) > 0 && resp.Tasks[0].OK() && len(resp.Tasks[0].Result) > 0 {
			var results []lighthouseSummary
			if jsonErr := json.Unmarshal(resp.Tasks[0].Result, &results); jsonErr != nil {
				zap.L().Warn("crawl: malformed lighthouse result",
					zap.String("task_id", taskID),
					zap.Error(jsonErr),
				)
				return nil
			}
			if len(results) > 0 {
				ls := results[0]
				return &model.LighthouseResult{
					Performance:   ls.Categories.Performance.Score,
					Accessibility: ls.Categories.Accessibility.Score,
					BestPractices: ls.Categories.BestPractices.Score,
					SEO:           ls.Categories.SEO.Score,
				}
			}
		}
		if err != nil {
			zap.L().Debug("crawl: lighthouse not ready",
				zap.String("task_id", taskID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(e.lhInterval):
		}
	}

	zap.L().Warn("crawl: lighthouse retrieval exhausted attempts",
		zap.String("task_id", taskID),
		zap.Int("attempts", e.lhAttempts),
	)
	return nil
}
