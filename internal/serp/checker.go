// Package serp queries organic and Maps rankings per market for extracted
// keywords, detects multi-URL cannibalization, and annotates comparative
// organic-vs-maps visibility.
package serp

import (
	"context"
	"encoding/json"
	"math"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rankward/siteaudit/internal/keywords"
	"github.com/rankward/siteaudit/internal/model"
	"github.com/rankward/siteaudit/pkg/dataforseo"
)

const (
	defaultDepth       = 20
	defaultKeywordCap  = 50
	topCompetitorRank  = 5
	maxCompetitors     = 3
	maxMapsKeywords    = 20
	mapsZoom           = "12z"
	organicEndpoint    = "serp/google/organic/live/advanced"
	mapsEndpoint       = "serp/google/maps/live/advanced"
	domainRankEndpoint = "dataforseo_labs/google/domain_rank_overview/live"
)

// Checker runs SERP lookups against the provider.
type Checker struct {
	dfs        dataforseo.Client
	depth      int
	keywordCap int
}

// Option configures a Checker.
type Option func(*Checker)

// WithDepth sets how many organic results are requested per keyword.
func WithDepth(depth int) Option {
	return func(c *Checker) {
		if depth > 0 {
			c.depth = depth
		}
	}
}

// WithKeywordCap limits how many keywords are checked per market.
func WithKeywordCap(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.keywordCap = n
		}
	}
}

// NewChecker creates a Checker.
func NewChecker(dfs dataforseo.Client, opts ...Option) *Checker {
	c := &Checker{dfs: dfs, depth: defaultDepth, keywordCap: defaultKeywordCap}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// organicItem mirrors one SERP item in an organic result set.
type organicItem struct {
	Type      string `json:"type"`
	RankGroup int    `json:"rank_group"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Domain    string `json:"domain"`
}

type organicResult struct {
	Keyword string        `json:"keyword"`
	Items   []organicItem `json:"items"`
}

// CheckLocalSerps queries organic rankings for the extracted keywords in each
// market. A market-level failure logs an error and yields an empty MarketData
// for that market; other markets proceed.
func (c *Checker) CheckLocalSerps(ctx context.Context, kws []model.ExtractedKeyword, domain string, markets []string) *model.SerpResults {
	results := &model.SerpResults{Markets: make(map[string]*model.MarketData, len(markets))}

	for _, market := range markets {
		filtered := FilterKeywordsForMarket(kws, market, markets)
		if len(filtered) > c.keywordCap {
			filtered = filtered[:c.keywordCap]
		}

		md, err := c.checkMarket(ctx, filtered, domain, market)
		if err != nil {
			zap.L().Error("serp: market check failed",
				zap.String("market", market),
				zap.Error(err),
			)
			md = &model.MarketData{Location: market}
		}
		results.Markets[market] = md
	}

	return results
}

// FilterKeywordsForMarket excludes keywords that embed another market's city
// name: a keyword generated for one city must not be queried in another
// city's market.
func FilterKeywordsForMarket(kws []model.ExtractedKeyword, market string, all []string) []model.ExtractedKeyword {
	city := strings.ToLower(keywords.ParseMarket(market).City)

	var otherCities []string
	for _, m := range all {
		other := strings.ToLower(keywords.ParseMarket(m).City)
		if other != "" && other != city {
			otherCities = append(otherCities, other)
		}
	}

	var out []model.ExtractedKeyword
	for _, kw := range kws {
		lower := strings.ToLower(kw.Keyword)
		embedded := false
		for _, other := range otherCities {
			if strings.Contains(lower, other) {
				embedded = true
				break
			}
		}
		if !embedded {
			out = append(out, kw)
		}
	}
	return out
}

func (c *Checker) checkMarket(ctx context.Context, kws []model.ExtractedKeyword, domain, market string) (*model.MarketData, error) {
	md := &model.MarketData{Location: market}
	if len(kws) == 0 {
		return md, nil
	}

	tasks := make([]map[string]any, 0, len(kws))
	for _, kw := range kws {
		tasks = append(tasks, map[string]any{
			"keyword":       kw.Keyword,
			"location_name": market,
			"language_code": "en",
			"depth":         c.depth,
		})
	}

	resp, err := c.dfs.Post(ctx, organicEndpoint, tasks)
	if err != nil && isLocationError(err) {
		// Retry once with an explicitly spaced location string.
		respaced := respaceLocation(market)
		zap.L().Warn("serp: location not recognized, retrying",
			zap.String("market", market),
			zap.String("respaced", respaced),
		)
		for i := range tasks {
			tasks[i]["location_name"] = respaced
		}
		resp, err = c.dfs.Post(ctx, organicEndpoint, tasks)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "serp: organic query for %s", market)
	}

	for i, task := range resp.Tasks {
		if i >= len(kws) {
			break
		}
		item := buildKeywordItem(kws[i], domain, task)
		md.Keywords = append(md.Keywords, item)
		accumulate(md, item)
	}

	return md, nil
}

// buildKeywordItem scans one task's SERP items for owned-domain matches and
// SERP features.
func buildKeywordItem(kw model.ExtractedKeyword, domain string, task dataforseo.Task) model.MarketKeywordItem {
	item := model.MarketKeywordItem{
		Keyword: kw.Keyword,
		Score:   kw.Score,
		Type:    kw.Type,
	}

	if !task.OK() || len(task.Result) == 0 {
		return item
	}
	var results []organicResult
	if err := json.Unmarshal(task.Result, &results); err != nil || len(results) == 0 {
		return item
	}

	for _, serpItem := range results[0].Items {
		switch serpItem.Type {
		case "local_pack", "map":
			item.HasLocalPack = true
			continue
		case "ai_overview":
			item.HasAIOverview = true
			continue
		case "organic":
		default:
			continue
		}

		if hostMatches(serpItem.URL, domain) {
			// Record every owned match, not just the best, so cannibalization
			// can be detected.
			item.SerpMatches = append(item.SerpMatches, model.SerpMatch{
				URL:      serpItem.URL,
				Position: serpItem.RankGroup,
				Title:    serpItem.Title,
			})
			continue
		}

		if serpItem.RankGroup <= topCompetitorRank && len(item.Competitors) < maxCompetitors {
			item.Competitors = append(item.Competitors, model.Competitor{
				Domain:   serpItem.Domain,
				Position: serpItem.RankGroup,
				Title:    serpItem.Title,
			})
		}
	}

	item.IsCannibalized = len(item.SerpMatches) > 1

	for _, match := range item.SerpMatches {
		if item.Position == 0 || match.Position < item.Position {
			item.Position = match.Position
			item.URL = match.URL
		}
	}
	if item.Position > 0 {
		item.ETV = int(math.Round(100 / float64(item.Position)))
	}

	return item
}

func accumulate(md *model.MarketData, item model.MarketKeywordItem) {
	switch {
	case item.Position == 1:
		md.Pos1++
	case item.Position >= 2 && item.Position <= 3:
		md.Pos2to3++
	case item.Position >= 4 && item.Position <= 10:
		md.Pos4to10++
	case item.Position >= 11 && item.Position <= 20:
		md.Pos11to20++
	}
	md.TotalETV += item.ETV
}

// hostMatches reports whether the URL's host equals the audited domain,
// ignoring a www prefix on either side.
func hostMatches(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	want := strings.TrimPrefix(strings.ToLower(domain), "www.")
	return host != "" && host == want
}

// isLocationError detects the provider's "location not recognized" rejection.
func isLocationError(err error) bool {
	var apiErr *dataforseo.APIError
	if !eris.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "location")
}

// respaceLocation rewrites "City,State,Country" as "City, State, Country".
func respaceLocation(market string) string {
	parts := strings.Split(market, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ", ")
}
