package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rankward/siteaudit/internal/model"
)

// mapsItem mirrors one Maps SERP item.
type mapsItem struct {
	Type        string  `json:"type"`
	RankGroup   int     `json:"rank_group"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Rating      float64 `json:"rating_value"`
	RatingCount int     `json:"rating_votes_count"`
}

type mapsResult struct {
	Keyword string     `json:"keyword"`
	Items   []mapsItem `json:"items"`
}

// CheckMapsForMarkets queries Maps rankings at the business's coordinates for
// each market with at least one organic ranking, annotating keyword items
// with their Maps rank and surface comparison. Failures degrade per market.
func (c *Checker) CheckMapsForMarkets(ctx context.Context, results *model.SerpResults, domain, businessName string, lat, lng float64) {
	coordinate := fmt.Sprintf("%f,%f,%s", lat, lng, mapsZoom)

	for market, md := range results.Markets {
		ranked := rankedKeywordIndexes(md)
		if len(ranked) == 0 {
			continue
		}
		if len(ranked) > maxMapsKeywords {
			ranked = ranked[:maxMapsKeywords]
		}

		if err := c.checkMapsMarket(ctx, md, ranked, domain, businessName, coordinate); err != nil {
			zap.L().Warn("serp: maps check failed for market",
				zap.String("market", market),
				zap.Error(err),
			)
		}
	}
}

// rankedKeywordIndexes returns the indexes of organically ranked keywords,
// best position first.
func rankedKeywordIndexes(md *model.MarketData) []int {
	var idx []int
	for i, kw := range md.Keywords {
		if kw.Position > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return md.Keywords[idx[a]].Position < md.Keywords[idx[b]].Position
	})
	return idx
}

func (c *Checker) checkMapsMarket(ctx context.Context, md *model.MarketData, ranked []int, domain, businessName, coordinate string) error {
	tasks := make([]map[string]any, 0, len(ranked))
	for _, i := range ranked {
		tasks = append(tasks, map[string]any{
			"keyword":             md.Keywords[i].Keyword,
			"location_coordinate": coordinate,
			"language_code":       "en",
		})
	}

	resp, err := c.dfs.Post(ctx, mapsEndpoint, tasks)
	if err != nil {
		return err
	}

	for t, task := range resp.Tasks {
		if t >= len(ranked) {
			break
		}
		kw := &md.Keywords[ranked[t]]
		kw.MapsChecked = true
		md.MapsChecked++

		if task.OK() && len(task.Result) > 0 {
			var parsed []mapsResult
			if jsonErr := json.Unmarshal(task.Result, &parsed); jsonErr == nil && len(parsed) > 0 {
				annotateMaps(kw, parsed[0].Items, domain, businessName)
			}
		}

		if kw.MapsRank > 0 {
			md.MapsRanking++
		} else {
			md.MapsNotFound++
		}
		kw.SurfaceComparison = compareSurfaces(kw.Position > 0, kw.MapsRank > 0)
	}

	return nil
}

// annotateMaps finds the business inside the Maps items by URL host or
// listing name.
func annotateMaps(kw *model.MarketKeywordItem, items []mapsItem, domain, businessName string) {
	for _, item := range items {
		if item.Type != "maps_search" && item.Type != "maps_paid_item" && item.Type != "local_pack" {
			continue
		}
		owned := hostMatches(item.URL, domain) ||
			(businessName != "" && strings.EqualFold(strings.TrimSpace(item.Title), strings.TrimSpace(businessName)))
		if !owned {
			continue
		}
		if kw.MapsRank == 0 || item.RankGroup < kw.MapsRank {
			kw.MapsRank = item.RankGroup
			kw.MapsData = &model.MapsEntry{
				Name:    item.Title,
				Rating:  item.Rating,
				Reviews: item.RatingCount,
			}
		}
	}
}

// compareSurfaces cross-tabulates organic presence against Maps presence.
func compareSurfaces(organic, maps bool) model.SurfaceComparison {
	switch {
	case organic && maps:
		return model.SurfaceBothRanking
	case organic:
		return model.SurfaceOrganicOnly
	case maps:
		return model.SurfaceMapsOnly
	default:
		return model.SurfaceNeither
	}
}
