// Package keywords mines crawled page text into a deduplicated, weighted,
// ranked keyword candidate list. Given identical crawl input and market list
// the output is byte-identical across runs.
package keywords

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rankward/siteaudit/internal/model"
)

// maxKeywords caps the final candidate list.
const maxKeywords = 100

// Extract mines crawled pages into the ranked keyword list for the given
// markets. The first market is primary; the rest are secondary.
func Extract(pages []model.CrawledPage, locations []string, domain string) []model.ExtractedKeyword {
	markets := ParseMarkets(locations)

	var primary *Market
	var secondary []Market
	if len(markets) > 0 {
		primary = &markets[0]
		secondary = markets[1:]
	}

	brand := DetectBrand(pages)
	locWords := locationWords(markets)
	terms := collectTerms(pages, brand, locWords)

	var candidates []model.ExtractedKeyword
	candidates = append(candidates, tierBare(terms)...)
	candidates = append(candidates, tierNearMe(terms)...)
	candidates = append(candidates, tierPrimaryCity(terms, primary)...)
	candidates = append(candidates, tierModifiers(terms)...)
	candidates = append(candidates, tierSecondaryCities(terms, secondary)...)
	candidates = append(candidates, tierLongTail(terms, primary, secondary)...)
	candidates = append(candidates, tierBranded(brand, primary)...)

	result := finalize(candidates)

	zap.L().Info("keywords: extraction complete",
		zap.String("domain", domain),
		zap.String("brand", brand),
		zap.Int("terms", len(terms)),
		zap.Int("keywords", len(result)),
	)
	return result
}

// finalize sorts all candidates by descending score (stable, so generation
// order breaks ties), deduplicates case-insensitively keeping the first
// occurrence, drops short leftovers and truncates to the cap.
func finalize(candidates []model.ExtractedKeyword) []model.ExtractedKeyword {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	seen := make(map[string]bool, len(candidates))
	out := make([]model.ExtractedKeyword, 0, maxKeywords)
	for _, kw := range candidates {
		norm := normalizeKeyword(kw.Keyword)
		if len(norm) < 3 || seen[norm] {
			continue
		}
		seen[norm] = true
		kw.Keyword = norm
		out = append(out, kw)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func normalizeKeyword(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(strings.ToLower(s)), " ")
}
