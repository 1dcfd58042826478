package keywords

import (
	"strings"

	"github.com/rankward/siteaudit/internal/model"
)

// brandThreshold is the share of titled pages a title segment must appear in
// to be considered the brand name.
const brandThreshold = 0.35

// DetectBrand finds the site's brand name by splitting every page title on
// delimiters and counting segment frequency. The most frequent segment
// exceeding 35% of titled-page count wins; returns "" when none qualifies.
func DetectBrand(pages []model.CrawledPage) string {
	counts := make(map[string]int)
	display := make(map[string]string)
	order := make(map[string]int)
	titled := 0
	next := 0

	for _, page := range pages {
		title := strings.TrimSpace(page.Meta.Title)
		if title == "" {
			continue
		}
		titled++

		seen := make(map[string]bool)
		for _, seg := range titleDelimiters.Split(title, -1) {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			key := strings.ToLower(seg)
			if seen[key] {
				continue
			}
			seen[key] = true
			counts[key]++
			if _, ok := display[key]; !ok {
				display[key] = seg
				order[key] = next
				next++
			}
		}
	}

	if titled == 0 {
		return ""
	}

	best := ""
	bestCount := 0
	for key, n := range counts {
		if float64(n) <= float64(titled)*brandThreshold {
			continue
		}
		if n > bestCount || (n == bestCount && order[key] < order[best]) {
			best = key
			bestCount = n
		}
	}

	if best == "" {
		return ""
	}
	return display[best]
}
