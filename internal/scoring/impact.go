package scoring

import "github.com/rankward/siteaudit/internal/model"

// EstimateImpact projects the overall score after applying the given fixes.
// Each fix adds its point delta to its category, clamped to [0, 100], and the
// weighted overall is recomputed. The input is never mutated; fixes naming
// unknown categories are ignored.
func EstimateImpact(current *model.CategoryScores, fixes []model.Fix) int {
	if current == nil {
		return 0
	}
	projected := current.Clone()
	for _, fix := range fixes {
		cat, ok := projected.Categories[fix.Category]
		if !ok {
			continue
		}
		cat.Score = clamp(float64(cat.Score) + fix.Points)
		cat.Label = label(cat.Score)
		projected.Categories[fix.Category] = cat
	}
	return Overall(projected.Categories)
}
