package model

// Score category identifiers.
const (
	CategoryMeta          = "meta"
	CategoryContent       = "content"
	CategoryLinks         = "links"
	CategoryResources     = "resources"
	CategoryPerformance   = "performance"
	CategoryAccessibility = "accessibility"
	CategoryTechnical     = "technical"
	CategorySEO           = "seo"
	CategorySocial        = "social"
	CategorySecurity      = "security"
)

// AllCategories lists the ten score categories in display order.
func AllCategories() []string {
	return []string{
		CategoryMeta,
		CategoryContent,
		CategoryLinks,
		CategoryResources,
		CategoryPerformance,
		CategoryAccessibility,
		CategoryTechnical,
		CategorySEO,
		CategorySocial,
		CategorySecurity,
	}
}

// CategoryScore is one category's health score.
type CategoryScore struct {
	Score  int    `json:"score"`
	Label  string `json:"label"`
	Issues int    `json:"issues"`
}

// CategoryScores maps the ten category IDs to their scores plus the
// weight-normalized overall.
type CategoryScores struct {
	Categories map[string]CategoryScore `json:"categories"`
	Overall    int                      `json:"_overall"`
}

// Clone returns a deep copy. Used by the what-if impact estimator so the
// original is never mutated.
func (cs *CategoryScores) Clone() *CategoryScores {
	if cs == nil {
		return nil
	}
	out := &CategoryScores{
		Categories: make(map[string]CategoryScore, len(cs.Categories)),
		Overall:    cs.Overall,
	}
	for k, v := range cs.Categories {
		out.Categories[k] = v
	}
	return out
}

// Fix is one proposed remediation with its category-scoped point delta.
type Fix struct {
	Category string  `json:"category"`
	Points   float64 `json:"points"`
	Title    string  `json:"title,omitempty"`
}
