package keywords

import (
	"strings"

	"github.com/rankward/siteaudit/internal/model"
)

// Score multiplier per generation tier. Bare and "near me" variants rank
// highest; prepositional and city-state forms convert worst.
const (
	mulBare           = 1.0
	mulNearMe         = 1.5
	mulPrimaryCity    = 1.3
	mulModifier       = 0.8
	mulSecondaryCity  = 0.9
	mulInPrimaryCity  = 0.7
	mulCityStateAbbr  = 0.6
	mulInSecondaryCty = 0.5
)

// Tier term counts.
const (
	topBare      = 15
	topNearMe    = 15
	topPrimary   = 15
	topModifier  = 8
	topSecondary = 10
	topInPrimary = 10
	topCityState = 5
	topInCity    = 5
)

// prependModifiers read naturally before the term, appendModifiers after.
var (
	prependModifiers = []string{"best", "affordable", "cheap", "emergency"}
	appendModifiers  = []string{"cost", "price", "reviews"}
)

func topN(terms []scoredTerm, n int) []scoredTerm {
	if len(terms) < n {
		return terms
	}
	return terms[:n]
}

// tierBare emits the top terms unchanged.
func tierBare(terms []scoredTerm) []model.ExtractedKeyword {
	var out []model.ExtractedKeyword
	for _, t := range topN(terms, topBare) {
		out = append(out, model.ExtractedKeyword{
			Keyword: t.text,
			Score:   t.score * mulBare,
			Type:    model.KeywordService,
		})
	}
	return out
}

// tierNearMe appends "near me" to the top terms.
func tierNearMe(terms []scoredTerm) []model.ExtractedKeyword {
	var out []model.ExtractedKeyword
	for _, t := range topN(terms, topNearMe) {
		out = append(out, model.ExtractedKeyword{
			Keyword: t.text + " near me",
			Score:   t.score * mulNearMe,
			Type:    model.KeywordNearMe,
		})
	}
	return out
}

// tierPrimaryCity appends the primary market's city.
func tierPrimaryCity(terms []scoredTerm, primary *Market) []model.ExtractedKeyword {
	if primary == nil {
		return nil
	}
	city := strings.ToLower(primary.City)
	var out []model.ExtractedKeyword
	for _, t := range topN(terms, topPrimary) {
		out = append(out, model.ExtractedKeyword{
			Keyword: t.text + " " + city,
			Score:   t.score * mulPrimaryCity,
			Type:    model.KeywordLocal,
		})
	}
	return out
}

// tierModifiers crosses the top terms with the seven fixed modifiers.
func tierModifiers(terms []scoredTerm) []model.ExtractedKeyword {
	var out []model.ExtractedKeyword
	for _, t := range topN(terms, topModifier) {
		for _, mod := range prependModifiers {
			out = append(out, model.ExtractedKeyword{
				Keyword: mod + " " + t.text,
				Score:   t.score * mulModifier,
				Type:    model.KeywordModifier,
			})
		}
		for _, mod := range appendModifiers {
			out = append(out, model.ExtractedKeyword{
				Keyword: t.text + " " + mod,
				Score:   t.score * mulModifier,
				Type:    model.KeywordModifier,
			})
		}
	}
	return out
}

// tierSecondaryCities crosses the top terms with each secondary market city.
func tierSecondaryCities(terms []scoredTerm, secondary []Market) []model.ExtractedKeyword {
	var out []model.ExtractedKeyword
	for _, t := range topN(terms, topSecondary) {
		for _, m := range secondary {
			out = append(out, model.ExtractedKeyword{
				Keyword: t.text + " " + strings.ToLower(m.City),
				Score:   t.score * mulSecondaryCity,
				Type:    model.KeywordLocal,
			})
		}
	}
	return out
}

// tierLongTail emits "in city" and "city state-abbrev" variants.
func tierLongTail(terms []scoredTerm, primary *Market, secondary []Market) []model.ExtractedKeyword {
	var out []model.ExtractedKeyword

	if primary != nil {
		city := strings.ToLower(primary.City)
		for _, t := range topN(terms, topInPrimary) {
			out = append(out, model.ExtractedKeyword{
				Keyword: t.text + " in " + city,
				Score:   t.score * mulInPrimaryCity,
				Type:    model.KeywordLocal,
			})
		}
	}

	for _, m := range secondary {
		city := strings.ToLower(m.City)
		if abbr := m.StateAbbrev(); abbr != "" {
			for _, t := range topN(terms, topCityState) {
				out = append(out, model.ExtractedKeyword{
					Keyword: t.text + " " + city + " " + strings.ToLower(abbr),
					Score:   t.score * mulCityStateAbbr,
					Type:    model.KeywordLocal,
				})
			}
		}
		for _, t := range topN(terms, topInCity) {
			out = append(out, model.ExtractedKeyword{
				Keyword: t.text + " in " + city,
				Score:   t.score * mulInSecondaryCty,
				Type:    model.KeywordLocal,
			})
		}
	}
	return out
}

// tierBranded emits brand-anchored keywords when a brand was detected.
func tierBranded(brand string, primary *Market) []model.ExtractedKeyword {
	if brand == "" {
		return nil
	}
	b := strings.ToLower(brand)
	out := []model.ExtractedKeyword{
		{Keyword: b, Score: 5, Type: model.KeywordBranded},
		{Keyword: b + " reviews", Score: 4, Type: model.KeywordBranded},
		{Keyword: b + " near me", Score: 3.5, Type: model.KeywordBranded},
	}
	if primary != nil {
		out = append(out, model.ExtractedKeyword{
			Keyword: b + " " + strings.ToLower(primary.City),
			Score:   3,
			Type:    model.KeywordBranded,
		})
	}
	return out
}
