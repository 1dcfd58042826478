// Package scoring computes weighted category health scores from
// heterogeneous crawl signals, degrading to heuristics when Lighthouse data
// is unavailable.
package scoring

import (
	"math"

	"github.com/rankward/siteaudit/internal/model"
)

// categoryWeights is the fixed weight table for the overall score. Never
// changes at runtime.
var categoryWeights = map[string]float64{
	model.CategoryMeta:          1.0,
	model.CategoryContent:       1.2,
	model.CategoryLinks:         1.3,
	model.CategoryResources:     0.8,
	model.CategoryPerformance:   1.1,
	model.CategoryAccessibility: 0.8,
	model.CategoryTechnical:     1.2,
	model.CategorySEO:           1.1,
	model.CategorySocial:        0.6,
	model.CategorySecurity:      1.3,
}

// clamp bounds a raw score to [0, 100] and rounds to the nearest integer.
func clamp(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

func deduct(count int, perItem, cap float64) float64 {
	return math.Min(cap, float64(count)*perItem)
}

func ratioDeduct(count, total int, cap float64) float64 {
	if total == 0 {
		return 0
	}
	return math.Min(cap, 100*float64(count)/float64(total))
}

func label(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 70:
		return "good"
	case score >= 50:
		return "fair"
	default:
		return "poor"
	}
}

func category(score float64, issues int) model.CategoryScore {
	s := clamp(score)
	return model.CategoryScore{Score: s, Label: label(s), Issues: issues}
}

// Compute recomputes all ten category scores wholesale from crawl output.
// Performance, accessibility and SEO prefer a Lighthouse-reported score when
// available and fall back to heuristic formulas; the substitution is
// transparent to callers.
func Compute(cd *model.CrawlData) *model.CategoryScores {
	lh := cd.Lighthouse
	if lh == nil {
		lh = cd.LighthouseMobile
	}

	cats := map[string]model.CategoryScore{
		model.CategoryMeta:          scoreMeta(cd),
		model.CategoryContent:       scoreContent(cd),
		model.CategoryLinks:         scoreLinks(cd),
		model.CategoryResources:     scoreResources(cd),
		model.CategoryPerformance:   scorePerformance(cd, lh),
		model.CategoryAccessibility: scoreAccessibility(cd, lh),
		model.CategoryTechnical:     scoreTechnical(cd),
		model.CategorySEO:           scoreSEO(cd, lh),
		model.CategorySocial:        scoreSocial(cd),
		model.CategorySecurity:      scoreSecurity(cd),
	}

	return &model.CategoryScores{
		Categories: cats,
		Overall:    Overall(cats),
	}
}

// Overall computes the weight-normalized mean of the category scores.
func Overall(cats map[string]model.CategoryScore) int {
	var sum, weights float64
	for id, w := range categoryWeights {
		cat, ok := cats[id]
		if !ok {
			continue
		}
		sum += float64(cat.Score) * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return clamp(sum / weights)
}

func scoreMeta(cd *model.CrawlData) model.CategoryScore {
	total := len(cd.Pages)
	var missingTitle, missingDesc, badTitleLen, badDescLen, dupTitle, dupDesc int
	for _, p := range cd.Pages {
		title := p.Meta.Title
		desc := p.Meta.Description
		if title == "" {
			missingTitle++
		} else if len(title) < 30 || len(title) > 60 {
			badTitleLen++
		}
		if desc == "" {
			missingDesc++
		} else if len(desc) < 70 || len(desc) > 160 {
			badDescLen++
		}
		if p.Checks.DuplicateTitle {
			dupTitle++
		}
		if p.Checks.DuplicateDesc {
			dupDesc++
		}
	}

	score := 100.0
	score -= ratioDeduct(missingTitle, total, 30)
	score -= ratioDeduct(missingDesc, total, 25)
	score -= ratioDeduct(badTitleLen, total, 10)
	score -= ratioDeduct(badDescLen, total, 10)
	score -= ratioDeduct(dupTitle, total, 10)
	score -= ratioDeduct(dupDesc, total, 10)

	return category(score, missingTitle+missingDesc+badTitleLen+badDescLen+dupTitle+dupDesc)
}

func scoreContent(cd *model.CrawlData) model.CategoryScore {
	var thin, noH1, hardToRead int
	for _, p := range cd.Pages {
		if p.Meta.WordCount > 0 && p.Meta.WordCount < 300 {
			thin++
		}
		if len(p.Meta.H1) == 0 || p.Checks.NoH1Tag {
			noH1++
		}
		// Automated readability index above 14 needs college-level reading.
		if p.Meta.Readability > 14 {
			hardToRead++
		}
	}
	dupGroups := len(cd.DuplicateContent)

	score := 100.0
	score -= deduct(thin, 3, 30)
	score -= deduct(noH1, 2, 20)
	score -= deduct(dupGroups, 5, 25)
	score -= deduct(hardToRead, 1, 15)

	return category(score, thin+noH1+dupGroups+hardToRead)
}

func scoreLinks(cd *model.CrawlData) model.CategoryScore {
	var broken, redirects int
	for _, l := range cd.Links {
		if l.IsBroken {
			broken++
		}
		if l.IsRedirect {
			redirects++
		}
	}
	chains := len(cd.RedirectChains)

	score := 100.0
	score -= deduct(broken, 3, 40)
	score -= deduct(redirects, 0.5, 20)
	score -= deduct(chains, 2, 15)

	return category(score, broken+redirects+chains)
}

func scoreResources(cd *model.CrawlData) model.CategoryScore {
	var broken, oversized int
	for _, r := range cd.Resources {
		if r.StatusCode >= 400 {
			broken++
		}
		if r.Size > 1_000_000 {
			oversized++
		}
	}
	var noEncoding int
	for _, p := range cd.Pages {
		if p.Checks.NoContentEncoding {
			noEncoding++
		}
	}

	score := 100.0
	score -= deduct(broken, 2, 35)
	score -= deduct(oversized, 1, 25)
	score -= deduct(noEncoding, 1, 15)

	return category(score, broken+oversized+noEncoding)
}

func scorePerformance(cd *model.CrawlData, lh *model.LighthouseResult) model.CategoryScore {
	var slow int
	for _, p := range cd.Pages {
		if p.Timing.DurationTime > 5000 {
			slow++
		}
	}

	if lh != nil {
		return category(lh.Performance*100, slow)
	}

	// Heuristic fallback from crawl timings.
	score := 100.0
	if n := len(cd.Pages); n > 0 {
		var totalMs int
		for _, p := range cd.Pages {
			totalMs += p.Timing.DurationTime
		}
		avg := float64(totalMs) / float64(n)
		if avg > 3000 {
			score -= math.Min(40, (avg-3000)/100)
		}
	}
	score -= deduct(slow, 3, 30)

	return category(score, slow)
}

func scoreAccessibility(cd *model.CrawlData, lh *model.LighthouseResult) model.CategoryScore {
	total := len(cd.Pages)
	var noAlt, untitled int
	for _, p := range cd.Pages {
		if p.Checks.NoImageAlt {
			noAlt++
		}
		if p.Meta.Title == "" {
			untitled++
		}
	}

	if lh != nil {
		return category(lh.Accessibility*100, noAlt)
	}

	score := 100.0
	score -= ratioDeduct(noAlt, total, 45)
	score -= ratioDeduct(untitled, total, 15)

	return category(score, noAlt+untitled)
}

func scoreTechnical(cd *model.CrawlData) model.CategoryScore {
	total := len(cd.Pages)
	var noCanonical, errorPages int
	for _, p := range cd.Pages {
		if p.Checks.NoCanonical {
			noCanonical++
		}
		if p.StatusCode >= 400 {
			errorPages++
		}
	}
	nonIndexable := len(cd.NonIndexable)
	chains := len(cd.RedirectChains)

	score := 100.0
	score -= ratioDeduct(nonIndexable, total, 25)
	score -= deduct(noCanonical, 2, 25)
	score -= deduct(errorPages, 3, 30)
	score -= deduct(chains, 2, 10)

	return category(score, nonIndexable+noCanonical+errorPages+chains)
}

func scoreSEO(cd *model.CrawlData, lh *model.LighthouseResult) model.CategoryScore {
	total := len(cd.Pages)
	var noH1, missingDesc int
	for _, p := range cd.Pages {
		if len(p.Meta.H1) == 0 || p.Checks.NoH1Tag {
			noH1++
		}
		if p.Meta.Description == "" {
			missingDesc++
		}
	}
	dupTags := len(cd.DuplicateTags)
	nonIndexable := len(cd.NonIndexable)

	if lh != nil {
		return category(lh.SEO*100, noH1+dupTags)
	}

	score := 100.0
	score -= ratioDeduct(noH1, total, 25)
	score -= deduct(dupTags, 3, 25)
	score -= ratioDeduct(missingDesc, total, 20)
	score -= ratioDeduct(nonIndexable, total, 15)

	return category(score, noH1+dupTags+missingDesc+nonIndexable)
}

func scoreSocial(cd *model.CrawlData) model.CategoryScore {
	total := len(cd.Pages)
	if total == 0 {
		return category(100, 0)
	}
	var withTags int
	for _, p := range cd.Pages {
		if len(p.Meta.SocialMediaTags) > 0 {
			withTags++
		}
	}
	return category(100*float64(withTags)/float64(total), total-withTags)
}

func scoreSecurity(cd *model.CrawlData) model.CategoryScore {
	var httpPages, mixedContent int
	for _, p := range cd.Pages {
		if p.Checks.IsHTTP {
			httpPages++
		}
		if p.Checks.HTTPSToHTTPLinks {
			mixedContent++
		}
	}

	score := 100.0
	issues := mixedContent
	if httpPages > 0 {
		score -= 40
		issues += httpPages
	}
	score -= deduct(mixedContent, 3, 30)
	// Deduct only when the crawl actually checked the certificate.
	if cd.Summary != nil && cd.Summary.SSLValid != nil && !*cd.Summary.SSLValid {
		score -= 30
		issues++
	}

	return category(score, issues)
}
