package keywords

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rankward/siteaudit/internal/model"
)

// Weight per term source. Title segments outrank headings, which outrank
// URL slugs and description phrases.
const (
	weightTitleSegment = 3.0
	weightH1           = 2.5
	weightH2           = 1.5
	weightURLSegment   = 1.0
	weightDescPhrase   = 0.5
)

// titleDelimiters splits page titles into segments.
var titleDelimiters = regexp.MustCompile(`\s*[|–—:·]\s*`)

// genericTerms is the fixed stoplist of terms that never make useful keywords.
var genericTerms = map[string]bool{
	"home": true, "homepage": true, "about": true, "about us": true,
	"contact": true, "contact us": true, "services": true, "our services": true,
	"blog": true, "news": true, "faq": true, "faqs": true,
	"privacy": true, "privacy policy": true, "terms": true,
	"terms of service": true, "sitemap": true, "login": true, "sign up": true,
	"404": true, "page not found": true, "search": true, "gallery": true,
	"testimonials": true, "reviews": true, "careers": true, "index": true,
	"welcome": true, "untitled": true,
}

var (
	numberOnly       = regexp.MustCompile(`^\d+$`)
	nonTermChars     = regexp.MustCompile(`[^a-z0-9\s'&-]`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	descPunctuation  = regexp.MustCompile(`[.,;:!?]`)
	urlSegmentBreaks = strings.NewReplacer("-", " ", "_", " ")
)

// scoredTerm is one candidate term with its accumulated weight and
// first-seen order for deterministic tie-breaking.
type scoredTerm struct {
	text  string
	score float64
	order int
}

// cleanTerm normalizes a raw candidate: lowercases, strips the brand name and
// location words, drops non-term characters, collapses whitespace. Returns ""
// when nothing useful remains.
func cleanTerm(raw, brand string, locWords map[string]bool) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return ""
	}

	if brand != "" {
		t = strings.ReplaceAll(t, strings.ToLower(brand), " ")
	}
	t = nonTermChars.ReplaceAllString(t, " ")

	var kept []string
	for _, word := range strings.Fields(t) {
		if locWords[word] {
			continue
		}
		kept = append(kept, word)
	}
	t = strings.Join(kept, " ")
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(t), " ")
}

// acceptTerm rejects terms too short, numeric-only, on the generic
// stoplist, or longer than five words.
func acceptTerm(t string) bool {
	if len(t) < 3 {
		return false
	}
	if numberOnly.MatchString(t) {
		return false
	}
	if genericTerms[t] {
		return false
	}
	if len(strings.Fields(t)) > 5 {
		return false
	}
	return true
}

// termAccumulator builds the weighted score map preserving first-seen order.
type termAccumulator struct {
	terms map[string]*scoredTerm
	next  int
}

func newTermAccumulator() *termAccumulator {
	return &termAccumulator{terms: make(map[string]*scoredTerm)}
}

func (a *termAccumulator) add(raw string, weight float64, brand string, locWords map[string]bool) {
	t := cleanTerm(raw, brand, locWords)
	if t == "" || !acceptTerm(t) {
		return
	}
	if existing, ok := a.terms[t]; ok {
		existing.score += weight
		return
	}
	a.terms[t] = &scoredTerm{text: t, score: weight, order: a.next}
	a.next++
}

// sorted returns the terms by descending score, first-seen order on ties.
func (a *termAccumulator) sorted() []scoredTerm {
	out := make([]scoredTerm, 0, len(a.terms))
	for _, t := range a.terms {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})
	return out
}

// collectTerms mines every page's title segments, headings, URL path and
// description into the accumulator.
func collectTerms(pages []model.CrawledPage, brand string, locWords map[string]bool) []scoredTerm {
	acc := newTermAccumulator()

	for _, page := range pages {
		for _, seg := range titleDelimiters.Split(page.Meta.Title, -1) {
			acc.add(seg, weightTitleSegment, brand, locWords)
		}
		for _, h1 := range page.Meta.H1 {
			acc.add(h1, weightH1, brand, locWords)
		}
		for _, h2 := range page.Meta.H2 {
			acc.add(h2, weightH2, brand, locWords)
		}
		for _, seg := range urlPathSegments(page.URL) {
			acc.add(seg, weightURLSegment, brand, locWords)
		}
		for _, phrase := range descriptionPhrases(page.Meta.Description) {
			acc.add(phrase, weightDescPhrase, brand, locWords)
		}
	}

	return acc.sorted()
}

// urlPathSegments humanizes the path portion of a URL into candidate terms.
func urlPathSegments(rawURL string) []string {
	path := rawURL
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
	}
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[idx+1:]
	} else {
		return nil
	}
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}

	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if idx := strings.LastIndexByte(seg, '.'); idx > 0 {
			seg = seg[:idx]
		}
		out = append(out, urlSegmentBreaks.Replace(seg))
	}
	return out
}

// descriptionPhrases splits a meta description on punctuation and keeps
// sub-phrases of at most 4 words.
func descriptionPhrases(desc string) []string {
	if desc == "" {
		return nil
	}
	var out []string
	for _, phrase := range descPunctuation.Split(desc, -1) {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		if len(strings.Fields(phrase)) <= 4 {
			out = append(out, phrase)
		}
	}
	return out
}
