package business

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rankward/siteaudit/internal/keywords"
	"github.com/rankward/siteaudit/internal/model"
)

// defaultMaxMarkets caps the resolved market list when the caller does not
// supply a limit. Later sources are truncated.
const defaultMaxMarkets = 5

var titleCaser = cases.Title(language.AmericanEnglish)

// Path segments that signal a location landing page.
var locationPathMarkers = map[string]bool{
	"locations":      true,
	"location":       true,
	"service-areas":  true,
	"service-area":   true,
	"areas-we-serve": true,
	"cities":         true,
}

// citySlugPattern matches slugs like "austin-tx" or "round-rock-tx".
var citySlugPattern = regexp.MustCompile(`^([a-z]+(?:-[a-z]+)*)-([a-z]{2})$`)

// cityMentionPattern matches prose like "in Austin, TX" or "serving Round Rock, TX".
var cityMentionPattern = regexp.MustCompile(`\b(?:in|serving|near)\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)?),?\s+([A-Z]{2})\b`)

// marketList accumulates markets with case-insensitive city dedupe.
type marketList struct {
	markets []string
	seen    map[string]bool
	cap     int
}

func newMarketList(cap int) *marketList {
	return &marketList{seen: make(map[string]bool), cap: cap}
}

func (m *marketList) full() bool {
	return len(m.markets) >= m.cap
}

func (m *marketList) add(city, state, country string) {
	if m.full() || city == "" {
		return
	}
	key := strings.ToLower(strings.TrimSpace(city))
	if m.seen[key] {
		return
	}
	m.seen[key] = true
	if country == "" {
		country = "United States"
	}
	m.markets = append(m.markets, fmt.Sprintf("%s,%s,%s", strings.TrimSpace(city), strings.TrimSpace(state), country))
}

// ResolveMarkets builds the ordered market list for an audit. Tracked
// locations are authoritative; auto-detection only fills in behind them,
// deduplicated by normalized city. A non-positive maxMarkets falls back to
// the default cap of five.
func ResolveMarkets(tracked []model.TrackedLocation, biz *model.BusinessRecord, pages []model.CrawledPage, maxMarkets int) []string {
	if maxMarkets <= 0 {
		maxMarkets = defaultMaxMarkets
	}
	list := newMarketList(maxMarkets)

	for _, loc := range tracked {
		list.add(loc.City, loc.State, loc.Country)
	}

	if len(list.markets) == 0 && biz != nil && biz.City != "" {
		list.add(biz.City, biz.Region, countryName(biz.Country))
	}

	for _, page := range pages {
		if list.full() {
			break
		}
		city, state, ok := inferMarketFromPath(page.URL)
		if ok {
			list.add(city, state, "")
		}
	}

	if len(list.markets) == 0 {
		for _, page := range pages {
			for _, match := range cityMentionPattern.FindAllStringSubmatch(pageText(page), -1) {
				list.add(match[1], match[2], "")
			}
			if list.full() {
				break
			}
		}
	}

	return list.markets
}

// inferMarketFromPath recognizes location pages like /locations/austin-tx or
// a top-level /round-rock-tx slug.
func inferMarketFromPath(pageURL string) (city, state string, ok bool) {
	path := pageURL
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 {
		return "", "", false
	}
	// Drop the host.
	segments = segments[1:]

	underMarker := false
	for _, seg := range segments {
		seg = strings.ToLower(seg)
		if locationPathMarkers[seg] {
			underMarker = true
			continue
		}
		m := citySlugPattern.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		if !underMarker && !keywords.KnownStateAbbrev(m[2]) {
			continue
		}
		city = titleCaser.String(strings.ReplaceAll(m[1], "-", " "))
		state = strings.ToUpper(m[2])
		return city, state, true
	}
	return "", "", false
}

func pageText(p model.CrawledPage) string {
	parts := []string{p.Meta.Title, p.Meta.Description}
	parts = append(parts, p.Meta.H1...)
	return strings.Join(parts, " ")
}

// countryName expands the two-letter codes the listings API reports.
func countryName(code string) string {
	switch strings.ToUpper(code) {
	case "", "US", "USA":
		return "United States"
	case "CA":
		return "Canada"
	case "GB", "UK":
		return "United Kingdom"
	case "AU":
		return "Australia"
	default:
		return code
	}
}
