package scoring

import "github.com/rankward/siteaudit/internal/model"

// PageHealth scores a single page 0-100 from its status, metadata and
// timing signals. Independent of the category scores.
func PageHealth(p model.CrawledPage) int {
	score := 100.0

	switch {
	case p.StatusCode >= 500:
		score -= 40
	case p.StatusCode >= 400:
		score -= 30
	case p.StatusCode >= 300:
		score -= 10
	}

	if p.Meta.Title == "" {
		score -= 10
	} else if p.Checks.TitleTooLong || p.Checks.TitleTooShort {
		score -= 3
	}
	if p.Meta.Description == "" {
		score -= 8
	} else if p.Checks.DescTooLong || p.Checks.DescTooShort {
		score -= 2
	}
	if len(p.Meta.H1) == 0 || p.Checks.NoH1Tag {
		score -= 8
	}

	switch {
	case p.Meta.WordCount < 100:
		score -= 12
	case p.Meta.WordCount < 300:
		score -= 8
	}

	if p.Checks.NoImageAlt {
		score -= 5
	}
	if p.Checks.NoCanonical {
		score -= 4
	}
	if p.Checks.IsHTTP {
		score -= 15
	}
	if p.Checks.HTTPSToHTTPLinks {
		score -= 8
	}

	switch {
	case p.Timing.DurationTime > 5000:
		score -= 10
	case p.Timing.DurationTime > 3000:
		score -= 5
	}

	if len(p.Meta.SocialMediaTags) == 0 {
		score -= 4
	}

	return clamp(score)
}
