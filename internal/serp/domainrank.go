package serp

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/rankward/siteaudit/internal/model"
)

type domainRankResult struct {
	Items []struct {
		Metrics struct {
			Organic struct {
				Count  int     `json:"count"`
				ETV    float64 `json:"etv"`
				Pos1   int     `json:"pos_1"`
				Pos2_3 int     `json:"pos_2_3"`
			} `json:"organic"`
		} `json:"metrics"`
	} `json:"items"`
}

// DomainRankOverview fetches the labs-level organic visibility snapshot for
// the domain. Callers treat failure as non-fatal enrichment.
func (c *Checker) DomainRankOverview(ctx context.Context, domain string) (*model.DomainRankOverview, error) {
	body := []map[string]any{{
		"target":        domain,
		"language_code": "en",
	}}

	resp, err := c.dfs.Post(ctx, domainRankEndpoint, body)
	if err != nil {
		return nil, eris.Wrap(err, "serp: domain rank overview")
	}
	if len(resp.Tasks) == 0 || !resp.Tasks[0].OK() || len(resp.Tasks[0].Result) == 0 {
		return nil, eris.New("serp: domain rank overview unavailable")
	}

	var results []domainRankResult
	if err := json.Unmarshal(resp.Tasks[0].Result, &results); err != nil {
		return nil, eris.Wrap(err, "serp: decode domain rank overview")
	}
	if len(results) == 0 || len(results[0].Items) == 0 {
		return nil, eris.New("serp: empty domain rank overview")
	}

	organic := results[0].Items[0].Metrics.Organic
	return &model.DomainRankOverview{
		OrganicKeywords: organic.Count,
		OrganicTraffic:  organic.ETV,
		OrganicPos1to3:  organic.Pos1 + organic.Pos2_3,
	}, nil
}
