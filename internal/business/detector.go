// Package business resolves the audited domain to a physical business
// listing and derives the ordered market list an audit targets.
package business

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rankward/siteaudit/internal/model"
	"github.com/rankward/siteaudit/pkg/dataforseo"
)

const listingsEndpoint = "business_data/business_listings/search/live"

// Detector looks up business listings for a domain.
type Detector struct {
	dfs dataforseo.Client
	log *zap.Logger
}

func NewDetector(dfs dataforseo.Client, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{dfs: dfs, log: log}
}

type listingItem struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	AddressInfo struct {
		City        string `json:"city"`
		Region      string `json:"region"`
		CountryCode string `json:"country_code"`
	} `json:"address_info"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Rating    struct {
		Value      float64 `json:"value"`
		VotesCount int     `json:"votes_count"`
	} `json:"rating"`
}

type listingsResult struct {
	Items []listingItem `json:"items"`
}

// Detect returns the best listing match for the domain, or (nil, nil) when
// the provider has no record of it. Callers treat any error as non-fatal.
func (d *Detector) Detect(ctx context.Context, domain string) (*model.BusinessRecord, error) {
	body := []map[string]any{{
		"filters": []any{[]any{"domain", "=", domain}},
		"limit":   1,
	}}

	resp, err := d.dfs.Post(ctx, listingsEndpoint, body)
	if err != nil {
		return nil, eris.Wrapf(err, "business: listings lookup for %s", domain)
	}
	if len(resp.Tasks) == 0 || !resp.Tasks[0].OK() {
		return nil, eris.Errorf("business: listings task rejected for %s", domain)
	}
	if len(resp.Tasks[0].Result) == 0 {
		return nil, nil
	}

	var results []listingsResult
	if err := json.Unmarshal(resp.Tasks[0].Result, &results); err != nil {
		return nil, eris.Wrap(err, "business: decode listings result")
	}
	if len(results) == 0 || len(results[0].Items) == 0 {
		return nil, nil
	}

	item := results[0].Items[0]
	rec := &model.BusinessRecord{
		Name:      item.Title,
		Category:  item.Category,
		City:      item.AddressInfo.City,
		Region:    item.AddressInfo.Region,
		Country:   item.AddressInfo.CountryCode,
		Latitude:  item.Latitude,
		Longitude: item.Longitude,
		Rating:    item.Rating.Value,
		Reviews:   item.Rating.VotesCount,
	}
	d.log.Info("business listing matched",
		zap.String("domain", domain),
		zap.String("name", rec.Name),
		zap.String("city", rec.City))
	return rec, nil
}
