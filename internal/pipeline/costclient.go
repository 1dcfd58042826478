package pipeline

import (
	"context"

	"github.com/rankward/siteaudit/internal/cost"
	"github.com/rankward/siteaudit/pkg/dataforseo"
)

// costClient decorates a DataForSEO client, recording the provider-reported
// cost of every successful call against the per-audit tracker.
type costClient struct {
	inner   dataforseo.Client
	tracker *cost.Tracker
}

func withCostTracking(inner dataforseo.Client, tracker *cost.Tracker) dataforseo.Client {
	return &costClient{inner: inner, tracker: tracker}
}

func (c *costClient) Post(ctx context.Context, endpoint string, body any) (*dataforseo.Response, error) {
	resp, err := c.inner.Post(ctx, endpoint, body)
	if resp != nil {
		c.tracker.Add(endpoint, resp.Cost)
	}
	return resp, err
}

func (c *costClient) Get(ctx context.Context, endpoint string) (*dataforseo.Response, error) {
	resp, err := c.inner.Get(ctx, endpoint)
	if resp != nil {
		c.tracker.Add(endpoint, resp.Cost)
	}
	return resp, err
}
