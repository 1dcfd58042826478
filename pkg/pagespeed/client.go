package pagespeed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5"

// Client performs PageSpeed Insights runs.
type Client interface {
	Run(ctx context.Context, pageURL, strategy string) (*Result, error)
}

// Result holds Lighthouse-shaped category scores plus percentile field
// metrics at URL and origin granularity.
type Result struct {
	Strategy      string
	Performance   float64
	Accessibility float64
	BestPractices float64
	SEO           float64
	FieldMetrics  map[string]float64
	OriginMetrics map[string]float64
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a PageSpeed Insights client. The API key is optional;
// unkeyed requests are subject to a stricter quota.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// runPagespeedResponse mirrors the subset of the v5 response we consume.
type runPagespeedResponse struct {
	LighthouseResult struct {
		Categories map[string]struct {
			Score float64 `json:"score"`
		} `json:"categories"`
	} `json:"lighthouseResult"`
	LoadingExperience       loadingExperience `json:"loadingExperience"`
	OriginLoadingExperience loadingExperience `json:"originLoadingExperience"`
}

type loadingExperience struct {
	Metrics map[string]struct {
		Percentile float64 `json:"percentile"`
	} `json:"metrics"`
}

func (le loadingExperience) percentiles() map[string]float64 {
	if len(le.Metrics) == 0 {
		return nil
	}
	out := make(map[string]float64, len(le.Metrics))
	for name, m := range le.Metrics {
		out[name] = m.Percentile
	}
	return out
}

func (c *httpClient) Run(ctx context.Context, pageURL, strategy string) (*Result, error) {
	q := url.Values{}
	q.Set("url", pageURL)
	q.Set("strategy", strategy)
	for _, cat := range []string{"performance", "accessibility", "best-practices", "seo"} {
		q.Add("category", cat)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runPagespeed?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("pagespeed: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed runPagespeedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "pagespeed: unmarshal response")
	}

	result := &Result{
		Strategy:      strategy,
		FieldMetrics:  parsed.LoadingExperience.percentiles(),
		OriginMetrics: parsed.OriginLoadingExperience.percentiles(),
	}
	for name, cat := range parsed.LighthouseResult.Categories {
		switch name {
		case "performance":
			result.Performance = cat.Score
		case "accessibility":
			result.Accessibility = cat.Score
		case "best-practices":
			result.BestPractices = cat.Score
		case "seo":
			result.SEO = cat.Score
		}
	}

	return result, nil
}
