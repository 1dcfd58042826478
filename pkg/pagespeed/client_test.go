package pagespeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
	"lighthouseResult": {
		"categories": {
			"performance": {"score": 0.83},
			"accessibility": {"score": 0.91},
			"best-practices": {"score": 0.75},
			"seo": {"score": 0.97}
		}
	},
	"loadingExperience": {
		"metrics": {
			"LARGEST_CONTENTFUL_PAINT_MS": {"percentile": 2400},
			"CUMULATIVE_LAYOUT_SHIFT_SCORE": {"percentile": 4},
			"INTERACTION_TO_NEXT_PAINT": {"percentile": 180}
		}
	},
	"originLoadingExperience": {
		"metrics": {
			"LARGEST_CONTENTFUL_PAINT_MS": {"percentile": 2600}
		}
	}
}`

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/runPagespeed", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "https://example.com", q.Get("url"))
		assert.Equal(t, "mobile", q.Get("strategy"))
		assert.ElementsMatch(t, []string{"performance", "accessibility", "best-practices", "seo"}, q["category"])
		assert.Equal(t, "test-key", q.Get("key"))
		w.Write([]byte(sampleResponse))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", WithBaseURL(srv.URL))
	res, err := c.Run(context.Background(), "https://example.com", "mobile")
	require.NoError(t, err)

	assert.Equal(t, "mobile", res.Strategy)
	assert.InDelta(t, 0.83, res.Performance, 1e-9)
	assert.InDelta(t, 0.91, res.Accessibility, 1e-9)
	assert.InDelta(t, 0.75, res.BestPractices, 1e-9)
	assert.InDelta(t, 0.97, res.SEO, 1e-9)
	assert.InDelta(t, 2400, res.FieldMetrics["LARGEST_CONTENTFUL_PAINT_MS"], 1e-9)
	assert.InDelta(t, 2600, res.OriginMetrics["LARGEST_CONTENTFUL_PAINT_MS"], 1e-9)
}

func TestRunHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Quota exceeded"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("", WithBaseURL(srv.URL))
	_, err := c.Run(context.Background(), "https://example.com", "desktop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
