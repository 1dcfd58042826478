package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankward/siteaudit/internal/cost"
	"github.com/rankward/siteaudit/pkg/dataforseo"
)

func TestCostClientAccumulates(t *testing.T) {
	inner := &mockDFS{
		PostFunc: func(_ context.Context, _ string, _ any) (*dataforseo.Response, error) {
			return &dataforseo.Response{StatusCode: dataforseo.StatusOK, Cost: 0.0125}, nil
		},
		GetFunc: func(_ context.Context, _ string) (*dataforseo.Response, error) {
			return &dataforseo.Response{StatusCode: dataforseo.StatusOK, Cost: 0.002}, nil
		},
	}

	tracker := cost.NewTracker()
	client := withCostTracking(inner, tracker)

	_, err := client.Post(context.Background(), "on_page/task_post", nil)
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "on_page/summary/abc")
	require.NoError(t, err)
	_, err = client.Post(context.Background(), "on_page/task_post", nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.027, tracker.Total(), 1e-9)

	breakdown := tracker.Breakdown()
	require.Len(t, breakdown, 2)
	assert.Equal(t, "on_page/task_post", breakdown[0].Endpoint)
	assert.InDelta(t, 0.025, breakdown[0].Cost, 1e-9)
}

// A task-level failure still carries an envelope cost; a transport failure
// returns no response and records nothing.
func TestCostClientErrorHandling(t *testing.T) {
	inner := &mockDFS{
		PostFunc: func(_ context.Context, endpoint string, _ any) (*dataforseo.Response, error) {
			if endpoint == "broken" {
				return nil, eris.New("connection reset by peer")
			}
			return &dataforseo.Response{
				StatusCode: dataforseo.StatusOK,
				Cost:       0.01,
				Tasks:      []dataforseo.Task{{StatusCode: 40501}},
			}, nil
		},
		GetFunc: func(_ context.Context, _ string) (*dataforseo.Response, error) {
			return nil, eris.New("connection reset by peer")
		},
	}

	tracker := cost.NewTracker()
	client := withCostTracking(inner, tracker)

	_, err := client.Post(context.Background(), "broken", nil)
	require.Error(t, err)
	assert.Zero(t, tracker.Total())

	_, err = client.Post(context.Background(), "task_error", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, tracker.Total(), 1e-9)
}
