package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerAccumulates(t *testing.T) {
	tr := NewTracker()
	tr.Add("on_page/task_post", 0.0125)
	tr.Add("serp/google/organic/live/advanced", 0.15)
	tr.Add("serp/google/organic/live/advanced", 0.15)
	tr.Add("pagespeed", 0)

	assert.InDelta(t, 0.3125, tr.Total(), 1e-9)

	breakdown := tr.Breakdown()
	assert.Len(t, breakdown, 2)
	assert.Equal(t, "serp/google/organic/live/advanced", breakdown[0].Endpoint)
	assert.InDelta(t, 0.30, breakdown[0].Cost, 1e-9)
	assert.Equal(t, "on_page/task_post", breakdown[1].Endpoint)
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Add("serp/google/maps/live/advanced", 0.01)
		}()
	}
	wg.Wait()

	assert.InDelta(t, 0.5, tr.Total(), 1e-9)
}
