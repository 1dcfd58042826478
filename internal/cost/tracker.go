// Package cost accumulates provider-reported API spend across an audit run.
package cost

import (
	"sort"
	"sync"

	"github.com/rankward/siteaudit/internal/model"
)

// Tracker sums provider-reported costs per endpoint. Safe for concurrent use;
// enrichment waves record costs from multiple goroutines.
type Tracker struct {
	mu    sync.Mutex
	spent map[string]float64
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{spent: make(map[string]float64)}
}

// Add records spend against an endpoint. Zero-cost calls are ignored.
func (t *Tracker) Add(endpoint string, cost float64) {
	if cost == 0 {
		return
	}
	t.mu.Lock()
	t.spent[endpoint] += cost
	t.mu.Unlock()
}

// Total returns the accumulated spend across all endpoints.
func (t *Tracker) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total float64
	for _, v := range t.spent {
		total += v
	}
	return total
}

// Breakdown returns per-endpoint spend sorted descending by cost, ties broken
// by endpoint name for stable output. The result is persisted with the audit.
func (t *Tracker) Breakdown() []model.CostLineItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	items := make([]model.CostLineItem, 0, len(t.spent))
	for endpoint, cost := range t.spent {
		items = append(items, model.CostLineItem{Endpoint: endpoint, Cost: cost})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Cost != items[j].Cost {
			return items[i].Cost > items[j].Cost
		}
		return items[i].Endpoint < items[j].Endpoint
	})
	return items
}
