package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankward/siteaudit/internal/model"
)

func sampleAudits() []model.Audit {
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	done := started.Add(3 * time.Minute)
	return []model.Audit{
		{
			ID:          "11111111-aaaa-bbbb-cccc-000000000001",
			Domain:      "smithplumbing.com",
			Status:      model.AuditStatusComplete,
			Scores:      &model.CategoryScores{Overall: 82},
			PagesCount:  42,
			IssuesCount: 17,
			APICost:     0.31,
			StartedAt:   started,
			CompletedAt: &done,
		},
		{
			ID:        "11111111-aaaa-bbbb-cccc-000000000002",
			Domain:    "acmehvac.com",
			Status:    model.AuditStatusFailed,
			APICost:   0.05,
			StartedAt: started,
		},
		{
			ID:        "11111111-aaaa-bbbb-cccc-000000000003",
			Domain:    "joeslandscaping.com",
			Status:    model.AuditStatusCrawling,
			StartedAt: started,
		},
	}
}

func TestComputeAuditStats(t *testing.T) {
	s := computeAuditStats(sampleAudits())

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.InFlight)
	assert.InDelta(t, 82.0, s.AvgScore, 1e-9)
	assert.InDelta(t, 0.36, s.TotalCost, 1e-9)
	assert.InDelta(t, 180.0, s.AvgDurSecs, 1e-9)
}

func TestComputeAuditStats_Empty(t *testing.T) {
	s := computeAuditStats(nil)
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.AvgScore)
	assert.Zero(t, s.AvgDurSecs)
}

func TestFormatAuditsList(t *testing.T) {
	var buf bytes.Buffer
	formatAuditsList(&buf, sampleAudits())

	out := buf.String()
	assert.Contains(t, out, "DOMAIN")
	assert.Contains(t, out, "smithplumbing.com")
	assert.Contains(t, out, "82")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "11111111")
	assert.NotContains(t, out, "aaaa-bbbb")
}

func TestFormatAuditStats(t *testing.T) {
	var buf bytes.Buffer
	formatAuditStats(&buf, computeAuditStats(sampleAudits()))

	out := buf.String()
	assert.Contains(t, out, "Total audits:")
	assert.Contains(t, out, "Avg score:")
	assert.Contains(t, out, "$0.3600")
}

func TestTruncateID(t *testing.T) {
	require.Equal(t, "11111111", truncateID("11111111-aaaa-bbbb-cccc-000000000001"))
	require.Equal(t, "short", truncateID("short"))
}
