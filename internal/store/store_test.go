package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankward/siteaudit/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testRequest() model.AuditRequest {
	return model.AuditRequest{
		BusinessID: "biz-123",
		Domain:     "smithplumbing.com",
		MaxPages:   100,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetAudit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		audit, err := s.CreateAudit(ctx, testRequest())
		require.NoError(t, err)
		assert.NotEmpty(t, audit.ID)
		assert.Equal(t, model.AuditStatusPending, audit.Status)
		assert.Equal(t, "smithplumbing.com", audit.Domain)

		got, err := s.GetAudit(ctx, audit.ID)
		require.NoError(t, err)
		assert.Equal(t, audit.ID, got.ID)
		assert.Equal(t, "biz-123", got.BusinessID)
		assert.Equal(t, model.AuditStatusPending, got.Status)
		assert.Nil(t, got.CompletedAt)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		audit, err := s.CreateAudit(ctx, testRequest())
		require.NoError(t, err)

		require.NoError(t, s.UpdateAuditStatus(ctx, audit.ID, model.AuditStatusCrawling))

		got, err := s.GetAudit(ctx, audit.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AuditStatusCrawling, got.Status)

		assert.Error(t, s.UpdateAuditStatus(ctx, "missing", model.AuditStatusCrawling))
	})

	t.Run("FailAudit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		audit, err := s.CreateAudit(ctx, testRequest())
		require.NoError(t, err)

		require.NoError(t, s.FailAudit(ctx, audit.ID, "crawl timed out"))

		got, err := s.GetAudit(ctx, audit.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AuditStatusFailed, got.Status)
		assert.Equal(t, "crawl timed out", got.Error)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("UpdateResult", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		audit, err := s.CreateAudit(ctx, testRequest())
		require.NoError(t, err)

		result := &model.AuditResult{
			Scores: &model.CategoryScores{
				Categories: map[string]model.CategoryScore{
					model.CategoryMeta: {Score: 82, Label: "good", Issues: 3},
				},
				Overall: 82,
			},
			PagesCount:  42,
			IssuesCount: 17,
			Tasks:       []string{"crawl", "keywords"},
			APICost:     0.42,
			CostLines: []model.CostLineItem{
				{Endpoint: "serp/google/organic/live/advanced", Cost: 0.30},
				{Endpoint: "on_page/task_post", Cost: 0.12},
			},
			Log: []model.LogEntry{
				{Level: model.LogSuccess, Message: "crawl submitted"},
			},
		}
		require.NoError(t, s.UpdateAuditResult(ctx, audit.ID, result))

		got, err := s.GetAudit(ctx, audit.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AuditStatusComplete, got.Status)
		assert.Equal(t, 42, got.PagesCount)
		assert.Equal(t, 17, got.IssuesCount)
		assert.Equal(t, []string{"crawl", "keywords"}, got.Tasks)
		assert.InDelta(t, 0.42, got.APICost, 1e-9)
		require.NotNil(t, got.Scores)
		assert.Equal(t, 82, got.Scores.Overall)
		require.Len(t, got.CostLines, 2)
		assert.Equal(t, "on_page/task_post", got.CostLines[1].Endpoint)
		require.Len(t, got.Log, 1)
		assert.Equal(t, "crawl submitted", got.Log[0].Message)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("ListAuditsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a1, err := s.CreateAudit(ctx, testRequest())
		require.NoError(t, err)
		_, err = s.CreateAudit(ctx, model.AuditRequest{BusinessID: "biz-other", Domain: "other.com"})
		require.NoError(t, err)
		require.NoError(t, s.UpdateAuditStatus(ctx, a1.ID, model.AuditStatusComplete))

		all, err := s.ListAudits(ctx, AuditFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		byBiz, err := s.ListAudits(ctx, AuditFilter{BusinessID: "biz-123"})
		require.NoError(t, err)
		require.Len(t, byBiz, 1)
		assert.Equal(t, a1.ID, byBiz[0].ID)

		byStatus, err := s.ListAudits(ctx, AuditFilter{Status: model.AuditStatusComplete})
		require.NoError(t, err)
		require.Len(t, byStatus, 1)
		assert.Equal(t, a1.ID, byStatus[0].ID)

		byDomain, err := s.ListAudits(ctx, AuditFilter{Domain: "other.com"})
		require.NoError(t, err)
		assert.Len(t, byDomain, 1)

		limited, err := s.ListAudits(ctx, AuditFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("InvalidateInFlight", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a1, err := s.CreateAudit(ctx, testRequest())
		require.NoError(t, err)
		a2, err := s.CreateAudit(ctx, testRequest())
		require.NoError(t, err)
		require.NoError(t, s.UpdateAuditStatus(ctx, a2.ID, model.AuditStatusCrawling))
		a3, err := s.CreateAudit(ctx, testRequest())
		require.NoError(t, err)
		require.NoError(t, s.UpdateAuditStatus(ctx, a3.ID, model.AuditStatusComplete))

		n, err := s.InvalidateInFlight(ctx, "biz-123")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := s.GetAudit(ctx, a1.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AuditStatusFailed, got.Status)
		assert.Contains(t, got.Error, "superseded")

		// Completed audits are left alone.
		got, err = s.GetAudit(ctx, a3.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AuditStatusComplete, got.Status)
	})

	t.Run("Checkpoints", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		cp, err := s.LoadCheckpoint(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, cp)

		require.NoError(t, s.SaveCheckpoint(ctx, "audit-1", "crawling", []byte(`{"pages":10}`)))
		require.NoError(t, s.SaveCheckpoint(ctx, "audit-1", "analyzing", []byte(`{"pages":42}`)))

		cp, err = s.LoadCheckpoint(ctx, "audit-1")
		require.NoError(t, err)
		require.NotNil(t, cp)
		assert.Equal(t, "analyzing", cp.Phase)
		assert.JSONEq(t, `{"pages":42}`, string(cp.Data))

		require.NoError(t, s.DeleteCheckpoint(ctx, "audit-1"))
		cp, err = s.LoadCheckpoint(ctx, "audit-1")
		require.NoError(t, err)
		assert.Nil(t, cp)
	})

	t.Run("ArchivePagesReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := []PageRow{
			{URL: "https://x.com/", StatusCode: 200, Health: 95},
			{URL: "https://x.com/old", StatusCode: 404, Health: 20},
		}
		require.NoError(t, s.ArchivePages(ctx, "audit-1", first))

		second := []PageRow{{URL: "https://x.com/", StatusCode: 200, Health: 97}}
		require.NoError(t, s.ArchivePages(ctx, "audit-1", second))
	})

	t.Run("SaveKeywordsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		kws := []model.ExtractedKeyword{
			{Keyword: "drain cleaning", Score: 9.5, Type: model.KeywordService},
			{Keyword: "drain cleaning near me", Score: 8.2, Type: model.KeywordNearMe},
		}
		require.NoError(t, s.SaveKeywords(ctx, "audit-1", kws))

		// Re-saving with updated scores must not error on the unique key.
		kws[0].Score = 10.1
		require.NoError(t, s.SaveKeywords(ctx, "audit-1", kws))
	})
}

func TestSQLiteStoreSuite(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
