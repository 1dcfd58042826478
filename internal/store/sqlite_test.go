package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankward/siteaudit/internal/model"
)

func TestSQLite_OpenAndMigrateTwice(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	// Migration is idempotent.
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Close())

	// Reopening the same file sees existing data.
	st, err = NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(context.Background()))

	audit, err := st.CreateAudit(context.Background(), testRequest())
	require.NoError(t, err)

	got, err := st.GetAudit(context.Background(), audit.ID)
	require.NoError(t, err)
	assert.Equal(t, audit.ID, got.ID)
}

func TestSQLite_KeywordUpsertUpdatesScore(t *testing.T) {
	st := newTestSQLite(t).(*SQLiteStore)
	ctx := context.Background()

	require.NoError(t, st.SaveKeywords(ctx, "audit-1", []model.ExtractedKeyword{
		{Keyword: "water heater repair", Score: 5, Type: model.KeywordService},
	}))
	require.NoError(t, st.SaveKeywords(ctx, "audit-1", []model.ExtractedKeyword{
		{Keyword: "water heater repair", Score: 7.5, Type: model.KeywordService},
	}))

	var score float64
	err := st.db.QueryRowContext(ctx,
		`SELECT score FROM audit_keywords WHERE audit_id = ? AND keyword = ?`,
		"audit-1", "water heater repair",
	).Scan(&score)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, score, 1e-9)

	var count int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_keywords`).Scan(&count))
	assert.Equal(t, 1, count)
}
