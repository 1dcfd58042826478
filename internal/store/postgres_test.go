package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankward/siteaudit/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetAudit_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, business_id, domain, status, result, error, started_at, completed_at FROM audits WHERE id = \$1`).
		WithArgs("nonexistent-audit").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAudit(context.Background(), "nonexistent-audit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get audit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadCheckpoint_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT audit_id, phase, data, saved_at FROM checkpoints`).
		WithArgs("audit-1").
		WillReturnError(pgx.ErrNoRows)

	cp, err := s.LoadCheckpoint(context.Background(), "audit-1")
	require.NoError(t, err)
	assert.Nil(t, cp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAuditStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE audits SET status = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs(string(model.AuditStatusCrawling), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateAuditStatus(context.Background(), "missing", model.AuditStatusCrawling)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InvalidateInFlight(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE audits SET status = \$1, error = \$2, updated_at = \$3`).
		WithArgs(string(model.AuditStatusFailed), "superseded by a newer audit", pgxmock.AnyArg(), "biz-123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := s.InvalidateInFlight(context.Background(), "biz-123")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ArchivePages(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM audit_pages WHERE audit_id = \$1`).
		WithArgs("audit-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"audit_pages"}, []string{"audit_id", "url", "status_code", "health"}).
		WillReturnResult(2)

	pages := []PageRow{
		{URL: "https://x.com/", StatusCode: 200, Health: 95},
		{URL: "https://x.com/old", StatusCode: 404, Health: 20},
	}
	require.NoError(t, s.ArchivePages(context.Background(), "audit-1", pages))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateAudit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO audits`).
		WithArgs(pgxmock.AnyArg(), "biz-123", "smithplumbing.com", string(model.AuditStatusPending), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	audit, err := s.CreateAudit(context.Background(), testRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, audit.ID)
	assert.Equal(t, model.AuditStatusPending, audit.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
