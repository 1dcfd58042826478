package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/rankward/siteaudit/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// development and tests; production deployments run Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS audits (
	id           TEXT PRIMARY KEY,
	business_id  TEXT NOT NULL,
	domain       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	result       TEXT,
	error        TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_audits_business_id ON audits(business_id);
CREATE INDEX IF NOT EXISTS idx_audits_status ON audits(status);
CREATE INDEX IF NOT EXISTS idx_audits_domain ON audits(domain);

CREATE TABLE IF NOT EXISTS checkpoints (
	audit_id TEXT PRIMARY KEY,
	phase    TEXT NOT NULL,
	data     TEXT NOT NULL,
	saved_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audit_pages (
	audit_id    TEXT NOT NULL,
	url         TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	health      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_pages_audit_id ON audit_pages(audit_id);

CREATE TABLE IF NOT EXISTS audit_keywords (
	audit_id TEXT NOT NULL,
	keyword  TEXT NOT NULL,
	score    REAL NOT NULL,
	type     TEXT NOT NULL,
	PRIMARY KEY (audit_id, keyword)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateAudit(ctx context.Context, req model.AuditRequest) (*model.Audit, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audits (id, business_id, domain, status, started_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, req.BusinessID, req.Domain, string(model.AuditStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert audit")
	}

	return &model.Audit{
		ID:         id,
		BusinessID: req.BusinessID,
		Domain:     req.Domain,
		Status:     model.AuditStatusPending,
		StartedAt:  now,
	}, nil
}

func (s *SQLiteStore) UpdateAuditStatus(ctx context.Context, auditID string, status model.AuditStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update audit status %s", auditID)
	}
	return checkAffected(res, auditID)
}

func (s *SQLiteStore) FailAudit(ctx context.Context, auditID string, reason string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, error = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		string(model.AuditStatusFailed), reason, now, now, auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail audit %s", auditID)
	}
	return checkAffected(res, auditID)
}

func (s *SQLiteStore) UpdateAuditResult(ctx context.Context, auditID string, result *model.AuditResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET result = ?, status = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		string(resultJSON), string(model.AuditStatusComplete), now, now, auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update audit result %s", auditID)
	}
	return checkAffected(res, auditID)
}

func checkAffected(res sql.Result, auditID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("audit not found: %s", auditID)
	}
	return nil
}

func (s *SQLiteStore) GetAudit(ctx context.Context, auditID string) (*model.Audit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, business_id, domain, status, result, error, started_at, completed_at FROM audits WHERE id = ?`,
		auditID,
	)
	a, err := scanAudit(row.Scan)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get audit %s", auditID)
	}
	return a, nil
}

func scanAudit(scan func(dest ...any) error) (*model.Audit, error) {
	var a model.Audit
	var resultJSON, errMsg sql.NullString
	var completedAt sql.NullTime

	if err := scan(&a.ID, &a.BusinessID, &a.Domain, &a.Status, &resultJSON, &errMsg, &a.StartedAt, &completedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		a.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	if resultJSON.Valid {
		if err := applyResult(&a, []byte(resultJSON.String)); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func (s *SQLiteStore) ListAudits(ctx context.Context, filter AuditFilter) ([]model.Audit, error) {
	query := `SELECT id, business_id, domain, status, result, error, started_at, completed_at FROM audits WHERE true`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.BusinessID != "" {
		query += ` AND business_id = ?`
		args = append(args, filter.BusinessID)
	}
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audits")
	}
	defer rows.Close()

	var audits []model.Audit
	for rows.Next() {
		a, err := scanAudit(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit")
		}
		audits = append(audits, *a)
	}
	return audits, eris.Wrap(rows.Err(), "sqlite: list audits iterate")
}

func (s *SQLiteStore) InvalidateInFlight(ctx context.Context, businessID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, error = ?, updated_at = ?
		 WHERE business_id = ? AND status IN ('pending', 'crawling', 'analyzing')`,
		string(model.AuditStatusFailed), "superseded by a newer audit", time.Now().UTC(), businessID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: invalidate in-flight audits for %s", businessID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, auditID string, phase string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (audit_id, phase, data, saved_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (audit_id) DO UPDATE SET phase = excluded.phase, data = excluded.data, saved_at = excluded.saved_at`,
		auditID, phase, string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save checkpoint")
}

func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, auditID string) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT audit_id, phase, data, saved_at FROM checkpoints WHERE audit_id = ?`,
		auditID,
	).Scan(&cp.AuditID, &cp.Phase, &data, &cp.SavedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: load checkpoint")
	}
	cp.Data = []byte(data)
	return &cp, nil
}

func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context, auditID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE audit_id = ?`,
		auditID,
	)
	return eris.Wrap(err, "sqlite: delete checkpoint")
}

func (s *SQLiteStore) ArchivePages(ctx context.Context, auditID string, pages []PageRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin archive tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM audit_pages WHERE audit_id = ?`, auditID); err != nil {
		return eris.Wrapf(err, "sqlite: clear archived pages for %s", auditID)
	}
	for _, p := range pages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO audit_pages (audit_id, url, status_code, health) VALUES (?, ?, ?, ?)`,
			auditID, p.URL, p.StatusCode, p.Health,
		); err != nil {
			return eris.Wrapf(err, "sqlite: archive page %s", p.URL)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit archive tx")
}

func (s *SQLiteStore) SaveKeywords(ctx context.Context, auditID string, keywords []model.ExtractedKeyword) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin keywords tx")
	}
	defer tx.Rollback()

	for _, kw := range keywords {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO audit_keywords (audit_id, keyword, score, type) VALUES (?, ?, ?, ?)
			 ON CONFLICT (audit_id, keyword) DO UPDATE SET score = excluded.score, type = excluded.type`,
			auditID, kw.Keyword, kw.Score, string(kw.Type),
		); err != nil {
			return eris.Wrapf(err, "sqlite: save keyword %q", kw.Keyword)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit keywords tx")
}
