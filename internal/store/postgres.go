package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/rankward/siteaudit/internal/db"
	"github.com/rankward/siteaudit/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_audit":        `INSERT INTO audits (id, business_id, domain, status, started_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_audit_status": `UPDATE audits SET status = $1, updated_at = $2 WHERE id = $3`,
	"get_audit":           `SELECT id, business_id, domain, status, result, error, started_at, completed_at FROM audits WHERE id = $1`,
	"save_checkpoint":     `INSERT INTO checkpoints (audit_id, phase, data, saved_at) VALUES ($1, $2, $3, $4) ON CONFLICT (audit_id) DO UPDATE SET phase = $2, data = $3, saved_at = $4`,
	"load_checkpoint":     `SELECT audit_id, phase, data, saved_at FROM checkpoints WHERE audit_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS audits (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	business_id  TEXT NOT NULL,
	domain       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	result       JSONB,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_audits_business_id ON audits(business_id);
CREATE INDEX IF NOT EXISTS idx_audits_status ON audits(status);
CREATE INDEX IF NOT EXISTS idx_audits_domain ON audits(domain);
CREATE INDEX IF NOT EXISTS idx_audits_business_status ON audits(business_id, status);

CREATE TABLE IF NOT EXISTS checkpoints (
	audit_id TEXT PRIMARY KEY,
	phase    TEXT NOT NULL,
	data     JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
	score    DOUBLE PRECISION NOT NULL,
	type     TEXT NOT NULL,
	PRIMARY KEY (audit_id, keyword)
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateAudit(ctx context.Context, req model.AuditRequest) (*model.Audit, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audits (id, business_id, domain, status, started_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, req.BusinessID, req.Domain, string(model.AuditStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert audit")
	}

	return &model.Audit{
		ID:         id,
		BusinessID: req.BusinessID,
		Domain:     req.Domain,
		Status:     model.AuditStatusPending,
		StartedAt:  now,
	}, nil
}

func (s *PostgresStore) UpdateAuditStatus(ctx context.Context, auditID string, status model.AuditStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update audit status %s", auditID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("audit not found: %s", auditID)
	}
	return nil
}

func (s *PostgresStore) FailAudit(ctx context.Context, auditID string, reason string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, error = $2, updated_at = $3, completed_at = $3 WHERE id = $4`,
		string(model.AuditStatusFailed), reason, now, auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail audit %s", auditID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("audit not found: %s", auditID)
	}
	return nil
}

func (s *PostgresStore) UpdateAuditResult(ctx context.Context, auditID string, result *model.AuditResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET result = $1, status = $2, updated_at = $3, completed_at = $3 WHERE id = $4`,
		resultJSON, string(model.AuditStatusComplete), now, auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update audit result %s", auditID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("audit not found: %s", auditID)
	}
	return nil
}

// applyResult projects the persisted result JSON onto the audit record.
func applyResult(a *model.Audit, resultJSON []byte) error {
	var result model.AuditResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return err
	}
	a.Scores = result.Scores
	a.PagesCount = result.PagesCount
	a.IssuesCount = result.IssuesCount
	a.Tasks = result.Tasks
	a.APICost = result.APICost
	a.CostLines = result.CostLines
	a.Log = result.Log
	return nil
}

func (s *PostgresStore) GetAudit(ctx context.Context, auditID string) (*model.Audit, error) {
	var a model.Audit
	var resultJSON *[]byte
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, business_id, domain, status, result, error, started_at, completed_at FROM audits WHERE id = $1`,
		auditID,
	).Scan(&a.ID, &a.BusinessID, &a.Domain, &a.Status, &resultJSON, &errMsg, &a.StartedAt, &a.CompletedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get audit %s", auditID)
	}

	if errMsg != nil {
		a.Error = *errMsg
	}
	if resultJSON != nil {
		if err := applyResult(&a, *resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &a, nil
}

func (s *PostgresStore) ListAudits(ctx context.Context, filter AuditFilter) ([]model.Audit, error) {
	query := `SELECT id, business_id, domain, status, result, error, started_at, completed_at FROM audits WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.BusinessID != "" {
		query += fmt.Sprintf(` AND business_id = $%d`, argIdx)
		args = append(args, filter.BusinessID)
		argIdx++
	}
	if filter.Domain != "" {
		query += fmt.Sprintf(` AND domain = $%d`, argIdx)
		args = append(args, filter.Domain)
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audits")
	}
	defer rows.Close()

	var audits []model.Audit
	for rows.Next() {
		var a model.Audit
		var resultJSON *[]byte
		var errMsg *string

		if err := rows.Scan(&a.ID, &a.BusinessID, &a.Domain, &a.Status, &resultJSON, &errMsg, &a.StartedAt, &a.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit")
		}
		if errMsg != nil {
			a.Error = *errMsg
		}
		if resultJSON != nil {
			if err := applyResult(&a, *resultJSON); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result")
			}
		}
		audits = append(audits, a)
	}
	return audits, eris.Wrap(rows.Err(), "postgres: list audits iterate")
}

func (s *PostgresStore) InvalidateInFlight(ctx context.Context, businessID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, error = $2, updated_at = $3
		 WHERE business_id = $4 AND status IN ('pending', 'crawling', 'analyzing')`,
		string(model.AuditStatusFailed), "superseded by a newer audit", time.Now().UTC(), businessID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: invalidate in-flight audits for %s", businessID)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) SaveCheckpoint(ctx context.Context, auditID string, phase string, data []byte) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checkpoints (audit_id, phase, data, saved_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (audit_id) DO UPDATE SET phase = $2, data = $3, saved_at = $4`,
		auditID, phase, data, now,
	)
	return eris.Wrap(err, "postgres: save checkpoint")
}

func (s *PostgresStore) LoadCheckpoint(ctx context.Context, auditID string) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	err := s.pool.QueryRow(ctx,
		`SELECT audit_id, phase, data, saved_at FROM checkpoints WHERE audit_id = $1`,
		auditID,
	).Scan(&cp.AuditID, &cp.Phase, &cp.Data, &cp.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: load checkpoint")
	}
	return &cp, nil
}

func (s *PostgresStore) DeleteCheckpoint(ctx context.Context, auditID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM checkpoints WHERE audit_id = $1`,
		auditID,
	)
	return eris.Wrap(err, "postgres: delete checkpoint")
}

func (s *PostgresStore) ArchivePages(ctx context.Context, auditID string, pages []PageRow) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM audit_pages WHERE audit_id = $1`, auditID); err != nil {
		return eris.Wrapf(err, "postgres: clear archived pages for %s", auditID)
	}

	rows := make([][]any, len(pages))
	for i, p := range pages {
		rows[i] = []any{auditID, p.URL, p.StatusCode, p.Health}
	}
	_, err := db.CopyFrom(ctx, s.pool, "audit_pages", []string{"audit_id", "url", "status_code", "health"}, rows)
	return eris.Wrapf(err, "postgres: archive pages for %s", auditID)
}

func (s *PostgresStore) SaveKeywords(ctx context.Context, auditID string, keywords []model.ExtractedKeyword) error {
	rows := make([][]any, len(keywords))
	for i, kw := range keywords {
		rows[i] = []any{auditID, kw.Keyword, kw.Score, string(kw.Type)}
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "audit_keywords",
		Columns:      []string{"audit_id", "keyword", "score", "type"},
		ConflictKeys: []string{"audit_id", "keyword"},
	}, rows)
	return eris.Wrapf(err, "postgres: save keywords for %s", auditID)
}
