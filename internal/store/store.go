// Package store persists audits, checkpoints, and per-audit archives behind a
// driver-agnostic interface.
package store

import (
	"context"

	"github.com/rankward/siteaudit/internal/model"
)

// AuditFilter specifies criteria for listing audits.
type AuditFilter struct {
	Status     model.AuditStatus `json:"status,omitempty"`
	BusinessID string            `json:"business_id,omitempty"`
	Domain     string            `json:"domain,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Offset     int               `json:"offset,omitempty"`
}

// PageRow is one archived page with its computed health score.
type PageRow struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Health     int    `json:"health"`
}

// Store defines the persistence interface for the audit pipeline.
type Store interface {
	// Audits
	CreateAudit(ctx context.Context, req model.AuditRequest) (*model.Audit, error)
	UpdateAuditStatus(ctx context.Context, auditID string, status model.AuditStatus) error
	FailAudit(ctx context.Context, auditID string, reason string) error
	UpdateAuditResult(ctx context.Context, auditID string, result *model.AuditResult) error
	GetAudit(ctx context.Context, auditID string) (*model.Audit, error)
	ListAudits(ctx context.Context, filter AuditFilter) ([]model.Audit, error)
	InvalidateInFlight(ctx context.Context, businessID string) (int, error)

	// Checkpoints
	SaveCheckpoint(ctx context.Context, auditID string, phase string, data []byte) error
	LoadCheckpoint(ctx context.Context, auditID string) (*model.Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, auditID string) error

	// Archives
	ArchivePages(ctx context.Context, auditID string, pages []PageRow) error
	SaveKeywords(ctx context.Context, auditID string, keywords []model.ExtractedKeyword) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
