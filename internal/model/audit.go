package model

import "time"

// AuditStatus represents the lifecycle state of an audit record.
type AuditStatus string

const (
	AuditStatusPending   AuditStatus = "pending"
	AuditStatusCrawling  AuditStatus = "crawling"
	AuditStatusAnalyzing AuditStatus = "analyzing"
	AuditStatusComplete  AuditStatus = "complete"
	AuditStatusFailed    AuditStatus = "failed"
)

// InFlight reports whether the audit is still running.
func (s AuditStatus) InFlight() bool {
	return s == AuditStatusPending || s == AuditStatusCrawling || s == AuditStatusAnalyzing
}

// AuditRequest describes one audit run to execute.
type AuditRequest struct {
	BusinessID string            `json:"business_id"`
	Domain     string            `json:"domain"`
	MaxPages   int               `json:"max_pages"`
	Tracked    []TrackedLocation `json:"tracked_locations,omitempty"`
}

// TrackedLocation is a market the user explicitly tracks.
type TrackedLocation struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Audit is the persisted audit record.
type Audit struct {
	ID          string          `json:"id"`
	BusinessID  string          `json:"business_id"`
	Domain      string          `json:"domain"`
	Status      AuditStatus     `json:"status"`
	Scores      *CategoryScores `json:"scores,omitempty"`
	PagesCount  int             `json:"pages_count"`
	IssuesCount int             `json:"issues_count"`
	Tasks       []string        `json:"completed_tasks,omitempty"`
	APICost     float64         `json:"api_cost"`
	CostLines   []CostLineItem  `json:"cost_breakdown,omitempty"`
	Log         []LogEntry      `json:"log,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// AuditResult bundles everything persisted when an audit finishes.
type AuditResult struct {
	Scores      *CategoryScores `json:"scores"`
	PagesCount  int             `json:"pages_count"`
	IssuesCount int             `json:"issues_count"`
	Tasks       []string        `json:"completed_tasks"`
	APICost     float64         `json:"api_cost"`
	CostLines   []CostLineItem  `json:"cost_breakdown,omitempty"`
	Log         []LogEntry      `json:"log,omitempty"`
	CrawlData   *CrawlData      `json:"crawl_data"`
}

// CostLineItem is one endpoint's accumulated API spend.
type CostLineItem struct {
	Endpoint string  `json:"endpoint"`
	Cost     float64 `json:"cost"`
}

// Checkpoint is a per-phase snapshot of audit progress, persisted so a
// client disconnect does not lose completed work.
type Checkpoint struct {
	AuditID string    `json:"audit_id"`
	Phase   string    `json:"phase"`
	Data    []byte    `json:"data"`
	SavedAt time.Time `json:"saved_at"`
}

// LogLevel is a severity for progress log entries.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// LogEntry is one append-only progress log line.
type LogEntry struct {
	At      time.Time `json:"at"`
	Level   LogLevel  `json:"level"`
	Message string    `json:"message"`
}
