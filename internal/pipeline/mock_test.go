package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rankward/siteaudit/internal/model"
	"github.com/rankward/siteaudit/internal/store"
	"github.com/rankward/siteaudit/pkg/dataforseo"
	"github.com/rankward/siteaudit/pkg/pagespeed"
)

// mockDFS routes provider calls through func fields and records every
// endpoint hit.
type mockDFS struct {
	mu        sync.Mutex
	endpoints []string

	PostFunc func(ctx context.Context, endpoint string, body any) (*dataforseo.Response, error)
	GetFunc  func(ctx context.Context, endpoint string) (*dataforseo.Response, error)
}

func (m *mockDFS) record(endpoint string) {
	m.mu.Lock()
	m.endpoints = append(m.endpoints, endpoint)
	m.mu.Unlock()
}

func (m *mockDFS) called(endpoint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.endpoints {
		if e == endpoint {
			return true
		}
	}
	return false
}

func (m *mockDFS) Post(ctx context.Context, endpoint string, body any) (*dataforseo.Response, error) {
	m.record(endpoint)
	return m.PostFunc(ctx, endpoint, body)
}

func (m *mockDFS) Get(ctx context.Context, endpoint string) (*dataforseo.Response, error) {
	m.record(endpoint)
	return m.GetFunc(ctx, endpoint)
}

// okResponse builds a success envelope with one OK task whose result is the
// JSON encoding of v (omitted when v is nil).
func okResponse(taskID string, cost float64, v any) *dataforseo.Response {
	task := dataforseo.Task{ID: taskID, StatusCode: dataforseo.StatusOK, Cost: cost}
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		task.Result = raw
	}
	return &dataforseo.Response{
		StatusCode: dataforseo.StatusOK,
		Cost:       cost,
		Tasks:      []dataforseo.Task{task},
	}
}

type mockPSI struct {
	RunFunc func(ctx context.Context, pageURL, strategy string) (*pagespeed.Result, error)
}

func (m *mockPSI) Run(ctx context.Context, pageURL, strategy string) (*pagespeed.Result, error) {
	return m.RunFunc(ctx, pageURL, strategy)
}

// fakeStore is an in-memory store.Store for orchestrator tests.
type fakeStore struct {
	mu          sync.Mutex
	nextID      int
	audits      map[string]*model.Audit
	results     map[string]*model.AuditResult
	checkpoints map[string]*model.Checkpoint
	phases      []string
	pages       map[string][]store.PageRow
	keywords    map[string][]model.ExtractedKeyword
	failReasons map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		audits:      make(map[string]*model.Audit),
		results:     make(map[string]*model.AuditResult),
		checkpoints: make(map[string]*model.Checkpoint),
		pages:       make(map[string][]store.PageRow),
		keywords:    make(map[string][]model.ExtractedKeyword),
		failReasons: make(map[string]string),
	}
}

func (f *fakeStore) CreateAudit(_ context.Context, req model.AuditRequest) (*model.Audit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a := &model.Audit{
		ID:         "audit-" + string(rune('0'+f.nextID)),
		BusinessID: req.BusinessID,
		Domain:     req.Domain,
		Status:     model.AuditStatusPending,
		StartedAt:  time.Now().UTC(),
	}
	f.audits[a.ID] = a
	return a, nil
}

func (f *fakeStore) UpdateAuditStatus(_ context.Context, auditID string, status model.AuditStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.audits[auditID]
	if !ok {
		return eris.New("audit not found")
	}
	a.Status = status
	return nil
}

func (f *fakeStore) FailAudit(_ context.Context, auditID string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.audits[auditID]
	if !ok {
		return eris.New("audit not found")
	}
	a.Status = model.AuditStatusFailed
	a.Error = reason
	f.failReasons[auditID] = reason
	return nil
}

func (f *fakeStore) UpdateAuditResult(_ context.Context, auditID string, result *model.AuditResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.audits[auditID]
	if !ok {
		return eris.New("audit not found")
	}
	a.Status = model.AuditStatusComplete
	f.results[auditID] = result
	return nil
}

func (f *fakeStore) GetAudit(_ context.Context, auditID string) (*model.Audit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.audits[auditID]
	if !ok {
		return nil, eris.New("audit not found")
	}
	return a, nil
}

func (f *fakeStore) ListAudits(_ context.Context, _ store.AuditFilter) ([]model.Audit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Audit
	for _, a := range f.audits {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeStore) InvalidateInFlight(_ context.Context, businessID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.audits {
		if a.BusinessID == businessID && a.Status.InFlight() {
			a.Status = model.AuditStatusFailed
			a.Error = "superseded by a newer audit"
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) SaveCheckpoint(_ context.Context, auditID, phase string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phases = append(f.phases, phase)
	f.checkpoints[auditID] = &model.Checkpoint{
		AuditID: auditID,
		Phase:   phase,
		Data:    data,
		SavedAt: time.Now().UTC(),
	}
	return nil
}

func (f *fakeStore) LoadCheckpoint(_ context.Context, auditID string) (*model.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkpoints[auditID], nil
}

func (f *fakeStore) DeleteCheckpoint(_ context.Context, auditID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.checkpoints, auditID)
	return nil
}

func (f *fakeStore) ArchivePages(_ context.Context, auditID string, pages []store.PageRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[auditID] = pages
	return nil
}

func (f *fakeStore) SaveKeywords(_ context.Context, auditID string, kws []model.ExtractedKeyword) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywords[auditID] = kws
	return nil
}

func (f *fakeStore) Migrate(_ context.Context) error { return nil }

func (f *fakeStore) Close() error { return nil }
