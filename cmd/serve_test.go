package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankward/siteaudit/internal/model"
	"github.com/rankward/siteaudit/internal/store"
)

// stubStore serves canned data to the HTTP handlers.
type stubStore struct {
	store.Store

	audits     []model.Audit
	audit      *model.Audit
	checkpoint *model.Checkpoint
}

func (s *stubStore) ListAudits(_ context.Context, _ store.AuditFilter) ([]model.Audit, error) {
	return s.audits, nil
}

func (s *stubStore) GetAudit(_ context.Context, auditID string) (*model.Audit, error) {
	if s.audit == nil || s.audit.ID != auditID {
		return nil, eris.New("audit not found")
	}
	return s.audit, nil
}

func (s *stubStore) LoadCheckpoint(_ context.Context, _ string) (*model.Checkpoint, error) {
	return s.checkpoint, nil
}

type stubRunner struct {
	mu   sync.Mutex
	reqs []model.AuditRequest
}

func (r *stubRunner) Run(_ context.Context, req model.AuditRequest) (*model.Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return &model.Audit{ID: "audit-1", Domain: req.Domain, Status: model.AuditStatusComplete}, nil
}

func (r *stubRunner) requests() []model.AuditRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AuditRequest(nil), r.reqs...)
}

func TestRouter_Health(t *testing.T) {
	router := newRouter(context.Background(), &stubStore{}, &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_CreateAudit(t *testing.T) {
	runner := &stubRunner{}
	router := newRouter(context.Background(), &stubStore{}, runner)

	payload, _ := json.Marshal(map[string]any{
		"business_id": "biz-123",
		"domain":      "https://smithplumbing.com",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/audits", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.Equal(t, "smithplumbing.com", resp["domain"])

	// The run is kicked off in the background.
	require.Eventually(t, func() bool {
		return len(runner.requests()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "smithplumbing.com", runner.requests()[0].Domain)
	assert.Equal(t, "biz-123", runner.requests()[0].BusinessID)
}

func TestRouter_CreateAudit_MissingDomain(t *testing.T) {
	router := newRouter(context.Background(), &stubStore{}, &stubRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/audits", bytes.NewReader([]byte(`{"business_id":"biz-123"}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "domain is required")
}

func TestRouter_CreateAudit_InvalidBody(t *testing.T) {
	router := newRouter(context.Background(), &stubStore{}, &stubRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/audits", bytes.NewReader([]byte(`{not json`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_ListAudits(t *testing.T) {
	st := &stubStore{audits: []model.Audit{
		{ID: "a1", Domain: "smithplumbing.com", Status: model.AuditStatusComplete},
		{ID: "a2", Domain: "acmehvac.com", Status: model.AuditStatusFailed},
	}}
	router := newRouter(context.Background(), st, &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/audits?limit=10", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var audits []model.Audit
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &audits))
	assert.Len(t, audits, 2)
}

func TestRouter_ListAudits_Empty(t *testing.T) {
	router := newRouter(context.Background(), &stubStore{}, &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/audits", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestRouter_GetAudit(t *testing.T) {
	st := &stubStore{audit: &model.Audit{
		ID:     "a1",
		Domain: "smithplumbing.com",
		Status: model.AuditStatusComplete,
	}}
	router := newRouter(context.Background(), st, &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/audits/a1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "a1", body["id"])
	assert.NotContains(t, body, "checkpoint")
}

func TestRouter_GetAudit_InFlightIncludesCheckpoint(t *testing.T) {
	st := &stubStore{
		audit: &model.Audit{ID: "a1", Domain: "smithplumbing.com", Status: model.AuditStatusCrawling},
		checkpoint: &model.Checkpoint{
			AuditID: "a1",
			Phase:   "crawling",
			Data:    []byte(`{"phase":"crawling","completed_tasks":["crawl submitted"],"log":[]}`),
		},
	}
	router := newRouter(context.Background(), st, &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/audits/a1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		ID         string `json:"id"`
		Checkpoint struct {
			Phase          string   `json:"phase"`
			CompletedTasks []string `json:"completed_tasks"`
		} `json:"checkpoint"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "crawling", body.Checkpoint.Phase)
	assert.Equal(t, []string{"crawl submitted"}, body.Checkpoint.CompletedTasks)
}

func TestRouter_GetAudit_NotFound(t *testing.T) {
	router := newRouter(context.Background(), &stubStore{}, &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/audits/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
