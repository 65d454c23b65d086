package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intentgate/internal/domain"
	"intentgate/internal/repository"
	"intentgate/internal/service"
	"intentgate/internal/testutil"
)

type fakePipeline struct {
	result *service.ProcessResult
	err    error
	gotReq service.ProcessRequest
}

func (f *fakePipeline) Process(_ context.Context, req service.ProcessRequest) (*service.ProcessResult, error) {
	f.gotReq = req
	return f.result, f.err
}

type fakeElevations struct {
	pending []*domain.ElevationEvent
	result  *service.ResolveResult
	err     error
	gotID   string
}

func (f *fakeElevations) ListPending(context.Context) ([]*domain.ElevationEvent, error) {
	return f.pending, nil
}

func (f *fakeElevations) Resolve(_ context.Context, id, _ string, _ bool, _ *string) (*service.ResolveResult, error) {
	f.gotID = id
	return f.result, f.err
}

type fakeLedger struct {
	entries map[string]*domain.LedgerEntry
	stats   *domain.LedgerStats
	err     error
}

func (f *fakeLedger) Append(_ context.Context, e *domain.LedgerEntry) (string, error) {
	return e.ID, f.err
}

func (f *fakeLedger) GetByID(_ context.Context, id string) (*domain.LedgerEntry, error) {
	if e, ok := f.entries[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("ledger entry %s: %w", id, repository.ErrNotFound)
}

func (f *fakeLedger) ListByUser(_ context.Context, userID string, _, _ int) ([]*domain.LedgerEntry, error) {
	var out []*domain.LedgerEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, f.err
}

func (f *fakeLedger) ListBySession(_ context.Context, sessionID string) ([]*domain.LedgerEntry, error) {
	var out []*domain.LedgerEntry
	for _, e := range f.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, f.err
}

func (f *fakeLedger) ListByTimeRange(context.Context, repository.LedgerFilter) ([]*domain.LedgerEntry, error) {
	return nil, f.err
}

func (f *fakeLedger) ListBlocked(context.Context, int, int) ([]*domain.LedgerEntry, error) {
	var out []*domain.LedgerEntry
	for _, e := range f.entries {
		if e.MaliciousBlocked {
			out = append(out, e)
		}
	}
	return out, f.err
}

func (f *fakeLedger) ListWithElevation(context.Context, int, int) ([]*domain.LedgerEntry, error) {
	return nil, f.err
}

func (f *fakeLedger) Stats(context.Context) (*domain.LedgerStats, error) {
	if f.stats == nil {
		return nil, f.err
	}
	return f.stats, nil
}

func newTestServer(pipeline *fakePipeline, elevations *fakeElevations, ledger *fakeLedger) *Server {
	if pipeline == nil {
		pipeline = &fakePipeline{}
	}
	if elevations == nil {
		elevations = &fakeElevations{}
	}
	if ledger == nil {
		ledger = &fakeLedger{stats: &domain.LedgerStats{}}
	}
	return NewServer(pipeline, elevations, ledger, nil)
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestProcessEndpoint(t *testing.T) {
	pipeline := &fakePipeline{result: &service.ProcessResult{
		Status:        domain.StatusCompleted,
		LedgerEntryID: "entry-1",
	}}
	mux := newTestServer(pipeline, nil, nil).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/process",
		`{"user_id":"u1","session_id":"s1","query":"find experts on ml"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusCompleted, resp.Status)
	assert.Equal(t, "entry-1", resp.LedgerEntryID)
	assert.Equal(t, "u1", pipeline.gotReq.UserID)
	require.NotNil(t, pipeline.gotReq.UserAgent)
}

func TestProcessEndpoint_Validation(t *testing.T) {
	mux := newTestServer(nil, nil, nil).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/process", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/process", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessEndpoint_AbortIs500(t *testing.T) {
	pipeline := &fakePipeline{err: fmt.Errorf("voting on parser results: boom")}
	mux := newTestServer(pipeline, nil, nil).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/process",
		`{"user_id":"u1","session_id":"s1","query":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProcessEndpoint_LedgeredFailureIs200WithError(t *testing.T) {
	pipeline := &fakePipeline{
		result: &service.ProcessResult{Status: domain.StatusFailed, LedgerEntryID: "entry-2"},
		err:    fmt.Errorf("generating trusted intent: topic"),
	}
	mux := newTestServer(pipeline, nil, nil).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/process",
		`{"user_id":"u1","session_id":"s1","query":"q"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "generating trusted intent")
}

func TestLedgerGet(t *testing.T) {
	entry := testutil.NewTestEntry()
	ledger := &fakeLedger{entries: map[string]*domain.LedgerEntry{entry.ID: entry}}
	mux := newTestServer(nil, nil, ledger).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/ledger/"+entry.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.LedgerEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, entry.ID, got.ID)

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/ledger/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerList(t *testing.T) {
	entry := testutil.NewTestEntry()
	ledger := &fakeLedger{entries: map[string]*domain.LedgerEntry{entry.ID: entry}}
	mux := newTestServer(nil, nil, ledger).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/ledger?user=user_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []*domain.LedgerEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/ledger?session=session_1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/ledger", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unfiltered scans are rejected")

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/ledger?user=user_1&limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/ledger?from=not-a-time", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedgerStats(t *testing.T) {
	ledger := &fakeLedger{stats: &domain.LedgerStats{TotalEntries: 7}}
	mux := newTestServer(nil, nil, ledger).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/ledger/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.LedgerStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(7), stats.TotalEntries)
}

func TestElevationsList(t *testing.T) {
	event := testutil.NewTestElevation()
	elevations := &fakeElevations{pending: []*domain.ElevationEvent{event}}
	mux := newTestServer(nil, elevations, nil).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/elevations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []*domain.ElevationEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, event.ID, got[0].ID)
}

func TestElevationDecision(t *testing.T) {
	event := testutil.NewTestElevation()
	event.Status = domain.ElevationApproved
	elevations := &fakeElevations{result: &service.ResolveResult{Event: event, LedgerEntryID: "entry-3"}}
	mux := newTestServer(nil, elevations, nil).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/elevations/"+event.ID+"/decision",
		`{"approver_id":"reviewer_1","approve":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, event.ID, elevations.gotID)
	var resp decisionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "entry-3", resp.LedgerEntryID)
	assert.Equal(t, domain.ElevationApproved, resp.Event.Status)
}

func TestElevationDecision_Conflict(t *testing.T) {
	elevations := &fakeElevations{err: fmt.Errorf("elevation x: %w", repository.ErrAlreadyResolved)}
	mux := newTestServer(nil, elevations, nil).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/elevations/x/decision",
		`{"approver_id":"reviewer_1","approve":false}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestElevationDecision_MissingApprover(t *testing.T) {
	mux := newTestServer(nil, nil, nil).Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/elevations/x/decision", `{"approve":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	mux := newTestServer(nil, nil, nil).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz_StorageDown(t *testing.T) {
	ledger := &fakeLedger{err: fmt.Errorf("database is locked")}
	mux := newTestServer(nil, nil, ledger).Routes()

	rec := doJSON(t, mux, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
