package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
)

type fakeHistory struct {
	runs    []domain.SnapshotRun
	entries []domain.AuditEntry
	err     error
	gotOpts domain.ListOpts
}

func (f *fakeHistory) SaveSnapshot(context.Context, domain.Snapshot) error { return nil }

func (f *fakeHistory) Latest(context.Context) ([]domain.MarketView, error) { return nil, nil }

func (f *fakeHistory) ListRuns(_ context.Context, opts domain.ListOpts) ([]domain.SnapshotRun, error) {
	f.gotOpts = opts
	return f.runs, f.err
}

func (f *fakeHistory) Log(context.Context, string, map[string]any) error { return nil }

func (f *fakeHistory) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	f.gotOpts = opts
	return f.entries, f.err
}

func historyMux(h *HistoryHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", h.ListRuns)
	mux.HandleFunc("GET /api/audit", h.ListAudit)
	return mux
}

func TestListRuns(t *testing.T) {
	store := &fakeHistory{runs: []domain.SnapshotRun{{RunID: "r2", Count: 4, MarketCount: 4}}}
	mux := historyMux(NewHistoryHandler(store, store, testLogger()))

	rec := do(t, mux, http.MethodGet, "/api/runs?limit=900&offset=3&since=2026-05-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Runs  []domain.SnapshotRun `json:"runs"`
		Limit int                  `json:"limit"`
	}](t, rec)
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "r2", body.Runs[0].RunID)
	assert.Equal(t, 500, body.Limit)
	assert.Equal(t, 3, store.gotOpts.Offset)
	require.NotNil(t, store.gotOpts.Since)
	assert.True(t, store.gotOpts.Since.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, store.gotOpts.Until)
}

func TestListAudit(t *testing.T) {
	store := &fakeHistory{entries: []domain.AuditEntry{{ID: 1, Event: "tx_submitted", Detail: map[string]any{"hash": "0xabc"}}}}
	mux := historyMux(NewHistoryHandler(store, store, testLogger()))

	rec := do(t, mux, http.MethodGet, "/api/audit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hash":"0xabc"`)
	assert.Equal(t, 50, store.gotOpts.Limit)

	rec = do(t, mux, http.MethodGet, "/api/audit?until=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.err = errors.New("connection reset")
	rec = do(t, mux, http.MethodGet, "/api/audit", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	mux := historyMux(NewHistoryHandler(nil, nil, testLogger()))

	rec := do(t, mux, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = do(t, mux, http.MethodGet, "/api/audit", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
