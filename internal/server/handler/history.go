package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/predicthub/predicthub/internal/domain"
)

// HistoryHandler serves the persisted refresh runs and the transaction
// audit log. Both stores are nil when Postgres is disabled.
type HistoryHandler struct {
	runs   domain.MarketViewStore
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(runs domain.MarketViewStore, audit domain.AuditStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{runs: runs, audit: audit, logger: logHandler(logger, "history")}
}

// ListRuns returns recorded refreshes, newest first.
// GET /api/runs?limit=50&offset=0&since=RFC3339&until=RFC3339
func (h *HistoryHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "history storage disabled")
		return
	}
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := h.runs.ListRuns(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, "list runs", err)
		return
	}
	if runs == nil {
		runs = []domain.SnapshotRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "limit": opts.Limit, "offset": opts.Offset})
}

// ListAudit returns audit log entries, newest first.
// GET /api/audit?limit=50&offset=0&since=RFC3339&until=RFC3339
func (h *HistoryHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "history storage disabled")
		return
	}
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.audit.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, "list audit", err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "limit": opts.Limit, "offset": opts.Offset})
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0. since and until are RFC 3339.
func parseListOpts(r *http.Request) (domain.ListOpts, error) {
	q := r.URL.Query()
	opts := domain.ListOpts{Limit: 50}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if opts.Limit > 500 {
		opts.Limit = 500
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"since", &opts.Since}, {"until", &opts.Until}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, fmt.Errorf("%s must be an RFC 3339 timestamp", p.key)
		}
		*p.dst = &t
	}
	return opts, nil
}
