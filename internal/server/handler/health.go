package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/viewmodel"
)

// SnapshotSource exposes the current market snapshot.
type SnapshotSource interface {
	Snapshot() domain.Snapshot
	Stats() viewmodel.Stats
}

// HealthHandler serves the health-check and stats endpoints.
type HealthHandler struct {
	markets SnapshotSource
	wallet  string
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. wallet is the operator address,
// empty when the server runs read-only.
func NewHealthHandler(markets SnapshotSource, wallet string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{markets: markets, wallet: wallet, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.markets.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"loading":   snap.Loading,
		"read_only": h.wallet == "",
	})
}

type statsResponse struct {
	viewmodel.Stats
	Wallet    string     `json:"wallet,omitempty"`
	Loading   bool       `json:"loading"`
	Error     string     `json:"error,omitempty"`
	RunID     string     `json:"run_id,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

// Stats returns market counters and the refresh flags.
// GET /api/stats
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	snap := h.markets.Snapshot()
	resp := statsResponse{
		Stats:   h.markets.Stats(),
		Wallet:  h.wallet,
		Loading: snap.Loading,
		Error:   snap.Err,
		RunID:   snap.RunID,
	}
	if !snap.FetchedAt.IsZero() {
		at := snap.FetchedAt
		resp.FetchedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}
