package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketViewStore persists refresh snapshots.
type MarketViewStore interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	Latest(ctx context.Context) ([]MarketView, error)
	ListRuns(ctx context.Context, opts ListOpts) ([]SnapshotRun, error)
}

// SnapshotRun is one recorded refresh.
type SnapshotRun struct {
	RunID       string    `json:"run_id"`
	Count       uint64    `json:"count"`
	MarketCount int       `json:"views"`
	Err         string    `json:"error,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
