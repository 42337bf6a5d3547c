// Package pipeline runs the periodic chain read that feeds the market
// snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/viewmodel"
)

// RefreshLockKey names the distributed lock held for the duration of a run.
const RefreshLockKey = "refresh"

// SnapshotSink receives every refresh result.
type SnapshotSink interface {
	Snapshot() domain.Snapshot
	Replace(ctx context.Context, snap domain.Snapshot)
}

// Refresher reads every market from the chain, builds the views and hands
// the resulting snapshot to the sink.
type Refresher struct {
	reader  domain.MarketReader
	builder *viewmodel.Builder
	sink    SnapshotSink
	locks   domain.LockManager
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewRefresher creates a Refresher. locks may be nil to run unguarded.
func NewRefresher(
	reader domain.MarketReader,
	builder *viewmodel.Builder,
	sink SnapshotSink,
	locks domain.LockManager,
	lockTTL time.Duration,
	logger *slog.Logger,
) *Refresher {
	return &Refresher{
		reader:  reader,
		builder: builder,
		sink:    sink,
		locks:   locks,
		lockTTL: lockTTL,
		logger:  logger.With(slog.String("component", "refresher")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run performs one refresh. When another process holds the refresh lock
// the run is skipped. A failed read keeps the previous views and publishes
// them with the error set.
func (r *Refresher) Run(ctx context.Context) error {
	if r.locks != nil {
		unlock, err := r.locks.Acquire(ctx, RefreshLockKey, r.lockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			r.logger.DebugContext(ctx, "refresh skipped, lock held elsewhere")
			return nil
		case err != nil:
			r.logger.WarnContext(ctx, "refresh lock unavailable, running unguarded",
				slog.String("error", err.Error()))
		default:
			defer unlock()
		}
	}

	start := time.Now()
	runID := uuid.NewString()

	views, count, err := r.read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		prev := r.sink.Snapshot()
		r.sink.Replace(ctx, domain.Snapshot{
			RunID:     runID,
			Count:     prev.Count,
			Markets:   prev.Markets,
			Loading:   prev.Loading,
			Err:       err.Error(),
			FetchedAt: r.now(),
		})
		return err
	}

	r.sink.Replace(ctx, domain.Snapshot{
		RunID:     runID,
		Count:     count,
		Markets:   views,
		FetchedAt: r.now(),
	})
	r.logger.InfoContext(ctx, "markets refreshed",
		slog.String("run_id", runID),
		slog.Uint64("count", count),
		slog.Int("views", len(views)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *Refresher) read(ctx context.Context) ([]domain.MarketView, uint64, error) {
	count, err := r.reader.MarketCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("refresher: market count: %w", err)
	}
	results, err := r.reader.ReadBatch(ctx, count)
	if err != nil {
		return nil, 0, fmt.Errorf("refresher: read batch: %w", err)
	}
	return r.builder.Build(count, results), count, nil
}

// RunLoop refreshes immediately and then every interval until ctx is
// cancelled.
func (r *Refresher) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		r.logger.ErrorContext(ctx, "market refresh failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "refresher loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.Run(ctx); err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "market refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}
