package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/viewmodel"
)

type stubReader struct {
	count   uint64
	results []domain.ReadResult
	err     error
}

func (s *stubReader) MarketCount(context.Context) (uint64, error) { return s.count, s.err }

func (s *stubReader) ReadBatch(context.Context, uint64) ([]domain.ReadResult, error) {
	return s.results, nil
}

func (s *stubReader) Allowance(context.Context, string) (*big.Int, error) { return nil, nil }

func (s *stubReader) UserBet(context.Context, uint64, string) (domain.UserBet, error) {
	return domain.UserBet{}, nil
}

type memSink struct {
	mu    sync.Mutex
	snap  domain.Snapshot
	swaps []domain.Snapshot
}

func newMemSink() *memSink {
	return &memSink{snap: domain.Snapshot{Loading: true}}
}

func (m *memSink) Snapshot() domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *memSink) Replace(_ context.Context, snap domain.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.swaps = append(m.swaps, snap)
}

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.swaps)
}

type stubLocks struct {
	err      error
	released int
}

func (s *stubLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	return func() { s.released++ }, nil
}

func batchOf(outcomes ...uint8) []domain.ReadResult {
	var out []domain.ReadResult
	for i, o := range outcomes {
		out = append(out,
			domain.Present(domain.RawMarket{
				ID:         big.NewInt(int64(i)),
				Question:   "q",
				Arbitrator: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
				CreatedAt:  big.NewInt(1_700_000_000),
				EndTime:    big.NewInt(1_800_000_000),
				YesBets:    big.NewInt(1),
				NoBets:     big.NewInt(1),
				Outcome:    o,
			}),
			domain.Present(big.NewInt(1)),
			domain.Present(big.NewInt(1)),
		)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRefresher(reader domain.MarketReader, sink SnapshotSink, locks domain.LockManager) *Refresher {
	r := NewRefresher(reader, viewmodel.NewBuilder(viewmodel.DefaultDateLayout, time.UTC), sink, locks, time.Minute, quietLogger())
	r.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestRefresherRun(t *testing.T) {
	reader := &stubReader{count: 2, results: batchOf(0, 1)}
	sink := newMemSink()
	locks := &stubLocks{}

	require.NoError(t, newTestRefresher(reader, sink, locks).Run(context.Background()))

	snap := sink.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Err)
	assert.Equal(t, uint64(2), snap.Count)
	assert.Len(t, snap.Markets, 2)
	assert.NotEmpty(t, snap.RunID)
	assert.Equal(t, "11/14/2023", snap.Markets[0].FormattedDate)
	assert.Equal(t, 1, locks.released)
}

func TestRefresherKeepsPreviousViewsOnError(t *testing.T) {
	reader := &stubReader{count: 1, results: batchOf(0)}
	sink := newMemSink()
	r := newTestRefresher(reader, sink, nil)
	ctx := context.Background()

	require.NoError(t, r.Run(ctx))
	first := sink.Snapshot()

	reader.err = errors.New("rpc down")
	err := r.Run(ctx)
	require.Error(t, err)

	snap := sink.Snapshot()
	assert.Contains(t, snap.Err, "rpc down")
	assert.Equal(t, first.Markets, snap.Markets)
	assert.False(t, snap.Loading)
	assert.NotEqual(t, first.RunID, snap.RunID)
}

func TestRefresherErrorBeforeFirstSuccessStaysLoading(t *testing.T) {
	sink := newMemSink()
	r := newTestRefresher(&stubReader{err: errors.New("rpc down")}, sink, nil)

	require.Error(t, r.Run(context.Background()))
	snap := sink.Snapshot()
	assert.True(t, snap.Loading)
	assert.NotEmpty(t, snap.Err)
}

func TestRefresherSkipsWhenLockHeld(t *testing.T) {
	sink := newMemSink()
	r := newTestRefresher(&stubReader{count: 1, results: batchOf(0)}, sink, &stubLocks{err: domain.ErrLockHeld})

	require.NoError(t, r.Run(context.Background()))
	assert.Zero(t, sink.count())
}

func TestRefresherRunsWhenLockBackendFails(t *testing.T) {
	sink := newMemSink()
	r := newTestRefresher(&stubReader{count: 1, results: batchOf(0)}, sink, &stubLocks{err: errors.New("redis down")})

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, sink.count())
}

func TestRefresherRunLoop(t *testing.T) {
	sink := newMemSink()
	r := newTestRefresher(&stubReader{count: 1, results: batchOf(0)}, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.RunLoop(ctx, 10*time.Millisecond) }()

	assert.Eventually(t, func() bool { return sink.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
