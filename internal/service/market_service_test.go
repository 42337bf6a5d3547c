package service

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/notify"
	"github.com/predicthub/predicthub/internal/viewmodel"
)

type marketFixture struct {
	svc      *MarketService
	cache    *memCache
	bus      *memBus
	store    *memStore
	notifier *recordingNotifier
	reader   *fakeReader
}

func newMarketFixture() marketFixture {
	f := marketFixture{
		cache:    &memCache{},
		bus:      &memBus{},
		store:    &memStore{},
		notifier: &recordingNotifier{},
		reader:   &fakeReader{allowance: big.NewInt(0)},
	}
	f.svc = NewMarketService(MarketServiceDeps{
		Reader:   f.reader,
		Cache:    f.cache,
		Bus:      f.bus,
		Store:    f.store,
		Notifier: f.notifier,
		Logger:   quietLogger(),
	})
	return f
}

func snapshotOf(views ...domain.MarketView) domain.Snapshot {
	return domain.Snapshot{
		RunID:     "run",
		Count:     uint64(len(views)),
		Markets:   views,
		FetchedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMarketServiceStartsLoading(t *testing.T) {
	f := newMarketFixture()

	snap := f.svc.Snapshot()
	assert.True(t, snap.Loading)
	assert.NotNil(t, snap.Markets)

	page := f.svc.List(viewmodel.SubsetOpen, 1)
	assert.True(t, page.Loading)
	assert.Empty(t, page.Markets)

	_, err := f.svc.Get(0)
	assert.ErrorIs(t, err, domain.ErrSnapshotLoading)
}

func TestMarketServiceReplaceFansOut(t *testing.T) {
	f := newMarketFixture()
	var seen []string
	f.svc.OnChange(func(s domain.Snapshot) { seen = append(seen, s.RunID) })

	f.svc.Replace(context.Background(), snapshotOf(view(0, domain.OutcomeOpen)))

	assert.Equal(t, []string{"run"}, seen)
	assert.False(t, f.svc.Snapshot().Loading)
	require.NotNil(t, f.cache.snap)
	assert.Len(t, f.store.saved, 1)
	require.Len(t, f.bus.published, 1)

	var ev MarketEvent
	require.NoError(t, json.Unmarshal(f.bus.published[0], &ev))
	assert.Equal(t, "run", ev.RunID)
	assert.Equal(t, 1, ev.Markets)
}

func TestMarketServiceReplaceSurvivesInfraErrors(t *testing.T) {
	f := newMarketFixture()
	f.cache.err = errBoom
	f.store.err = errBoom

	f.svc.Replace(context.Background(), snapshotOf(view(4, domain.OutcomeOpen)))

	m, err := f.svc.Get(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), m.ID)
}

func TestMarketServiceNotifiesResolution(t *testing.T) {
	f := newMarketFixture()
	ctx := context.Background()

	// The first swap leaves the loading state and must not alert.
	f.svc.Replace(ctx, snapshotOf(view(0, domain.OutcomeOpen), view(1, domain.OutcomeResolvedYes)))
	assert.Empty(t, f.notifier.events)

	f.svc.Replace(ctx, snapshotOf(view(0, domain.OutcomeResolvedNo), view(1, domain.OutcomeResolvedYes)))
	assert.Equal(t, []string{notify.EventMarketResolved}, f.notifier.events)
	assert.Equal(t, []string{"Market #0 resolved NO"}, f.notifier.titles)
}

func TestMarketServiceErrorSnapshotNotifies(t *testing.T) {
	f := newMarketFixture()
	snap := snapshotOf()
	snap.Err = "rpc unavailable"

	f.svc.Replace(context.Background(), snap)
	assert.Equal(t, []string{notify.EventError}, f.notifier.events)
	assert.Equal(t, "rpc unavailable", f.svc.List(viewmodel.SubsetOpen, 1).Error)
}

func TestMarketServiceListAndStats(t *testing.T) {
	f := newMarketFixture()
	var views []domain.MarketView
	for i := uint64(0); i < 8; i++ {
		views = append(views, view(i, domain.OutcomeOpen))
	}
	views = append(views, view(8, domain.OutcomeResolvedYes), view(9, domain.Outcome(7)))
	f.svc.Replace(context.Background(), snapshotOf(views...))

	p := f.svc.List(viewmodel.SubsetOpen, 2)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 2, p.TotalPages)
	assert.Equal(t, 8, p.Total)
	require.Len(t, p.Markets, 2)
	assert.Equal(t, uint64(6), p.Markets[0].ID)

	assert.Empty(t, f.svc.List(viewmodel.SubsetResolved, 3).Markets)

	stats := f.svc.Stats()
	assert.Equal(t, uint64(10), stats.Total)
	assert.Equal(t, 8, stats.Open)
	assert.Equal(t, 1, stats.Resolved)

	_, err := f.svc.Get(42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarketServiceCard(t *testing.T) {
	f := newMarketFixture()
	f.reader.allowance = big.NewInt(1_000_000)
	f.svc.Replace(context.Background(), snapshotOf(view(0, domain.OutcomeOpen)))

	card, err := f.svc.Card(context.Background(), 0, arbitrator, "2")
	require.NoError(t, err)
	assert.True(t, card.IsArbitrator)
	assert.True(t, card.NeedsApproval)
	assert.False(t, card.CanBet)
	assert.True(t, card.CanResolve)
	assert.Equal(t, viewmodel.Probability{Yes: 75, No: 25}, card.Probability)

	anon, err := f.svc.Card(context.Background(), 0, "", "")
	require.NoError(t, err)
	assert.False(t, anon.CanBet)
	assert.False(t, anon.IsArbitrator)

	_, err = f.svc.Card(context.Background(), 0, arbitrator, "-1")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	f.reader.err = errBoom
	_, err = f.svc.Card(context.Background(), 0, arbitrator, "1")
	assert.ErrorIs(t, err, errBoom)
}

func TestMarketServiceHydrate(t *testing.T) {
	t.Run("from cache", func(t *testing.T) {
		f := newMarketFixture()
		snap := snapshotOf(view(2, domain.OutcomeOpen))
		f.cache.snap = &snap

		require.NoError(t, f.svc.Hydrate(context.Background()))
		assert.False(t, f.svc.Snapshot().Loading)
		assert.Equal(t, "run", f.svc.Snapshot().RunID)
	})

	t.Run("from store", func(t *testing.T) {
		f := newMarketFixture()
		f.store.latest = []domain.MarketView{view(5, domain.OutcomeResolvedNo)}

		require.NoError(t, f.svc.Hydrate(context.Background()))
		_, err := f.svc.Get(5)
		assert.NoError(t, err)
	})

	t.Run("nothing stored", func(t *testing.T) {
		f := newMarketFixture()
		require.NoError(t, f.svc.Hydrate(context.Background()))
		assert.True(t, f.svc.Snapshot().Loading)
	})
}

func TestMarketServiceFollow(t *testing.T) {
	f := newMarketFixture()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.svc.Follow(ctx) }()

	// Another process refreshes: it writes the cache then announces.
	snap := snapshotOf(view(3, domain.OutcomeOpen))
	require.Eventually(t, func() bool {
		f.bus.mu.Lock()
		defer f.bus.mu.Unlock()
		return len(f.bus.subs) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, f.cache.Set(ctx, snap))
	require.NoError(t, f.bus.Publish(ctx, MarketsChannel, []byte(`{}`)))

	assert.Eventually(t, func() bool {
		_, err := f.svc.Get(3)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestResolvedSince(t *testing.T) {
	prev := []domain.MarketView{view(0, domain.OutcomeOpen), view(1, domain.OutcomeOpen), view(2, domain.OutcomeResolvedYes)}
	next := []domain.MarketView{view(0, domain.OutcomeResolvedYes), view(1, domain.OutcomeOpen), view(2, domain.OutcomeResolvedYes), view(3, domain.OutcomeResolvedNo)}

	got := ResolvedSince(prev, next)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(0), got[0].ID)
}
