package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/notify"
	"github.com/predicthub/predicthub/internal/viewmodel"
)

// MarketsChannel is the bus channel announcing snapshot swaps.
const MarketsChannel = "markets"

// Notifier delivers operator alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// MarketServiceDeps wires a MarketService. Store, Archiver and Notifier are
// optional.
type MarketServiceDeps struct {
	Reader   domain.MarketReader
	Cache    domain.SnapshotCache
	Bus      domain.SignalBus
	Store    domain.MarketViewStore
	Archiver domain.SnapshotArchiver
	Notifier Notifier
	Logger   *slog.Logger
}

// MarketService owns the current market snapshot and serves every read the
// transport layer needs from it.
type MarketService struct {
	reader   domain.MarketReader
	cache    domain.SnapshotCache
	bus      domain.SignalBus
	store    domain.MarketViewStore
	archiver domain.SnapshotArchiver
	notifier Notifier
	logger   *slog.Logger

	mu        sync.RWMutex
	snap      domain.Snapshot
	listeners []func(domain.Snapshot)
}

// NewMarketService creates a MarketService whose snapshot reports loading
// until the first Replace.
func NewMarketService(deps MarketServiceDeps) *MarketService {
	return &MarketService{
		reader:   deps.Reader,
		cache:    deps.Cache,
		bus:      deps.Bus,
		store:    deps.Store,
		archiver: deps.Archiver,
		notifier: deps.Notifier,
		logger:   deps.Logger.With(slog.String("component", "market_service")),
		snap:     domain.Snapshot{Loading: true, Markets: []domain.MarketView{}},
	}
}

// MarketEvent is the bus payload published after each swap.
type MarketEvent struct {
	RunID     string    `json:"run_id"`
	Count     uint64    `json:"count"`
	Markets   int       `json:"markets"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Snapshot returns the current snapshot. The returned value must be treated
// as read-only.
func (s *MarketService) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// OnChange registers fn to run after every snapshot swap.
func (s *MarketService) OnChange(fn func(domain.Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Replace swaps in snap and then fans it out to the cache, the store, the
// archive and the bus. Fan-out failures are logged and never undo the swap.
func (s *MarketService) Replace(ctx context.Context, snap domain.Snapshot) {
	prev := s.swap(snap)

	if err := s.cache.Set(ctx, snap); err != nil {
		s.logger.WarnContext(ctx, "snapshot cache write failed", slog.String("error", err.Error()))
	}
	if s.store != nil {
		if err := s.store.SaveSnapshot(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "snapshot store write failed",
				slog.String("run_id", snap.RunID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.archiver != nil && snap.Err == "" {
		if _, err := s.archiver.ArchiveSnapshot(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "snapshot archive failed",
				slog.String("run_id", snap.RunID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.publish(ctx, snap)

	if !prev.Loading {
		for _, m := range ResolvedSince(prev.Markets, snap.Markets) {
			s.notify(ctx, notify.EventMarketResolved, func() (string, string) {
				return notify.MarketResolvedMessage(m)
			})
		}
	}
	if snap.Err != "" {
		s.notify(ctx, notify.EventError, func() (string, string) {
			return "Market refresh failed", snap.Err
		})
	}
}

// Hydrate seeds the snapshot from the cache, falling back to the store.
// It leaves the loading snapshot in place when neither has data.
func (s *MarketService) Hydrate(ctx context.Context) error {
	snap, err := s.cache.Get(ctx)
	if err == nil {
		s.swap(snap)
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "snapshot cache read failed", slog.String("error", err.Error()))
	}
	if s.store == nil {
		return nil
	}

	views, err := s.store.Latest(ctx)
	if err != nil {
		return fmt.Errorf("market_service: hydrate: %w", err)
	}
	if len(views) == 0 {
		return nil
	}
	s.swap(domain.Snapshot{
		Count:     uint64(len(views)),
		Markets:   views,
		FetchedAt: time.Now().UTC(),
	})
	return nil
}

// Follow reloads the snapshot from the cache whenever another process
// announces a swap on the bus. It blocks until ctx is cancelled.
func (s *MarketService) Follow(ctx context.Context) error {
	events, err := s.bus.Subscribe(ctx, MarketsChannel)
	if err != nil {
		return fmt.Errorf("market_service: follow: %w", err)
	}
	for range events {
		snap, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "snapshot reload failed", slog.String("error", err.Error()))
			continue
		}
		s.swap(snap)
	}
	return nil
}

// List returns one page of the requested subset along with the snapshot's
// loading and error flags.
func (s *MarketService) List(subset viewmodel.Subset, page int) MarketPage {
	snap := s.Snapshot()
	p := viewmodel.NewPage(viewmodel.Select(snap.Markets, subset), page)
	return MarketPage{
		Markets:    p.Items,
		Subset:     subset,
		Page:       p.Page,
		TotalPages: p.TotalPages,
		Total:      p.Total,
		PageSize:   p.PageSize,
		Loading:    snap.Loading,
		Error:      snap.Err,
	}
}

// MarketPage is one page of a subset plus the snapshot flags.
type MarketPage struct {
	Markets    []domain.MarketView `json:"markets"`
	Subset     viewmodel.Subset    `json:"subset"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"total_pages"`
	Total      int                 `json:"total"`
	PageSize   int                 `json:"page_size"`
	Loading    bool                `json:"loading"`
	Error      string              `json:"error,omitempty"`
}

// Get returns one market by id.
func (s *MarketService) Get(id uint64) (domain.MarketView, error) {
	snap := s.Snapshot()
	m, ok := snap.Find(id)
	if !ok {
		if snap.Loading {
			return domain.MarketView{}, domain.ErrSnapshotLoading
		}
		return domain.MarketView{}, fmt.Errorf("market_service: market %d: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

// Stats summarises the current snapshot.
func (s *MarketService) Stats() viewmodel.Stats {
	return viewmodel.ComputeStats(s.Snapshot())
}

// Card derives the action state of market id for account staking amount.
// Without an account only the market-level fields are meaningful.
func (s *MarketService) Card(ctx context.Context, id uint64, account, amount string) (viewmodel.Card, error) {
	m, err := s.Get(id)
	if err != nil {
		return viewmodel.Card{}, err
	}
	amt, err := domain.ParseUnits(amount)
	if err != nil {
		return viewmodel.Card{}, err
	}

	in := viewmodel.CardInput{Market: m, Viewer: account, Amount: amt}
	if account == "" {
		return viewmodel.DeriveCard(in), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		allowance, err := s.reader.Allowance(gctx, account)
		if err != nil {
			return fmt.Errorf("market_service: card allowance: %w", err)
		}
		in.Allowance = allowance
		return nil
	})
	g.Go(func() error {
		bet, err := s.reader.UserBet(gctx, id, account)
		if err != nil {
			return fmt.Errorf("market_service: card user bet: %w", err)
		}
		in.Bet = bet
		return nil
	})
	if err := g.Wait(); err != nil {
		return viewmodel.Card{}, err
	}
	return viewmodel.DeriveCard(in), nil
}

func (s *MarketService) swap(snap domain.Snapshot) domain.Snapshot {
	if snap.Markets == nil {
		snap.Markets = []domain.MarketView{}
	}

	s.mu.Lock()
	prev := s.snap
	s.snap = snap
	listeners := append(([]func(domain.Snapshot))(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return prev
}

func (s *MarketService) publish(ctx context.Context, snap domain.Snapshot) {
	payload, err := json.Marshal(MarketEvent{
		RunID:     snap.RunID,
		Count:     snap.Count,
		Markets:   len(snap.Markets),
		Error:     snap.Err,
		FetchedAt: snap.FetchedAt,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, MarketsChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "snapshot publish failed", slog.String("error", err.Error()))
	}
}

func (s *MarketService) notify(ctx context.Context, event string, render func() (string, string)) {
	if s.notifier == nil {
		return
	}
	title, msg := render()
	if err := s.notifier.Notify(ctx, event, title, msg); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// ResolvedSince returns the markets of next that were open in prev and are
// resolved now.
func ResolvedSince(prev, next []domain.MarketView) []domain.MarketView {
	wasOpen := make(map[uint64]bool, len(prev))
	for _, m := range prev {
		if m.Outcome.IsOpen() {
			wasOpen[m.ID] = true
		}
	}
	var out []domain.MarketView
	for _, m := range next {
		if m.Outcome.IsResolved() && wasOpen[m.ID] {
			out = append(out, m)
		}
	}
	return out
}
