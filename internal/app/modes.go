package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/pipeline"
	"github.com/predicthub/predicthub/internal/server"
	"github.com/predicthub/predicthub/internal/server/handler"
	"github.com/predicthub/predicthub/internal/server/ws"
	"github.com/predicthub/predicthub/internal/service"
)

// ServerMode serves the API from snapshots written by a separate refresh
// process. It seeds the snapshot from the cache or the store and follows
// the markets channel for later swaps.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	markets := a.newMarketService(deps)

	if err := markets.Hydrate(ctx); err != nil {
		a.logger.WarnContext(ctx, "snapshot hydrate failed, waiting for the next refresh",
			slog.String("error", err.Error()),
		)
	}
	g.Go(func() error {
		return markets.Follow(ctx)
	})

	a.startHTTPServer(ctx, g, deps, markets)
	return g.Wait()
}

// RefreshMode reads the chain on the configured interval and publishes each
// snapshot to the cache, the store, the archive and the markets channel.
func (a *App) RefreshMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting refresh mode")

	g, ctx := errgroup.WithContext(ctx)
	markets := a.newMarketService(deps)
	a.startRefresher(ctx, g, deps, markets)
	return g.Wait()
}

// FullMode refreshes and serves from a single process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	markets := a.newMarketService(deps)
	a.startRefresher(ctx, g, deps, markets)
	a.startHTTPServer(ctx, g, deps, markets)
	return g.Wait()
}

func (a *App) newMarketService(deps *Dependencies) *service.MarketService {
	msDeps := service.MarketServiceDeps{
		Reader:   deps.Reader,
		Cache:    deps.SnapshotCache,
		Bus:      deps.SignalBus,
		Store:    deps.ViewStore,
		Archiver: deps.Archiver,
		Logger:   a.logger,
	}
	if deps.Notifier != nil {
		msDeps.Notifier = deps.Notifier
	}
	return service.NewMarketService(msDeps)
}

func (a *App) startRefresher(ctx context.Context, g *errgroup.Group, deps *Dependencies, markets *service.MarketService) {
	refresher := pipeline.NewRefresher(
		deps.Reader,
		deps.Builder,
		markets,
		deps.LockManager,
		a.cfg.Refresh.LockTTL.Duration,
		a.logger,
	)
	interval := a.cfg.Refresh.Interval.Duration

	g.Go(func() error {
		a.logger.InfoContext(ctx, "refresher started", slog.Duration("interval", interval))
		return refresher.RunLoop(ctx, interval)
	})
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, markets *service.MarketService) {
	var notifier service.Notifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}
	bets := service.NewBetService(markets, deps.Reader, deps.Writer, deps.AuditStore, notifier, a.logger)

	hub := ws.NewHub(markets, a.cfg.Server.CORSOrigins, a.logger)
	markets.OnChange(func(domain.Snapshot) { hub.Refresh() })
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(markets, bets.Wallet(), a.logger),
		Markets: handler.NewMarketHandler(markets, a.logger),
		Tx:      handler.NewTxHandler(bets, a.logger),
		History: handler.NewHistoryHandler(deps.ViewStore, deps.AuditStore, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
