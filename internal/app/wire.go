package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/ethclient"

	s3blob "github.com/predicthub/predicthub/internal/blob/s3"
	"github.com/predicthub/predicthub/internal/cache/redis"
	"github.com/predicthub/predicthub/internal/chain"
	"github.com/predicthub/predicthub/internal/config"
	"github.com/predicthub/predicthub/internal/crypto"
	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/notify"
	"github.com/predicthub/predicthub/internal/store/postgres"
	"github.com/predicthub/predicthub/internal/viewmodel"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function. Optional dependencies are left nil when not configured.
type Dependencies struct {
	// Chain
	Reader domain.MarketReader
	Writer domain.MarketWriter

	// Caches
	SnapshotCache domain.SnapshotCache
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Stores
	ViewStore  domain.MarketViewStore
	AuditStore domain.AuditStore

	// Blob storage
	Archiver domain.SnapshotArchiver

	// Notifications
	Notifier *notify.Notifier

	Builder *viewmodel.Builder
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}

	loc, err := cfg.View.Location()
	if err != nil {
		return fail(fmt.Errorf("wire: view timezone: %w", err))
	}
	deps.Builder = viewmodel.NewBuilder(cfg.View.DateLayout, loc)

	// --- Chain ---
	eth, err := chain.Dial(ctx, chain.ClientConfig{
		RPCURL:  cfg.Chain.RPCURL,
		ChainID: cfg.Chain.ChainID,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}
	closers = append(closers, eth.Close)

	reader, err := chain.NewReader(eth, chain.ReaderConfig{
		MarketAddress: cfg.Chain.MarketAddress,
		TokenAddress:  cfg.Chain.TokenAddress,
		Concurrency:   cfg.Chain.ReadConcurrency,
		MaxMarkets:    cfg.Chain.MaxMarkets,
	}, logger)
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}
	deps.Reader = reader

	writer, err := wireWriter(eth, cfg, logger)
	if err != nil {
		return fail(err)
	}
	if writer != nil {
		deps.Writer = writer
	} else {
		logger.InfoContext(ctx, "no operator wallet configured, write endpoints disabled")
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		deps.ViewStore = postgres.NewMarketViewStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: redis: %w", err))
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.SnapshotCache = redis.NewSnapshotCache(redisClient, 0)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 snapshot archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		if err := s3Client.Health(ctx); err != nil {
			logger.WarnContext(ctx, "s3 bucket not reachable, archives may fail",
				slog.String("bucket", cfg.S3.Bucket),
				slog.String("error", err.Error()),
			)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// wireWriter builds the operator-wallet writer, or returns nil when no key
// is configured.
func wireWriter(eth *ethclient.Client, cfg *config.Config, logger *slog.Logger) (*chain.Writer, error) {
	keyCfg := crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	}
	if !keyCfg.Configured() {
		return nil, nil
	}

	key, err := crypto.LoadKey(keyCfg)
	if err != nil {
		return nil, fmt.Errorf("wire: wallet: %w", err)
	}
	signer, err := crypto.NewTxSigner(key, cfg.Chain.ChainID)
	if err != nil {
		return nil, fmt.Errorf("wire: wallet: %w", err)
	}
	writer, err := chain.NewWriter(eth, signer, cfg.Chain.MarketAddress, cfg.Chain.TokenAddress, logger)
	if err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	return writer, nil
}
