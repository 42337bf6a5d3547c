package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PREDICTHUB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PREDICTHUB_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "PREDICTHUB_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "PREDICTHUB_CHAIN_CHAIN_ID")
	setStr(&cfg.Chain.MarketAddress, "PREDICTHUB_CHAIN_MARKET_ADDRESS")
	setStr(&cfg.Chain.TokenAddress, "PREDICTHUB_CHAIN_TOKEN_ADDRESS")
	setUint64(&cfg.Chain.MaxMarkets, "PREDICTHUB_CHAIN_MAX_MARKETS")
	setInt(&cfg.Chain.ReadConcurrency, "PREDICTHUB_CHAIN_READ_CONCURRENCY")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "PREDICTHUB_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "PREDICTHUB_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "PREDICTHUB_WALLET_KEY_PASSWORD")

	// ── Refresh ──
	setDuration(&cfg.Refresh.Interval, "PREDICTHUB_REFRESH_INTERVAL")
	setDuration(&cfg.Refresh.LockTTL, "PREDICTHUB_REFRESH_LOCK_TTL")

	// ── View ──
	setStr(&cfg.View.DateLayout, "PREDICTHUB_VIEW_DATE_LAYOUT")
	setStr(&cfg.View.Timezone, "PREDICTHUB_VIEW_TIMEZONE")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "PREDICTHUB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PREDICTHUB_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "PREDICTHUB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PREDICTHUB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PREDICTHUB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PREDICTHUB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PREDICTHUB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PREDICTHUB_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PREDICTHUB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PREDICTHUB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PREDICTHUB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PREDICTHUB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PREDICTHUB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PREDICTHUB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PREDICTHUB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PREDICTHUB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PREDICTHUB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PREDICTHUB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PREDICTHUB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PREDICTHUB_S3_REGION")
	setStr(&cfg.S3.Bucket, "PREDICTHUB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PREDICTHUB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PREDICTHUB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PREDICTHUB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PREDICTHUB_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "PREDICTHUB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PREDICTHUB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PREDICTHUB_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "PREDICTHUB_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "PREDICTHUB_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PREDICTHUB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PREDICTHUB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PREDICTHUB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PREDICTHUB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PREDICTHUB_MODE")
	setStr(&cfg.LogLevel, "PREDICTHUB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and parses cleanly.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
