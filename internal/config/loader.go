package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETSYNC_* environment variable overrides, and
// returns the final Config. A missing file is not an error when path is the
// empty string. The returned Config has NOT been validated; the caller should
// invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, &UnknownKeysError{Keys: keys}
		}
	}

	// Load .env file if present (silently ignore if missing).
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// UnknownKeysError reports TOML keys that match no config field, which is
// almost always a typo in a threshold name.
type UnknownKeysError struct {
	Keys []string
}

func (e *UnknownKeysError) Error() string {
	return "config: unknown keys: " + strings.Join(e.Keys, ", ")
}

// applyEnvOverrides reads well-known MARKETSYNC_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── State ──
	setStr(&cfg.State.Dir, "MARKETSYNC_STATE_DIR")
	setStr(&cfg.State.KillSwitchFile, "MARKETSYNC_STATE_KILL_SWITCH_FILE")
	setInt(&cfg.State.Iterations, "MARKETSYNC_STATE_ITERATIONS")
	setDuration(&cfg.State.Interval, "MARKETSYNC_STATE_INTERVAL")
	setBool(&cfg.State.ExecuteLive, "MARKETSYNC_STATE_EXECUTE_LIVE")
	setFloat64(&cfg.State.MaxOpenExposureUsdc, "MARKETSYNC_STATE_MAX_OPEN_EXPOSURE_USDC")
	setInt(&cfg.State.MaxTradesPerDay, "MARKETSYNC_STATE_MAX_TRADES_PER_DAY")
	setInt(&cfg.State.MaxIdempotencyKeys, "MARKETSYNC_STATE_MAX_IDEMPOTENCY_KEYS")
	setDuration(&cfg.State.LockTTL, "MARKETSYNC_STATE_LOCK_TTL")

	// ── Matching ──
	setFloat64(&cfg.Matching.SimilarityThreshold, "MARKETSYNC_MATCHING_SIMILARITY_THRESHOLD")
	setFloat64(&cfg.Matching.MaxCloseDiffHours, "MARKETSYNC_MATCHING_MAX_CLOSE_DIFF_HOURS")
	setBool(&cfg.Matching.CrossVenueOnly, "MARKETSYNC_MATCHING_CROSS_VENUE_ONLY")
	setFloat64(&cfg.Matching.MinSpreadPct, "MARKETSYNC_MATCHING_MIN_SPREAD_PCT")
	setFloat64(&cfg.Matching.MinLiquidityUSD, "MARKETSYNC_MATCHING_MIN_LIQUIDITY_USD")
	setInt(&cfg.Matching.Limit, "MARKETSYNC_MATCHING_LIMIT")
	setStringSlice(&cfg.Matching.Venues, "MARKETSYNC_MATCHING_VENUES")

	// ── Sizing ──
	setStr(&cfg.Sizing.MarketID, "MARKETSYNC_SIZING_MARKET_ID")
	setFloat64(&cfg.Sizing.Volume24hUSD, "MARKETSYNC_SIZING_VOLUME_24H_USD")
	setFloat64(&cfg.Sizing.DepthUSD, "MARKETSYNC_SIZING_DEPTH_USD")
	setFloat64(&cfg.Sizing.TargetSlippageBps, "MARKETSYNC_SIZING_TARGET_SLIPPAGE_BPS")
	setFloat64(&cfg.Sizing.MinLiquidityUSD, "MARKETSYNC_SIZING_MIN_LIQUIDITY_USD")
	setFloat64(&cfg.Sizing.MaxLiquidityUSD, "MARKETSYNC_SIZING_MAX_LIQUIDITY_USD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "MARKETSYNC_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "MARKETSYNC_POLYMARKET_CLOB_HOST")
	setInt(&cfg.Polymarket.PageSize, "MARKETSYNC_POLYMARKET_PAGE_SIZE")
	setInt(&cfg.Polymarket.MaxMarkets, "MARKETSYNC_POLYMARKET_MAX_MARKETS")

	// ── Pandora ──
	setStr(&cfg.Pandora.IndexerURL, "MARKETSYNC_PANDORA_INDEXER_URL")
	setStr(&cfg.Pandora.APIKey, "MARKETSYNC_PANDORA_API_KEY")
	setInt(&cfg.Pandora.PageSize, "MARKETSYNC_PANDORA_PAGE_SIZE")
	setInt(&cfg.Pandora.MaxMarkets, "MARKETSYNC_PANDORA_MAX_MARKETS")

	// ── Executor ──
	setStr(&cfg.Executor.URL, "MARKETSYNC_EXECUTOR_URL")
	setStr(&cfg.Executor.Token, "MARKETSYNC_EXECUTOR_TOKEN")
	setDuration(&cfg.Executor.Timeout, "MARKETSYNC_EXECUTOR_TIMEOUT")

	// ── Notify ──
	setStr(&cfg.Notify.WebhookURL, "MARKETSYNC_NOTIFY_WEBHOOK_URL")
	setStr(&cfg.Notify.WebhookSecret, "MARKETSYNC_NOTIFY_WEBHOOK_SECRET")
	setStr(&cfg.Notify.TelegramAPIBase, "MARKETSYNC_NOTIFY_TELEGRAM_API_BASE")
	setStr(&cfg.Notify.TelegramToken, "MARKETSYNC_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MARKETSYNC_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MARKETSYNC_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MARKETSYNC_NOTIFY_EVENTS")
	setInt(&cfg.Notify.MaxAttempts, "MARKETSYNC_NOTIFY_MAX_ATTEMPTS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MARKETSYNC_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MARKETSYNC_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETSYNC_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETSYNC_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETSYNC_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETSYNC_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETSYNC_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.StreamKey, "MARKETSYNC_REDIS_STREAM_KEY")
	setInt64(&cfg.Redis.StreamMaxLen, "MARKETSYNC_REDIS_STREAM_MAX_LEN")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "MARKETSYNC_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MARKETSYNC_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "MARKETSYNC_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MARKETSYNC_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MARKETSYNC_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MARKETSYNC_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MARKETSYNC_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MARKETSYNC_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MARKETSYNC_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MARKETSYNC_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MARKETSYNC_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MARKETSYNC_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MARKETSYNC_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETSYNC_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKETSYNC_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "MARKETSYNC_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "MARKETSYNC_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETSYNC_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETSYNC_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETSYNC_S3_FORCE_PATH_STYLE")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETSYNC_MODE")
	setStr(&cfg.LogLevel, "MARKETSYNC_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
