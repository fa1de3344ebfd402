// Package config defines the top-level configuration for marketsync and
// provides validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MARKETSYNC_* environment variables.
type Config struct {
	Mode       string            `toml:"mode"`
	LogLevel   string            `toml:"log_level"`
	State      StateConfig       `toml:"state"`
	Matching   MatchingConfig    `toml:"matching"`
	Sizing     SizingConfig      `toml:"sizing"`
	Autopilot  []AutopilotConfig `toml:"autopilot"`
	Mirror     []MirrorConfig    `toml:"mirror"`
	Polymarket PolymarketConfig  `toml:"polymarket"`
	Pandora    PandoraConfig     `toml:"pandora"`
	Executor   ExecutorConfig    `toml:"executor"`
	Notify     NotifyConfig      `toml:"notify"`
	Redis      RedisConfig       `toml:"redis"`
	Postgres   PostgresConfig    `toml:"postgres"`
	S3         S3Config          `toml:"s3"`
}

// StateConfig holds control-loop parameters shared by every strategy.
type StateConfig struct {
	Dir                 string   `toml:"dir"`
	KillSwitchFile      string   `toml:"kill_switch_file"`
	Iterations          int      `toml:"iterations"` // 0 = until stopped
	Interval            duration `toml:"interval"`
	ExecuteLive         bool     `toml:"execute_live"`
	MaxOpenExposureUsdc float64  `toml:"max_open_exposure_usdc"`
	MaxTradesPerDay     int      `toml:"max_trades_per_day"`
	MaxIdempotencyKeys  int      `toml:"max_idempotency_keys"`
	LockTTL             duration `toml:"lock_ttl"`
}

// MatchingConfig holds cross-venue scan parameters.
type MatchingConfig struct {
	SimilarityThreshold float64  `toml:"similarity_threshold"`
	MaxCloseDiffHours   float64  `toml:"max_close_diff_hours"`
	CrossVenueOnly      bool     `toml:"cross_venue_only"`
	MinSpreadPct        float64  `toml:"min_spread_pct"`
	MinLiquidityUSD     float64  `toml:"min_liquidity_usd"`
	Limit               int      `toml:"limit"`
	Venues              []string `toml:"venues"`
}

// SizingConfig holds the liquidity model and the market it sizes.
type SizingConfig struct {
	// MarketID is a Polymarket market used to source volume, depth and
	// probability. Explicit values below override what the market reports.
	MarketID          string   `toml:"market_id"`
	Volume24hUSD      float64  `toml:"volume_24h_usd"`
	DepthUSD          float64  `toml:"depth_usd"`
	YesPct            *float64 `toml:"yes_pct"`
	TargetSlippageBps float64  `toml:"target_slippage_bps"`
	TurnoverTarget    float64  `toml:"turnover_target"`
	DepthUtilization  float64  `toml:"depth_utilization"`
	SafetyMultiplier  float64  `toml:"safety_multiplier"`
	Beta              float64  `toml:"beta"`
	QMin              float64  `toml:"q_min"`
	QMax              float64  `toml:"q_max"`
	MinLiquidityUSD   float64  `toml:"min_liquidity_usd"`
	MaxLiquidityUSD   float64  `toml:"max_liquidity_usd"`
}

// AutopilotConfig is one [[autopilot]] strategy instance.
type AutopilotConfig struct {
	Venue      string   `toml:"venue"`
	MarketID   string   `toml:"market_id"`
	YesBelow   *float64 `toml:"trigger_yes_below"`
	YesAbove   *float64 `toml:"trigger_yes_above"`
	AmountUsdc float64  `toml:"amount_usdc"`
	CooldownMs int64    `toml:"cooldown_ms"`
	// DepthSlippageBps enables the depth check on Polymarket books.
	DepthSlippageBps float64 `toml:"depth_slippage_bps"`
}

// MirrorConfig is one [[mirror]] strategy instance.
type MirrorConfig struct {
	PandoraMarketID  string  `toml:"pandora_market_id"`
	SourceVenue      string  `toml:"source_venue"`
	SourceMarketID   string  `toml:"source_market_id"`
	DriftTriggerBps  float64 `toml:"drift_trigger_bps"`
	HedgeEnabled     bool    `toml:"hedge_enabled"`
	HedgeRatio       float64 `toml:"hedge_ratio"`
	HedgeTriggerUsdc float64 `toml:"hedge_trigger_usdc"`
	MaxHedgeUsdc     float64 `toml:"max_hedge_usdc"`
	RebalanceUsdc    float64 `toml:"rebalance_usdc"`
	MaxCloseDeltaSec int64   `toml:"max_close_delta_sec"`
	CooldownMs       int64   `toml:"cooldown_ms"`
	DepthSlippageBps float64 `toml:"depth_slippage_bps"`
	MinMatchScore    float64 `toml:"min_match_score"`
}

// PolymarketConfig holds Polymarket API endpoints.
type PolymarketConfig struct {
	GammaHost  string   `toml:"gamma_host"`
	ClobHost   string   `toml:"clob_host"`
	PageSize   int      `toml:"page_size"`
	MaxMarkets int      `toml:"max_markets"`
	Timeout    duration `toml:"timeout"`
}

// PandoraConfig holds the Pandora indexer endpoint.
type PandoraConfig struct {
	IndexerURL string   `toml:"indexer_url"`
	APIKey     string   `toml:"api_key"`
	PageSize   int      `toml:"page_size"`
	MaxMarkets int      `toml:"max_markets"`
	Timeout    duration `toml:"timeout"`
}

// ExecutorConfig holds the external signer bridge used in live mode.
type ExecutorConfig struct {
	URL     string   `toml:"url"`
	Token   string   `toml:"token"`
	Timeout duration `toml:"timeout"`
}

// NotifyConfig holds notification channel credentials and retry policy.
type NotifyConfig struct {
	WebhookURL        string   `toml:"webhook_url"`
	WebhookSecret     string   `toml:"webhook_secret"`
	TelegramAPIBase   string   `toml:"telegram_api_base"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	MaxAttempts       int      `toml:"max_attempts"`
	InitialBackoff    duration `toml:"initial_backoff"`
	MaxBackoff        duration `toml:"max_backoff"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool   `toml:"enabled"`
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	StreamKey    string `toml:"stream_key"`
	StreamMaxLen int64  `toml:"stream_max_len"`
}

// PostgresConfig holds PostgreSQL connection parameters for the action ledger.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for run archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Mode:     "scan",
		LogLevel: "info",
		State: StateConfig{
			Dir:                ".marketsync",
			KillSwitchFile:     ".marketsync/STOP",
			Iterations:         0,
			Interval:           duration{30 * time.Second},
			MaxIdempotencyKeys: 500,
			LockTTL:            duration{10 * time.Minute},
		},
		Matching: MatchingConfig{
			SimilarityThreshold: 0.75,
			MaxCloseDiffHours:   24,
			CrossVenueOnly:      true,
			MinLiquidityUSD:     1000,
			Limit:               50,
			Venues:              []string{"pandora", "polymarket"},
		},
		Sizing: SizingConfig{
			TargetSlippageBps: 150,
			TurnoverTarget:    1.25,
			DepthUtilization:  0.5,
			SafetyMultiplier:  1.2,
			Beta:              0.01,
			QMin:              25,
			QMax:              2500,
			MinLiquidityUSD:   100,
			MaxLiquidityUSD:   50000,
		},
		Polymarket: PolymarketConfig{
			GammaHost:  "https://gamma-api.polymarket.com",
			ClobHost:   "https://clob.polymarket.com",
			PageSize:   100,
			MaxMarkets: 500,
			Timeout:    duration{15 * time.Second},
		},
		Pandora: PandoraConfig{
			PageSize:   100,
			MaxMarkets: 500,
			Timeout:    duration{15 * time.Second},
		},
		Executor: ExecutorConfig{
			Timeout: duration{30 * time.Second},
		},
		Notify: NotifyConfig{
			TelegramAPIBase: "https://api.telegram.org",
			Events:          []string{"action.executed", "action.blocked", "action.failed", "run.stopped"},
			MaxAttempts:     3,
			InitialBackoff:  duration{500 * time.Millisecond},
			MaxBackoff:      duration{5 * time.Second},
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MaxRetries:   3,
			StreamKey:    "marketsync:actions",
			StreamMaxLen: 10000,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketsync-runs",
			Prefix:         "runs",
			ForcePathStyle: true,
		},
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":      true,
	"size":      true,
	"autopilot": true,
	"mirror":    true,
	"run":       true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validVenues = map[string]bool{
	"pandora":    true,
	"polymarket": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, size, autopilot, mirror, run)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// State
	if c.State.Iterations < 0 {
		errs = append(errs, "state: iterations must be >= 0")
	}
	if c.State.Interval.Duration < 0 {
		errs = append(errs, "state: interval must be >= 0")
	}
	if c.State.MaxOpenExposureUsdc < 0 {
		errs = append(errs, "state: max_open_exposure_usdc must be >= 0")
	}
	if c.State.MaxTradesPerDay < 0 {
		errs = append(errs, "state: max_trades_per_day must be >= 0")
	}
	if c.State.MaxIdempotencyKeys < 0 {
		errs = append(errs, "state: max_idempotency_keys must be >= 0")
	}

	// Matching
	if c.Matching.SimilarityThreshold < 0 || c.Matching.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Sprintf("matching: similarity_threshold must be in [0,1], got %v", c.Matching.SimilarityThreshold))
	}
	if c.Matching.MaxCloseDiffHours < 0 {
		errs = append(errs, "matching: max_close_diff_hours must be >= 0")
	}
	for _, v := range c.Matching.Venues {
		if !validVenues[strings.ToLower(v)] {
			errs = append(errs, fmt.Sprintf("matching: unknown venue %q", v))
		}
	}
	if mode == "scan" && len(c.Matching.Venues) == 0 {
		errs = append(errs, "matching: venues must not be empty for mode scan")
	}

	// Sizing
	if mode == "size" && c.Sizing.MarketID == "" && c.Sizing.Volume24hUSD <= 0 && c.Sizing.DepthUSD <= 0 {
		errs = append(errs, "sizing: market_id or volume_24h_usd/depth_usd is required for mode size")
	}
	if err := c.Sizing.Params().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	// Strategies
	runsAutopilot := mode == "autopilot" || mode == "run"
	runsMirror := mode == "mirror" || mode == "run"
	if mode == "autopilot" && len(c.Autopilot) == 0 {
		errs = append(errs, "autopilot: at least one [[autopilot]] entry is required for mode autopilot")
	}
	if mode == "mirror" && len(c.Mirror) == 0 {
		errs = append(errs, "mirror: at least one [[mirror]] entry is required for mode mirror")
	}
	if mode == "run" && len(c.Autopilot)+len(c.Mirror) == 0 {
		errs = append(errs, "run: at least one [[autopilot]] or [[mirror]] entry is required")
	}
	if runsAutopilot {
		for i, a := range c.Autopilot {
			errs = append(errs, a.validate(i)...)
		}
	}
	if runsMirror {
		for i, m := range c.Mirror {
			errs = append(errs, m.validate(i)...)
		}
	}

	// Executor: live trading needs somewhere to send actions.
	if c.State.ExecuteLive && (runsAutopilot || runsMirror) {
		if c.Executor.URL == "" {
			errs = append(errs, "executor: url is required when state.execute_live is true")
		}
	}
	if c.Executor.URL != "" && !validURL(c.Executor.URL) {
		errs = append(errs, fmt.Sprintf("executor: url %q is not a valid http(s) URL", c.Executor.URL))
	}

	// Venues
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.needsPandora() && c.Pandora.IndexerURL == "" {
		errs = append(errs, "pandora: indexer_url is required when a pandora market is configured")
	}

	// Notify
	if c.Notify.WebhookURL != "" && !validURL(c.Notify.WebhookURL) {
		errs = append(errs, fmt.Sprintf("notify: webhook_url %q is not a valid http(s) URL", c.Notify.WebhookURL))
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	if c.Notify.MaxAttempts < 1 {
		errs = append(errs, "notify: max_attempts must be >= 1")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (a AutopilotConfig) validate(i int) []string {
	var errs []string
	p := fmt.Sprintf("autopilot[%d]", i)
	if !validVenues[strings.ToLower(a.Venue)] {
		errs = append(errs, fmt.Sprintf("%s: unknown venue %q", p, a.Venue))
	}
	if a.MarketID == "" {
		errs = append(errs, p+": market_id must not be empty")
	}
	if strings.EqualFold(a.Venue, "pandora") && a.MarketID != "" && !common.IsHexAddress(a.MarketID) {
		errs = append(errs, fmt.Sprintf("%s: pandora market_id %q is not a hex address", p, a.MarketID))
	}
	if (a.YesBelow == nil) == (a.YesAbove == nil) {
		errs = append(errs, p+": exactly one of trigger_yes_below or trigger_yes_above must be set")
	}
	if a.AmountUsdc <= 0 {
		errs = append(errs, p+": amount_usdc must be > 0")
	}
	if a.CooldownMs < 0 {
		errs = append(errs, p+": cooldown_ms must be >= 0")
	}
	return errs
}

func (m MirrorConfig) validate(i int) []string {
	var errs []string
	p := fmt.Sprintf("mirror[%d]", i)
	if !common.IsHexAddress(m.PandoraMarketID) {
		errs = append(errs, fmt.Sprintf("%s: pandora_market_id %q is not a hex address", p, m.PandoraMarketID))
	}
	if m.SourceMarketID == "" {
		errs = append(errs, p+": source_market_id must not be empty")
	}
	if m.SourceVenue != "" && !strings.EqualFold(m.SourceVenue, "polymarket") {
		errs = append(errs, fmt.Sprintf("%s: source_venue must be polymarket, got %q", p, m.SourceVenue))
	}
	if m.RebalanceUsdc <= 0 {
		errs = append(errs, p+": rebalance_usdc must be > 0")
	}
	if m.HedgeRatio < 0 || m.DriftTriggerBps < 0 || m.HedgeTriggerUsdc < 0 || m.MaxHedgeUsdc < 0 {
		errs = append(errs, p+": thresholds must be >= 0")
	}
	if m.MinMatchScore < 0 || m.MinMatchScore > 1 {
		errs = append(errs, p+": min_match_score must be in [0,1]")
	}
	return errs
}

func (c *Config) needsPandora() bool {
	mode := strings.ToLower(c.Mode)
	if mode == "scan" {
		for _, v := range c.Matching.Venues {
			if strings.EqualFold(v, "pandora") {
				return true
			}
		}
	}
	if mode == "mirror" || mode == "run" {
		if len(c.Mirror) > 0 {
			return true
		}
	}
	if mode == "autopilot" || mode == "run" {
		for _, a := range c.Autopilot {
			if strings.EqualFold(a.Venue, "pandora") {
				return true
			}
		}
	}
	return false
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
