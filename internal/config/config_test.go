package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
mode = "run"
log_level = "debug"

[state]
dir = "/var/lib/marketsync"
iterations = 10
interval = "5s"
max_trades_per_day = 4

[pandora]
indexer_url = "https://indexer.example/graphql"

[[autopilot]]
venue = "pandora"
market_id = "0x1111111111111111111111111111111111111111"
trigger_yes_below = 40.0
amount_usdc = 25.0
cooldown_ms = 300000

[[mirror]]
pandora_market_id = "0x2222222222222222222222222222222222222222"
source_market_id = "btc-100k-2026"
drift_trigger_bps = 150.0
hedge_enabled = true
hedge_ratio = 0.5
hedge_trigger_usdc = 25.0
rebalance_usdc = 20.0
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketsync.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, "run", cfg.Mode)
	assert.Equal(t, "/var/lib/marketsync", cfg.State.Dir)
	assert.Equal(t, 10, cfg.State.Iterations)
	assert.Equal(t, 5*time.Second, cfg.State.Interval.Duration)
	assert.Equal(t, 10*time.Minute, cfg.State.LockTTL.Duration, "default kept")
	assert.Equal(t, 0.75, cfg.Matching.SimilarityThreshold, "default kept")

	require.Len(t, cfg.Autopilot, 1)
	require.NotNil(t, cfg.Autopilot[0].YesBelow)
	assert.Equal(t, 40.0, *cfg.Autopilot[0].YesBelow)
	assert.Nil(t, cfg.Autopilot[0].YesAbove)
	require.Len(t, cfg.Mirror, 1)
	assert.True(t, cfg.Mirror[0].HedgeEnabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MARKETSYNC_MODE", "scan")
	t.Setenv("MARKETSYNC_STATE_INTERVAL", "1m")
	t.Setenv("MARKETSYNC_STATE_EXECUTE_LIVE", "true")
	t.Setenv("MARKETSYNC_MATCHING_VENUES", " polymarket , ")
	t.Setenv("MARKETSYNC_REDIS_STREAM_MAX_LEN", "42")
	t.Setenv("MARKETSYNC_STATE_ITERATIONS", "not-a-number")

	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)
	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, time.Minute, cfg.State.Interval.Duration)
	assert.True(t, cfg.State.ExecuteLive)
	assert.Equal(t, []string{"polymarket"}, cfg.Matching.Venues)
	assert.EqualValues(t, 42, cfg.Redis.StreamMaxLen)
	assert.Equal(t, 10, cfg.State.Iterations, "unparseable override ignored")
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "scan", cfg.Mode)

	// Scanning both venues needs the Pandora indexer.
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pandora: indexer_url is required")

	cfg.Matching.Venues = []string{"polymarket"}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_UnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "mode = \"scan\"\n[matching]\nsimilarity_treshold = 0.5\n"))
	var uk *UnknownKeysError
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, []string{"matching.similarity_treshold"}, uk.Keys)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "run"
	cfg.LogLevel = "verbose"
	cfg.State.ExecuteLive = true
	cfg.Matching.SimilarityThreshold = 1.5
	cfg.Autopilot = []AutopilotConfig{{Venue: "kalshi", AmountUsdc: 0}}
	cfg.Mirror = []MirrorConfig{{PandoraMarketID: "not-an-address"}}
	cfg.Notify.TelegramToken = "t"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		`unknown log_level "verbose"`,
		"similarity_threshold must be in [0,1]",
		`autopilot[0]: unknown venue "kalshi"`,
		"autopilot[0]: market_id must not be empty",
		"autopilot[0]: exactly one of trigger_yes_below or trigger_yes_above must be set",
		"autopilot[0]: amount_usdc must be > 0",
		`mirror[0]: pandora_market_id "not-an-address" is not a hex address`,
		"mirror[0]: rebalance_usdc must be > 0",
		"executor: url is required when state.execute_live is true",
		"pandora: indexer_url is required",
		"telegram_token and telegram_chat_id must be set together",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_ModeRequiresStrategies(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "mirror"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one [[mirror]] entry")
}

func TestValidate_SizingParams(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "size"
	cfg.Sizing.Volume24hUSD = 1000
	cfg.Sizing.QMin = 5000
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qMin (5000) exceeds qMax (2500)")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.WebhookSecret = "s3cr3t"
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Executor.Token = "bearer"
	cfg.Postgres.DSN = "postgres://u:p@h/db"
	cfg.S3.SecretKey = "k"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Notify.WebhookSecret)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Equal(t, "***", out.Executor.Token)
	assert.Equal(t, "***", out.Postgres.DSN)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "", out.Redis.Password, "empty secrets stay empty")
	assert.Equal(t, "s3cr3t", cfg.Notify.WebhookSecret, "original untouched")

	out.Notify.Events[0] = "mutated"
	assert.NotEqual(t, "mutated", cfg.Notify.Events[0])
}

func TestLoad_ExampleFileIsValid(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Mode = "run"
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Autopilot, 1)
	assert.Len(t, cfg.Mirror, 1)
	assert.Equal(t, 30*time.Second, cfg.State.Interval.Duration)
}
