package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/marketsync/internal/automation"
	s3blob "github.com/alanyoungcy/marketsync/internal/blob/s3"
	"github.com/alanyoungcy/marketsync/internal/cache/redis"
	"github.com/alanyoungcy/marketsync/internal/config"
	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/executor"
	"github.com/alanyoungcy/marketsync/internal/notify"
	"github.com/alanyoungcy/marketsync/internal/platform/pandora"
	"github.com/alanyoungcy/marketsync/internal/platform/polymarket"
	"github.com/alanyoungcy/marketsync/internal/store/postgres"
)

// Dependencies bundles everything the modes need. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	// Venues
	Gamma   *polymarket.GammaClient
	Clob    *polymarket.ClobClient
	Pandora *pandora.Client // nil without an indexer URL

	// Live execution; nil without an executor URL.
	Executor *executor.Client

	// Sinks
	Lock            domain.LockManager
	ActionRecorders []automation.ActionRecorder
	RunRecorders    []automation.RunRecorder

	Notifier *notify.Notifier
}

// needsSinks returns true for modes that run the control loop.
func needsSinks(mode string) bool {
	switch strings.ToLower(mode) {
	case "autopilot", "mirror", "run":
		return true
	default:
		return false
	}
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

	deps := &Dependencies{
		Gamma: polymarket.NewGammaClient(cfg.Polymarket.GammaHost, cfg.Polymarket.Timeout.Duration),
		Clob:  polymarket.NewClobClient(cfg.Polymarket.ClobHost, cfg.Polymarket.Timeout.Duration),
	}
	if cfg.Pandora.IndexerURL != "" {
		deps.Pandora = pandora.NewClient(cfg.Pandora.IndexerURL, cfg.Pandora.APIKey, cfg.Pandora.Timeout.Duration)
	}
	if cfg.Executor.URL != "" {
		deps.Executor = executor.New(cfg.Executor.URL, cfg.Executor.Token, cfg.Executor.Timeout.Duration, logger)
	}

	if !needsSinks(cfg.Mode) {
		return deps, cleanup, nil
	}

	// --- Redis: owner lock and action stream ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Lock = redis.NewOwnerLock(redisClient, logger)
		deps.ActionRecorders = append(deps.ActionRecorders,
			redis.NewActionStream(redisClient, cfg.Redis.StreamKey, cfg.Redis.StreamMaxLen))
	}

	// --- PostgreSQL: action ledger ---
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		ledger := postgres.NewLedgerStore(pgClient.Pool())
		deps.ActionRecorders = append(deps.ActionRecorders, ledger)
		deps.RunRecorders = append(deps.RunRecorders, ledger)
	}

	// --- S3: run archive ---
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			logger.WarnContext(ctx, "s3 bucket not reachable, archives may fail",
				slog.String("bucket", cfg.S3.Bucket),
				slog.String("error", err.Error()),
			)
		}
		deps.RunRecorders = append(deps.RunRecorders,
			s3blob.NewRunArchiver(s3blob.NewWriter(s3Client), cfg.S3.Prefix))
	}

	// --- Notifications ---
	deps.Notifier = notify.NewNotifier(buildSenders(cfg.Notify), cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

func buildSenders(cfg config.NotifyConfig) []notify.Sender {
	policy := notify.RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff.Duration,
		MaxBackoff:     cfg.MaxBackoff.Duration,
	}

	var senders []notify.Sender
	if cfg.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.WebhookURL, cfg.WebhookSecret, policy))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.TelegramAPIBase, cfg.TelegramToken, cfg.TelegramChatID, policy))
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.DiscordWebhookURL, policy))
	}
	return senders
}
