package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// defaultListLimit caps ListActions when the caller passes no limit.
const defaultListLimit = 100

// LedgerStore implements domain.ActionLedger using PostgreSQL. Writes are
// idempotent on the record and run IDs.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a new LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// RecordAction inserts one action record. Re-recording the same ID is a no-op.
func (s *LedgerStore) RecordAction(ctx context.Context, strategyHash, mode string, a domain.ActionRecord) error {
	record, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("postgres: marshal action %s: %w", a.ID, err)
	}

	const query = `
		INSERT INTO strategy_actions (
			id, strategy_hash, mode, iteration, kind, status, venue, market_id,
			side, token, amount_usdc, trigger_code, code, idempotency_key, record, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING`
	_, err = s.pool.Exec(ctx, query,
		a.ID, strategyHash, mode, a.Iteration, string(a.Kind), string(a.Status),
		string(a.Venue), a.MarketID, a.Side, a.Token, a.AmountUsdc,
		a.TriggerCode, a.Code, a.IdempotencyKey, record, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record action %s: %w", a.ID, err)
	}
	return nil
}

// RecordRun upserts a run summary. The summary is stored whole as JSONB.
func (s *LedgerStore) RecordRun(ctx context.Context, sum domain.RunSummary) error {
	summary, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("postgres: marshal run %s: %w", sum.RunID, err)
	}

	const query = `
		INSERT INTO strategy_runs (
			run_id, strategy_hash, mode, stopped_reason, iterations_requested,
			iterations_completed, action_count, started_at, finished_at, summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			stopped_reason       = EXCLUDED.stopped_reason,
			iterations_completed = EXCLUDED.iterations_completed,
			action_count         = EXCLUDED.action_count,
			finished_at          = EXCLUDED.finished_at,
			summary              = EXCLUDED.summary`
	_, err = s.pool.Exec(ctx, query,
		sum.RunID, sum.StrategyHash, sum.Mode, sum.StoppedReason,
		sum.IterationsRequested, sum.IterationsCompleted, len(sum.Actions),
		sum.StartedAt, sum.FinishedAt, summary,
	)
	if err != nil {
		return fmt.Errorf("postgres: record run %s: %w", sum.RunID, err)
	}
	return nil
}

// ListActions returns the newest action records for a strategy hash.
func (s *LedgerStore) ListActions(ctx context.Context, strategyHash string, limit int) ([]domain.ActionRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
		SELECT record FROM strategy_actions
		WHERE strategy_hash = $1
		ORDER BY created_at DESC, iteration DESC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, query, strategyHash, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list actions %s: %w", strategyHash, err)
	}
	defer rows.Close()

	var out []domain.ActionRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("postgres: scan action: %w", err)
		}
		var a domain.ActionRecord
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal action: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list actions rows: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.ActionLedger = (*LedgerStore)(nil)
