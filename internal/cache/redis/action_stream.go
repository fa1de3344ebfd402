package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// DefaultStreamMaxLen is the approximate stream length enforced via
// XADD MAXLEN ~.
const DefaultStreamMaxLen int64 = 10000

// ActionStream appends every action record to a Redis stream so dashboards
// and other processes can follow strategy activity.
type ActionStream struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

// NewActionStream creates an ActionStream writing to stream. A maxLen of zero
// or less means DefaultStreamMaxLen.
func NewActionStream(c *Client, stream string, maxLen int64) *ActionStream {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &ActionStream{rdb: c.Underlying(), stream: stream, maxLen: maxLen}
}

// StreamAppend appends a raw payload to stream.
func (s *ActionStream) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	return s.xadd(ctx, stream, map[string]any{"payload": payload})
}

// RecordAction appends rec to the configured stream. The status and strategy
// hash are duplicated as top-level fields for cheap filtering.
func (s *ActionStream) RecordAction(ctx context.Context, strategyHash, mode string, rec domain.ActionRecord) error {
	values, err := actionFields(strategyHash, mode, rec)
	if err != nil {
		return err
	}
	return s.xadd(ctx, s.stream, values)
}

func (s *ActionStream) xadd(ctx context.Context, stream string, values map[string]any) error {
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

func actionFields(strategyHash, mode string, rec domain.ActionRecord) (map[string]any, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("redis: encode action %s: %w", rec.ID, err)
	}
	return map[string]any{
		"strategy_hash": strategyHash,
		"mode":          mode,
		"status":        string(rec.Status),
		"kind":          string(rec.Kind),
		"payload":       payload,
	}, nil
}

// Compile-time interface check.
var _ domain.EventStream = (*ActionStream)(nil)
