package redis

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

func TestActionFields(t *testing.T) {
	rec := domain.ActionRecord{
		ID:     "a1",
		Kind:   domain.ActionHedge,
		Status: domain.ActionSimulated,
	}
	fields, err := actionFields("abc123", "paper", rec)
	require.NoError(t, err)
	assert.Equal(t, "abc123", fields["strategy_hash"])
	assert.Equal(t, "paper", fields["mode"])
	assert.Equal(t, "simulated", fields["status"])
	assert.Equal(t, "hedge", fields["kind"])

	var back domain.ActionRecord
	require.NoError(t, json.Unmarshal(fields["payload"].([]byte), &back))
	assert.Equal(t, rec.ID, back.ID)
}

// liveClient connects to the Redis named by MARKETSYNC_TEST_REDIS_ADDR.
func liveClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("MARKETSYNC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MARKETSYNC_TEST_REDIS_ADDR not set")
	}
	c, err := New(context.Background(), ClientConfig{Addr: addr, PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOwnerLock_Exclusive(t *testing.T) {
	c := liveClient(t)
	lock := NewOwnerLock(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	key := "marketsync:test:lock:" + uuid.NewString()

	lease, err := lock.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	lease.Release()
	lease.Release()
	assert.ErrorIs(t, lease.Refresh(ctx, time.Minute), domain.ErrLockLost)

	lease2, err := lock.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	lease2.Release()
}

func TestOwnerLock_Refresh(t *testing.T) {
	c := liveClient(t)
	lock := NewOwnerLock(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	key := "marketsync:test:lock:" + uuid.NewString()

	t.Cleanup(func() { c.Underlying().Del(context.Background(), key) })

	lease, err := lock.Acquire(ctx, key, 200*time.Millisecond)
	require.NoError(t, err)
	defer lease.Release()

	require.NoError(t, lease.Refresh(ctx, time.Minute))
	ttl, err := c.Underlying().PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)

	// Another owner took over after expiry.
	require.NoError(t, c.Underlying().Set(ctx, key, "someone-else", time.Minute).Err())
	assert.ErrorIs(t, lease.Refresh(ctx, time.Minute), domain.ErrLockLost)
	assert.Equal(t, "someone-else", c.Underlying().Get(ctx, key).Val())
}

func TestActionStream_RecordAction(t *testing.T) {
	c := liveClient(t)
	ctx := context.Background()
	stream := "marketsync:test:actions:" + uuid.NewString()
	t.Cleanup(func() { c.Underlying().Del(context.Background(), stream) })

	s := NewActionStream(c, stream, 0)
	require.NoError(t, s.RecordAction(ctx, "abc", "paper", domain.ActionRecord{ID: "1", Status: domain.ActionSkipped}))
	require.NoError(t, s.StreamAppend(ctx, stream, []byte(`{"raw":true}`)))

	n, err := c.Underlying().XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
