package statestore

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPruneIdempotencyKeys(t *testing.T) {
	st := NewState("h", "k", t0)
	for i := 0; i < 10; i++ {
		st.IdempotencyKeys = append(st.IdempotencyKeys, fmt.Sprintf("k%d", i))
	}
	PruneIdempotencyKeys(st, 3)
	assert.Equal(t, []string{"k7", "k8", "k9"}, st.IdempotencyKeys)

	PruneIdempotencyKeys(st, 5)
	assert.Len(t, st.IdempotencyKeys, 3)
}

func TestPruneIdempotencyKeys_Default(t *testing.T) {
	st := NewState("h", "k", t0)
	for i := 0; i < DefaultMaxIdempotencyKeys+20; i++ {
		RecordIdempotencyKey(st, fmt.Sprintf("k%d", i), 0)
	}
	assert.Len(t, st.IdempotencyKeys, DefaultMaxIdempotencyKeys)
	assert.Equal(t, "k20", st.IdempotencyKeys[0])
	assert.True(t, HasIdempotencyKey(st, "k519"))
	assert.False(t, HasIdempotencyKey(st, "k19"))
}

func TestAppendAlert_Bounded(t *testing.T) {
	st := NewState("h", "k", t0)
	for i := 0; i < MaxAlerts+5; i++ {
		AppendAlert(st, t0, "CODE", fmt.Sprintf("m%d", i))
	}
	assert.Len(t, st.Alerts, MaxAlerts)
	assert.Equal(t, "m5", st.Alerts[0].Message)
	assert.Equal(t, fmt.Sprintf("m%d", MaxAlerts+4), st.Alerts[MaxAlerts-1].Message)
}

func TestResetDailyCountersIfNeeded(t *testing.T) {
	st := NewState("h", "k", t0)
	st.DailySpendUsdc = 40
	st.TradesToday = 2

	// Same UTC day: many ticks, no reset.
	for _, d := range []time.Duration{0, time.Hour, 14 * time.Hour} {
		assert.False(t, ResetDailyCountersIfNeeded(st, t0.Add(d)))
	}
	assert.Equal(t, 40.0, st.DailySpendUsdc)
	assert.Equal(t, 2, st.TradesToday)

	// A non-UTC clock on the same UTC day still does not reset.
	tokyo := time.FixedZone("JST", 9*3600)
	assert.False(t, ResetDailyCountersIfNeeded(st, time.Date(2026, 3, 15, 8, 0, 0, 0, tokyo)))

	next := time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC)
	assert.True(t, ResetDailyCountersIfNeeded(st, next))
	assert.Equal(t, 0.0, st.DailySpendUsdc)
	assert.Equal(t, 0, st.TradesToday)
	assert.Equal(t, "2026-03-15", st.LastResetDay)
	assert.False(t, ResetDailyCountersIfNeeded(st, next.Add(time.Hour)))
}
