package statestore

import (
	"slices"
	"time"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

const (
	// DefaultMaxIdempotencyKeys bounds the idempotency ring.
	DefaultMaxIdempotencyKeys = 500
	// MaxAlerts bounds the persisted alert list.
	MaxAlerts = 100
)

// PruneIdempotencyKeys keeps the newest maxKeys keys, evicting the oldest first.
// A maxKeys of zero or less means DefaultMaxIdempotencyKeys.
func PruneIdempotencyKeys(state *domain.StrategyState, maxKeys int) {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxIdempotencyKeys
	}
	if n := len(state.IdempotencyKeys); n > maxKeys {
		state.IdempotencyKeys = append([]string(nil), state.IdempotencyKeys[n-maxKeys:]...)
	}
}

// HasIdempotencyKey reports whether key has already been used.
func HasIdempotencyKey(state *domain.StrategyState, key string) bool {
	return slices.Contains(state.IdempotencyKeys, key)
}

// RecordIdempotencyKey appends key as the most recent entry and prunes.
func RecordIdempotencyKey(state *domain.StrategyState, key string, maxKeys int) {
	state.IdempotencyKeys = append(state.IdempotencyKeys, key)
	PruneIdempotencyKeys(state, maxKeys)
}

// AppendAlert records an operator alert, keeping the newest MaxAlerts.
func AppendAlert(state *domain.StrategyState, at time.Time, code, message string) {
	state.Alerts = append(state.Alerts, domain.Alert{At: at.UTC(), Code: code, Message: message})
	if n := len(state.Alerts); n > MaxAlerts {
		state.Alerts = append([]domain.Alert(nil), state.Alerts[n-MaxAlerts:]...)
	}
}

// ResetDailyCountersIfNeeded zeroes the daily spend and trade counters when
// now falls on a different UTC day than the last reset. It reports whether a
// reset happened.
func ResetDailyCountersIfNeeded(state *domain.StrategyState, now time.Time) bool {
	day := UTCDay(now)
	if state.LastResetDay == day {
		return false
	}
	state.DailySpendUsdc = 0
	state.TradesToday = 0
	state.LastResetDay = day
	return true
}
