package domain

import "time"

// StateSchemaVersion is bumped whenever the persisted layout changes shape.
const StateSchemaVersion = 1

// StrategyState is the persisted per-strategy document. One file per
// strategy hash; the control loop is its only writer.
type StrategyState struct {
	SchemaVersion    int           `json:"schemaVersion"`
	StrategyHash     string        `json:"strategyHash"`
	Kind             string        `json:"kind"`
	StartedAt        time.Time     `json:"startedAt"`
	LastTickAt       *time.Time    `json:"lastTickAt"`
	TickCount        int64         `json:"tickCount"`
	LastResetDay     string        `json:"lastResetDay"` // UTC YYYY-MM-DD
	DailySpendUsdc   float64       `json:"dailySpendUsdc"`
	TradesToday      int           `json:"tradesToday"`
	CurrentHedgeUsdc float64       `json:"currentHedgeUsdc"`
	IdempotencyKeys  []string      `json:"idempotencyKeys"` // most recent last
	LastExecution    *ActionRecord `json:"lastExecution"`
	Alerts           []Alert       `json:"alerts"`
}

// Alert is a short operator-facing note persisted with the state.
type Alert struct {
	At      time.Time `json:"at"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}
