package domain

import "time"

// ActionKind names the state-mutating operation a tick may perform.
type ActionKind string

const (
	ActionTrade     ActionKind = "trade"
	ActionRebalance ActionKind = "rebalance"
	ActionHedge     ActionKind = "hedge"
)

// ActionStatus is the outcome of one attempted action.
type ActionStatus string

const (
	ActionExecuted  ActionStatus = "executed"
	ActionSimulated ActionStatus = "simulated"
	ActionSkipped   ActionStatus = "skipped"
	ActionBlocked   ActionStatus = "blocked"
	ActionFailed    ActionStatus = "failed"
)

// Consumed reports whether the status uses up an idempotency key.
func (s ActionStatus) Consumed() bool {
	return s == ActionExecuted || s == ActionSimulated
}

// Machine-readable reason codes for non-executed outcomes.
const (
	CodeDuplicateKey    = "DUPLICATE_IDEMPOTENCY_KEY"
	CodeRiskGateBlocked = "RISK_GATE_BLOCKED"
	CodeExecutionFailed = "EXECUTION_FAILED"
)

// CheckOutcome is one named risk check as recorded on an action.
type CheckOutcome struct {
	Code   string `json:"code"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// PlannedAction is what a strategy wants to do once its trigger fires.
type PlannedAction struct {
	Kind       ActionKind     `json:"kind"`
	MarketID   string         `json:"marketId"`
	Venue      Venue          `json:"venue"`
	Side       string         `json:"side"`
	Token      string         `json:"token,omitempty"`
	AmountUsdc float64        `json:"amountUsdc"`
	Params     map[string]any `json:"params,omitempty"`
}

// ActionRecord is the ledger entry for a triggered tick.
type ActionRecord struct {
	ID             string           `json:"id"`
	Iteration      int              `json:"iteration"`
	Kind           ActionKind       `json:"kind"`
	Status         ActionStatus     `json:"status"`
	MarketID       string           `json:"marketId"`
	Venue          Venue            `json:"venue"`
	Side           string           `json:"side"`
	Token          string           `json:"token,omitempty"`
	AmountUsdc     float64          `json:"amountUsdc"`
	TriggerCode    string           `json:"triggerCode"`
	Reason         string           `json:"reason"`
	Code           string           `json:"code,omitempty"`
	IdempotencyKey string           `json:"idempotencyKey"`
	FailedChecks   []string         `json:"failedChecks,omitempty"`
	Checks         []CheckOutcome   `json:"checks,omitempty"`
	Result         *ExecutionResult `json:"result,omitempty"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}
