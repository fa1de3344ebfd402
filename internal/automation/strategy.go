// Package automation runs trigger-driven strategies as a sequential tick
// loop: kill-switch check, daily reset, evaluate, idempotency, risk gate,
// execute or simulate, persist, notify, sleep.
package automation

import (
	"context"
	"os"
	"time"

	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/risk"
)

// Strategy kinds.
const (
	KindAutopilot = "autopilot"
	KindMirror    = "mirror"
)

// Evaluation is what a strategy observed on one tick and what it wants to do.
type Evaluation struct {
	Triggered bool
	Code      string
	Reason    string
	// Direction feeds the idempotency key; two ticks in the same bucket with
	// the same direction collapse to one action.
	Direction string
	Action    *domain.PlannedAction
	// Checks are the strategy-specific risk checks. The loop appends the
	// exposure and trade caps.
	Checks      []risk.CheckResult
	Data        map[string]any
	Diagnostics []string
	// Fallback is tried on the same tick when Action is skipped or blocked.
	Fallback *Evaluation
}

// Strategy is one instantiation of the control loop.
type Strategy interface {
	Kind() string
	// Hash is the config hash keying the state file.
	Hash() string
	// Identity is the normalized identity used in idempotency keys.
	Identity() string
	Cooldown() time.Duration
	// Ready validates that the strategy can run in the requested mode.
	Ready(live bool) error
	Evaluate(ctx context.Context, state *domain.StrategyState, now time.Time) (Evaluation, error)
	Execute(ctx context.Context, action domain.PlannedAction) (*domain.ExecutionResult, error)
	// Apply folds a consumed action into strategy-specific state.
	Apply(state *domain.StrategyState, action domain.PlannedAction, result *domain.ExecutionResult)
}

// I/O collaborators injected into strategies.
type (
	QuoteFunc   func(ctx context.Context) (domain.Quote, error)
	VerifyFunc  func(ctx context.Context) (domain.Verification, error)
	DepthFunc   func(ctx context.Context) (*domain.DepthEstimate, error)
	ExecuteFunc func(ctx context.Context, action domain.PlannedAction) (*domain.ExecutionResult, error)
)

// KillSwitchActive reports whether the kill-switch file exists. Its content
// is irrelevant. An empty path disables the switch.
func KillSwitchActive(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
