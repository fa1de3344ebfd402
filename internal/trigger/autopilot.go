// Package trigger decides whether a strategy should act on the current
// snapshot. Every evaluator here is a pure function of its inputs.
package trigger

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// Autopilot trigger codes.
const (
	CodeYesBelow        = "YES_BELOW_THRESHOLD"
	CodeYesAbove        = "YES_ABOVE_THRESHOLD"
	CodeNotTriggered    = "NOT_TRIGGERED"
	CodeOddsUnavailable = "ODDS_UNAVAILABLE"
)

// AutopilotThresholds is a one-sided YES trigger. Exactly one bound is set.
type AutopilotThresholds struct {
	YesBelow *float64 `json:"triggerYesBelow,omitempty" toml:"trigger_yes_below"`
	YesAbove *float64 `json:"triggerYesAbove,omitempty" toml:"trigger_yes_above"`
}

// Validate enforces the xor and the 0-100 range.
func (t AutopilotThresholds) Validate() error {
	switch {
	case t.YesBelow == nil && t.YesAbove == nil:
		return fmt.Errorf("trigger: %w: one of triggerYesBelow or triggerYesAbove is required", domain.ErrInvalidConfig)
	case t.YesBelow != nil && t.YesAbove != nil:
		return fmt.Errorf("trigger: %w: triggerYesBelow and triggerYesAbove are mutually exclusive", domain.ErrInvalidConfig)
	}
	v := t.YesBelow
	if v == nil {
		v = t.YesAbove
	}
	if !validPct(*v) {
		return fmt.Errorf("trigger: %w: threshold %v outside [0, 100]", domain.ErrInvalidConfig, *v)
	}
	return nil
}

// AutopilotDecision is the result of EvaluateAutopilot.
type AutopilotDecision struct {
	Triggered bool     `json:"triggered"`
	Reason    string   `json:"reason"`
	Code      string   `json:"code"`
	Side      string   `json:"side,omitempty"`
	YesPct    *float64 `json:"yesPct"`
}

// Direction is the idempotency direction of a fired decision.
func (d AutopilotDecision) Direction() string {
	return d.Code
}

// EvaluateAutopilot compares the quote's YES percentage to the threshold.
// Missing or invalid odds never fire and never error.
func EvaluateAutopilot(q domain.Quote, th AutopilotThresholds) AutopilotDecision {
	if q.YesPct == nil {
		return AutopilotDecision{Code: CodeOddsUnavailable, Reason: "quote has no YES percentage"}
	}
	yes := *q.YesPct
	if !validPct(yes) {
		return AutopilotDecision{Code: CodeOddsUnavailable, Reason: fmt.Sprintf("quote YES percentage %v is invalid", yes), YesPct: q.YesPct}
	}
	switch {
	case th.YesBelow != nil && yes < *th.YesBelow:
		return AutopilotDecision{
			Triggered: true,
			Code:      CodeYesBelow,
			Side:      "yes",
			Reason:    fmt.Sprintf("YES %.4g%% is below %.4g%%", yes, *th.YesBelow),
			YesPct:    q.YesPct,
		}
	case th.YesAbove != nil && yes > *th.YesAbove:
		return AutopilotDecision{
			Triggered: true,
			Code:      CodeYesAbove,
			Side:      "no",
			Reason:    fmt.Sprintf("YES %.4g%% is above %.4g%%", yes, *th.YesAbove),
			YesPct:    q.YesPct,
		}
	}
	return AutopilotDecision{Code: CodeNotTriggered, Reason: fmt.Sprintf("YES %.4g%% inside threshold", yes), YesPct: q.YesPct}
}

func validPct(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 100
}
