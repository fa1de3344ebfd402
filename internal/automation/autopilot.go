package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/risk"
	"github.com/alanyoungcy/marketsync/internal/statestore"
	"github.com/alanyoungcy/marketsync/internal/trigger"
)

// AutopilotConfig is the hashed configuration of a single-market trader.
type AutopilotConfig struct {
	Venue      domain.Venue                `json:"venue"`
	MarketID   string                      `json:"marketId"`
	Thresholds trigger.AutopilotThresholds `json:"thresholds"`
	AmountUsdc float64                     `json:"amountUsdc"`
	CooldownMs int64                       `json:"cooldownMs"`
}

// AutopilotFuncs are the autopilot's I/O collaborators. Depth and Execute
// are optional; without Depth no depth check runs, and without Execute only
// paper mode is possible.
type AutopilotFuncs struct {
	Quote   QuoteFunc
	Depth   DepthFunc
	Execute ExecuteFunc
}

// Autopilot buys one side of a single market when YES crosses a threshold.
type Autopilot struct {
	cfg   AutopilotConfig
	funcs AutopilotFuncs
	hash  string
}

// NewAutopilot validates cfg and computes its hash.
func NewAutopilot(cfg AutopilotConfig, funcs AutopilotFuncs) (*Autopilot, error) {
	var problems []string
	if _, err := domain.ParseVenue(string(cfg.Venue)); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(cfg.MarketID) == "" {
		problems = append(problems, "marketId is required")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if !(cfg.AmountUsdc > 0) {
		problems = append(problems, "amountUsdc must be > 0")
	}
	if cfg.CooldownMs < 0 {
		problems = append(problems, "cooldownMs must be >= 0")
	}
	if funcs.Quote == nil {
		problems = append(problems, "quote function is required")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("automation: autopilot: %w: %s", domain.ErrInvalidConfig, strings.Join(problems, "; "))
	}

	hash, err := statestore.ComputeHash(cfg)
	if err != nil {
		return nil, fmt.Errorf("automation: autopilot: %w", err)
	}
	return &Autopilot{cfg: cfg, funcs: funcs, hash: hash}, nil
}

func (a *Autopilot) Kind() string { return KindAutopilot }

func (a *Autopilot) Hash() string { return a.hash }

func (a *Autopilot) Identity() string {
	return fmt.Sprintf("%s:%s:%s", KindAutopilot, a.cfg.Venue, a.cfg.MarketID)
}

func (a *Autopilot) Cooldown() time.Duration {
	return time.Duration(a.cfg.CooldownMs) * time.Millisecond
}

func (a *Autopilot) Ready(live bool) error {
	if live && a.funcs.Execute == nil {
		return fmt.Errorf("automation: autopilot: %w", domain.ErrExecutorMissing)
	}
	return nil
}

// Evaluate fetches a quote and applies the one-sided threshold. A failed
// quote is reported as ODDS_UNAVAILABLE with a diagnostic.
func (a *Autopilot) Evaluate(ctx context.Context, _ *domain.StrategyState, _ time.Time) (Evaluation, error) {
	q, err := a.funcs.Quote(ctx)
	if err != nil {
		return Evaluation{
			Code:        trigger.CodeOddsUnavailable,
			Reason:      "quote unavailable",
			Diagnostics: []string{fmt.Sprintf("quote: %v", err)},
		}, nil
	}

	d := trigger.EvaluateAutopilot(q, a.cfg.Thresholds)
	ev := Evaluation{
		Triggered: d.Triggered,
		Code:      d.Code,
		Reason:    d.Reason,
		Direction: d.Direction(),
		Data: map[string]any{
			"quote":    q,
			"decision": d,
		},
	}
	if !d.Triggered {
		return ev, nil
	}

	ev.Action = &domain.PlannedAction{
		Kind:       domain.ActionTrade,
		MarketID:   a.cfg.MarketID,
		Venue:      a.cfg.Venue,
		Side:       "buy",
		Token:      d.Side,
		AmountUsdc: a.cfg.AmountUsdc,
	}
	if a.funcs.Depth != nil {
		depth, err := a.funcs.Depth(ctx)
		if err != nil {
			ev.Diagnostics = append(ev.Diagnostics, fmt.Sprintf("depth: %v", err))
		}
		ev.Data["depth"] = depth
		ev.Checks = append(ev.Checks, risk.DepthCoverage(depth, a.cfg.AmountUsdc))
	}
	return ev, nil
}

func (a *Autopilot) Execute(ctx context.Context, action domain.PlannedAction) (*domain.ExecutionResult, error) {
	if a.funcs.Execute == nil {
		return nil, domain.ErrExecutorMissing
	}
	return a.funcs.Execute(ctx, action)
}

// Apply has nothing beyond the shared counters to track.
func (a *Autopilot) Apply(*domain.StrategyState, domain.PlannedAction, *domain.ExecutionResult) {}
