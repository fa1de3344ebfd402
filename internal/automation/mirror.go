package automation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/risk"
	"github.com/alanyoungcy/marketsync/internal/statestore"
	"github.com/alanyoungcy/marketsync/internal/trigger"
)

// CodeVerificationUnavailable marks a mirror tick whose verification failed.
const CodeVerificationUnavailable = "VERIFICATION_UNAVAILABLE"

// DefaultMaxCloseDeltaSec is the strict close-time window for mirror actions.
const DefaultMaxCloseDeltaSec int64 = 2 * 3600

// MirrorConfig is the hashed configuration of a cross-venue mirror.
type MirrorConfig struct {
	PandoraMarketID  string                   `json:"pandoraMarketId"`
	SourceVenue      domain.Venue             `json:"sourceVenue"`
	SourceMarketID   string                   `json:"sourceMarketId"`
	Thresholds       trigger.MirrorThresholds `json:"thresholds"`
	MaxCloseDeltaSec int64                    `json:"maxCloseDeltaSec"`
	CooldownMs       int64                    `json:"cooldownMs"`
}

// MirrorFuncs are the mirror's I/O collaborators. Hedge and Rebalance are
// only needed for live mode.
type MirrorFuncs struct {
	Verify    VerifyFunc
	Depth     DepthFunc
	Hedge     ExecuteFunc
	Rebalance ExecuteFunc
}

// MirrorSync keeps a mirrored Pandora market aligned with its source market
// by rebalancing on drift and hedging reserve imbalance on the source venue.
type MirrorSync struct {
	cfg   MirrorConfig
	funcs MirrorFuncs
	hash  string
}

// NewMirrorSync validates cfg and computes its hash.
func NewMirrorSync(cfg MirrorConfig, funcs MirrorFuncs) (*MirrorSync, error) {
	if cfg.SourceVenue == "" {
		cfg.SourceVenue = domain.VenuePolymarket
	}
	if cfg.MaxCloseDeltaSec == 0 {
		cfg.MaxCloseDeltaSec = DefaultMaxCloseDeltaSec
	}

	var problems []string
	if strings.TrimSpace(cfg.PandoraMarketID) == "" {
		problems = append(problems, "pandoraMarketId is required")
	}
	if strings.TrimSpace(cfg.SourceMarketID) == "" {
		problems = append(problems, "sourceMarketId is required")
	}
	if _, err := domain.ParseVenue(string(cfg.SourceVenue)); err != nil {
		problems = append(problems, err.Error())
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.Thresholds.RebalanceUsdc <= 0 {
		problems = append(problems, "rebalanceUsdc must be > 0")
	}
	if cfg.MaxCloseDeltaSec < 0 {
		problems = append(problems, "maxCloseDeltaSec must be >= 0")
	}
	if cfg.CooldownMs < 0 {
		problems = append(problems, "cooldownMs must be >= 0")
	}
	if funcs.Verify == nil {
		problems = append(problems, "verify function is required")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("automation: mirror: %w: %s", domain.ErrInvalidConfig, strings.Join(problems, "; "))
	}

	hash, err := statestore.ComputeHash(cfg)
	if err != nil {
		return nil, fmt.Errorf("automation: mirror: %w", err)
	}
	return &MirrorSync{cfg: cfg, funcs: funcs, hash: hash}, nil
}

func (m *MirrorSync) Kind() string { return KindMirror }

func (m *MirrorSync) Hash() string { return m.hash }

func (m *MirrorSync) Identity() string {
	return fmt.Sprintf("%s:%s:%s", KindMirror, m.cfg.PandoraMarketID, m.cfg.SourceMarketID)
}

func (m *MirrorSync) Cooldown() time.Duration {
	return time.Duration(m.cfg.CooldownMs) * time.Millisecond
}

func (m *MirrorSync) Ready(live bool) error {
	if !live {
		return nil
	}
	if m.funcs.Rebalance == nil {
		return fmt.Errorf("automation: mirror: rebalance: %w", domain.ErrExecutorMissing)
	}
	if m.cfg.Thresholds.HedgeEnabled && m.funcs.Hedge == nil {
		return fmt.Errorf("automation: mirror: hedge: %w", domain.ErrExecutorMissing)
	}
	return nil
}

// Evaluate verifies the pair and derives drift and hedge gap. When both fire
// the rebalance is the primary action and the hedge its fallback, so a
// rebalance that is skipped or blocked does not hold back the hedge.
func (m *MirrorSync) Evaluate(ctx context.Context, state *domain.StrategyState, _ time.Time) (Evaluation, error) {
	v, err := m.funcs.Verify(ctx)
	if err != nil {
		return Evaluation{
			Code:        CodeVerificationUnavailable,
			Reason:      "verification unavailable",
			Diagnostics: []string{fmt.Sprintf("verify: %v", err)},
		}, nil
	}

	d := trigger.EvaluateMirror(trigger.MirrorSnapshot{
		Verification:     v,
		CurrentHedgeUsdc: state.CurrentHedgeUsdc,
	}, m.cfg.Thresholds)

	data := map[string]any{
		"verification": v,
		"decision":     d,
	}
	baseChecks := []risk.CheckResult{
		risk.MatchAndRules(v.Gate),
		risk.CloseTimeDelta(v, m.cfg.MaxCloseDeltaSec),
	}

	switch {
	case d.RebalanceTrigger:
		ev := m.rebalance(d, baseChecks)
		ev.Data = data
		if d.HedgeTrigger {
			hedge := m.hedge(ctx, d, baseChecks, data)
			ev.Fallback = &hedge
			ev.Diagnostics = append(ev.Diagnostics, fmt.Sprintf("hedge deferred behind rebalance (gap %.2f)", d.HedgeGapUsdc))
			ev.Diagnostics = append(ev.Diagnostics, hedge.Diagnostics...)
		}
		return ev, nil
	case d.HedgeTrigger:
		ev := m.hedge(ctx, d, baseChecks, data)
		ev.Data = data
		return ev, nil
	default:
		return Evaluation{
			Code:   d.Code(),
			Reason: d.RebalanceReason + "; " + d.HedgeReason,
			Data:   data,
		}, nil
	}
}

func (m *MirrorSync) rebalance(d trigger.MirrorDecision, baseChecks []risk.CheckResult) Evaluation {
	return Evaluation{
		Triggered: true,
		Code:      trigger.CodeDriftAboveTrigger,
		Reason:    d.RebalanceReason,
		Direction: "rebalance_" + d.RebalanceSide,
		Checks:    slices.Clone(baseChecks),
		Action: &domain.PlannedAction{
			Kind:       domain.ActionRebalance,
			MarketID:   m.cfg.PandoraMarketID,
			Venue:      domain.VenuePandora,
			Side:       "buy",
			Token:      d.RebalanceSide,
			AmountUsdc: m.cfg.Thresholds.RebalanceUsdc,
			Params:     map[string]any{"driftBps": *d.DriftBps},
		},
	}
}

// hedge builds the hedge candidate. The depth read lands in data.
func (m *MirrorSync) hedge(ctx context.Context, d trigger.MirrorDecision, baseChecks []risk.CheckResult, data map[string]any) Evaluation {
	ev := Evaluation{
		Triggered: true,
		Code:      trigger.CodeHedgeGapAbove,
		Reason:    d.HedgeReason,
		Direction: "hedge_" + d.HedgeToken,
		Action: &domain.PlannedAction{
			Kind:       domain.ActionHedge,
			MarketID:   m.cfg.SourceMarketID,
			Venue:      m.cfg.SourceVenue,
			Side:       d.HedgeSide,
			Token:      d.HedgeToken,
			AmountUsdc: d.HedgeAmountUsdc,
			Params: map[string]any{
				"targetHedgeUsdc": d.TargetHedgeUsdc,
				"hedgeGapUsdc":    d.HedgeGapUsdc,
			},
		},
	}
	var depth *domain.DepthEstimate
	if m.funcs.Depth != nil {
		var err error
		depth, err = m.funcs.Depth(ctx)
		if err != nil {
			ev.Diagnostics = append(ev.Diagnostics, fmt.Sprintf("depth: %v", err))
		}
	}
	data["depth"] = depth
	ev.Checks = append(slices.Clone(baseChecks), risk.DepthCoverage(depth, d.HedgeAmountUsdc))
	return ev
}

func (m *MirrorSync) Execute(ctx context.Context, action domain.PlannedAction) (*domain.ExecutionResult, error) {
	var fn ExecuteFunc
	switch action.Kind {
	case domain.ActionHedge:
		fn = m.funcs.Hedge
	case domain.ActionRebalance:
		fn = m.funcs.Rebalance
	}
	if fn == nil {
		return nil, domain.ErrExecutorMissing
	}
	return fn(ctx, action)
}

// Apply moves the tracked hedge toward its target: YES hedges add, NO
// hedges subtract.
func (m *MirrorSync) Apply(state *domain.StrategyState, action domain.PlannedAction, result *domain.ExecutionResult) {
	if action.Kind != domain.ActionHedge {
		return
	}
	amount := action.AmountUsdc
	if result != nil && result.FilledUsdc > 0 {
		amount = result.FilledUsdc
	}
	if action.Token == "no" {
		amount = -amount
	}
	state.CurrentHedgeUsdc += amount
}
