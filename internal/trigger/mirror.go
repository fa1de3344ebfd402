package trigger

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// Mirror trigger codes.
const (
	CodeDriftAboveTrigger = "DRIFT_ABOVE_TRIGGER"
	CodeHedgeGapAbove     = "HEDGE_GAP_ABOVE_TRIGGER"
	CodeMirrorIdle        = "MIRROR_WITHIN_BOUNDS"
	CodeMirrorNoOdds      = "MIRROR_ODDS_UNAVAILABLE"
)

// MirrorThresholds configures the mirror-sync evaluator.
type MirrorThresholds struct {
	DriftTriggerBps  float64 `json:"driftTriggerBps" toml:"drift_trigger_bps"`
	HedgeEnabled     bool    `json:"hedgeEnabled" toml:"hedge_enabled"`
	HedgeRatio       float64 `json:"hedgeRatio" toml:"hedge_ratio"`
	HedgeTriggerUsdc float64 `json:"hedgeTriggerUsdc" toml:"hedge_trigger_usdc"`
	MaxHedgeUsdc     float64 `json:"maxHedgeUsdc,omitempty" toml:"max_hedge_usdc"`
	RebalanceUsdc    float64 `json:"rebalanceUsdc" toml:"rebalance_usdc"`
}

// Validate rejects negative or non-finite thresholds.
func (t MirrorThresholds) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"driftTriggerBps", t.DriftTriggerBps},
		{"hedgeRatio", t.HedgeRatio},
		{"hedgeTriggerUsdc", t.HedgeTriggerUsdc},
		{"maxHedgeUsdc", t.MaxHedgeUsdc},
		{"rebalanceUsdc", t.RebalanceUsdc},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("trigger: %w: %s must be a finite value >= 0", domain.ErrInvalidConfig, f.name)
		}
	}
	return nil
}

// MirrorSnapshot is the verification payload plus the strategy's current
// hedge position.
type MirrorSnapshot struct {
	Verification     domain.Verification
	CurrentHedgeUsdc float64
}

// MirrorDecision is the result of EvaluateMirror. Rebalance and hedge are
// evaluated independently; the control loop picks at most one per tick.
type MirrorDecision struct {
	DriftBps         *float64 `json:"driftBps"`
	ImbalanceUsdc    float64  `json:"imbalanceUsdc"`
	TargetHedgeUsdc  float64  `json:"targetHedgeUsdc"`
	HedgeGapUsdc     float64  `json:"hedgeGapUsdc"`
	RebalanceTrigger bool     `json:"rebalanceTriggered"`
	RebalanceSide    string   `json:"rebalanceSide,omitempty"`
	RebalanceReason  string   `json:"rebalanceReason"`
	HedgeTrigger     bool     `json:"hedgeTriggered"`
	HedgeSide        string   `json:"hedgeSide,omitempty"`
	HedgeToken       string   `json:"hedgeToken,omitempty"`
	HedgeAmountUsdc  float64  `json:"hedgeAmountUsdc"`
	HedgeReason      string   `json:"hedgeReason"`
}

// EvaluateMirror derives drift and hedge gap from the snapshot.
//
// Imbalance is YES reserve minus NO reserve, so a positive value means more
// YES-side collateral; the hedge target is its negative scaled by HedgeRatio.
// The hedge side is always "buy" with the token picked by the gap sign.
func EvaluateMirror(s MirrorSnapshot, th MirrorThresholds) MirrorDecision {
	var d MirrorDecision
	v := s.Verification

	if v.SourceMarket.YesPct != nil && v.Pandora.YesPct != nil {
		drift := math.Abs(*v.SourceMarket.YesPct-*v.Pandora.YesPct) * 100
		d.DriftBps = &drift
		if drift >= th.DriftTriggerBps {
			d.RebalanceTrigger = true
			if *v.Pandora.YesPct < *v.SourceMarket.YesPct {
				d.RebalanceSide = "yes"
			} else {
				d.RebalanceSide = "no"
			}
			d.RebalanceReason = fmt.Sprintf("drift %.1f bps >= %.1f bps", drift, th.DriftTriggerBps)
		} else {
			d.RebalanceReason = fmt.Sprintf("drift %.1f bps < %.1f bps", drift, th.DriftTriggerBps)
		}
	} else {
		d.RebalanceReason = "source or mirrored YES percentage unavailable"
	}

	yesRes, noRes := deref(v.Pandora.YesReserveUsdc), deref(v.Pandora.NoReserveUsdc)
	d.ImbalanceUsdc = yesRes - noRes
	d.TargetHedgeUsdc = -d.ImbalanceUsdc * th.HedgeRatio
	d.HedgeGapUsdc = d.TargetHedgeUsdc - s.CurrentHedgeUsdc

	switch {
	case !th.HedgeEnabled:
		d.HedgeReason = "hedging disabled"
	case math.Abs(d.HedgeGapUsdc) < th.HedgeTriggerUsdc:
		d.HedgeReason = fmt.Sprintf("hedge gap %.2f below trigger %.2f", d.HedgeGapUsdc, th.HedgeTriggerUsdc)
	default:
		d.HedgeTrigger = true
		d.HedgeSide = "buy"
		if d.HedgeGapUsdc > 0 {
			d.HedgeToken = "yes"
		} else {
			d.HedgeToken = "no"
		}
		amount := math.Abs(d.HedgeGapUsdc)
		if th.MaxHedgeUsdc > 0 && amount > th.MaxHedgeUsdc {
			amount = th.MaxHedgeUsdc
		}
		d.HedgeAmountUsdc = amount
		d.HedgeReason = fmt.Sprintf("hedge gap %.2f >= trigger %.2f", d.HedgeGapUsdc, th.HedgeTriggerUsdc)
	}
	return d
}

// Code summarizes the decision for snapshots.
func (d MirrorDecision) Code() string {
	switch {
	case d.RebalanceTrigger:
		return CodeDriftAboveTrigger
	case d.HedgeTrigger:
		return CodeHedgeGapAbove
	case d.DriftBps == nil:
		return CodeMirrorNoOdds
	default:
		return CodeMirrorIdle
	}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
