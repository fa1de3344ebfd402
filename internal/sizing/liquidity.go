// Package sizing recommends how much liquidity to seed a mirrored market with
// and how to split it between the YES and NO sides.
package sizing

import (
	"errors"
	"fmt"
	"math"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// Binding floor names reported on a recommendation.
const (
	FloorVolume = "volume"
	FloorDepth  = "depth"
	FloorImpact = "impact"
)

// SizingParams is the full input to Recommend. Volume and depth come from the
// source market; the rest are tunables.
type SizingParams struct {
	Volume24hUSD           float64 `json:"volume24hUsd"`
	DepthWithinSlippageUSD float64 `json:"depthWithinSlippageUsd"`
	TargetSlippageBps      float64 `json:"targetSlippageBps"`
	TurnoverTarget         float64 `json:"turnoverTarget"`
	DepthUtilization       float64 `json:"depthUtilization"`
	SafetyMultiplier       float64 `json:"safetyMultiplier"`
	Beta                   float64 `json:"beta"`
	QMin                   float64 `json:"qMin"`
	QMax                   float64 `json:"qMax"`
	MinLiquidityUSD        float64 `json:"minLiquidityUsd"`
	MaxLiquidityUSD        float64 `json:"maxLiquidityUsd"`
}

// DefaultSizingParams returns the tunables with no market inputs set.
func DefaultSizingParams() SizingParams {
	return SizingParams{
		TargetSlippageBps: 150,
		TurnoverTarget:    1.25,
		DepthUtilization:  0.5,
		SafetyMultiplier:  1.2,
		Beta:              0.01,
		QMin:              25,
		QMax:              2500,
		MinLiquidityUSD:   100,
		MaxLiquidityUSD:   50000,
	}
}

// Validate reports every invalid parameter at once.
func (p SizingParams) Validate() error {
	var errs []error
	finite := func(name string, v float64) bool {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be finite", name))
			return false
		}
		return true
	}
	positive := func(name string, v float64) {
		if finite(name, v) && v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if finite(name, v) && v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}

	nonNegative("volume24hUsd", p.Volume24hUSD)
	nonNegative("depthWithinSlippageUsd", p.DepthWithinSlippageUSD)
	positive("targetSlippageBps", p.TargetSlippageBps)
	positive("turnoverTarget", p.TurnoverTarget)
	positive("depthUtilization", p.DepthUtilization)
	positive("safetyMultiplier", p.SafetyMultiplier)
	nonNegative("beta", p.Beta)
	nonNegative("qMin", p.QMin)
	nonNegative("qMax", p.QMax)
	nonNegative("minLiquidityUsd", p.MinLiquidityUSD)
	positive("maxLiquidityUsd", p.MaxLiquidityUSD)
	if p.QMin > p.QMax {
		errs = append(errs, fmt.Errorf("qMin (%v) exceeds qMax (%v)", p.QMin, p.QMax))
	}
	if p.MinLiquidityUSD > p.MaxLiquidityUSD {
		errs = append(errs, fmt.Errorf("minLiquidityUsd (%v) exceeds maxLiquidityUsd (%v)", p.MinLiquidityUSD, p.MaxLiquidityUSD))
	}
	if len(errs) > 0 {
		return fmt.Errorf("sizing: %w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LiquidityRecommendation is the result of Recommend.
type LiquidityRecommendation struct {
	LVolumeUSD     float64 `json:"lVolumeUsd"`
	LDepthUSD      float64 `json:"lDepthUsd"`
	LImpactUSD     float64 `json:"lImpactUsd"`
	RawUSD         float64 `json:"rawUsd"`
	RecommendedUSD float64 `json:"recommendedUsd"`
	BoundedByMin   bool    `json:"boundedByMin"`
	BoundedByMax   bool    `json:"boundedByMax"`
	BindingFloor   string  `json:"bindingFloor"`
}

// Recommend computes the three liquidity floors and clamps the safety-scaled
// maximum into [MinLiquidityUSD, MaxLiquidityUSD].
func Recommend(p SizingParams) (LiquidityRecommendation, error) {
	if err := p.Validate(); err != nil {
		return LiquidityRecommendation{}, err
	}

	lVolume := p.Volume24hUSD / p.TurnoverTarget
	lDepth := p.DepthWithinSlippageUSD / p.DepthUtilization
	q := clamp(p.Beta*p.Volume24hUSD, p.QMin, p.QMax)
	lImpact := q / (p.TargetSlippageBps / 10000)

	floor, binding := lVolume, FloorVolume
	if lDepth > floor {
		floor, binding = lDepth, FloorDepth
	}
	if lImpact > floor {
		floor, binding = lImpact, FloorImpact
	}

	raw := floor * p.SafetyMultiplier
	rec := LiquidityRecommendation{
		LVolumeUSD:     lVolume,
		LDepthUSD:      lDepth,
		LImpactUSD:     lImpact,
		RawUSD:         raw,
		RecommendedUSD: clamp(raw, p.MinLiquidityUSD, p.MaxLiquidityUSD),
		BindingFloor:   binding,
	}
	rec.BoundedByMin = raw < p.MinLiquidityUSD
	rec.BoundedByMax = raw > p.MaxLiquidityUSD
	return rec, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
