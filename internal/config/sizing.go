package config

import "github.com/alanyoungcy/marketsync/internal/sizing"

// Params converts the TOML sizing section into model parameters. Market
// inputs (volume, depth) are left as configured; callers fill them from a
// live market when MarketID is set.
func (s SizingConfig) Params() sizing.SizingParams {
	return sizing.SizingParams{
		Volume24hUSD:           s.Volume24hUSD,
		DepthWithinSlippageUSD: s.DepthUSD,
		TargetSlippageBps:      s.TargetSlippageBps,
		TurnoverTarget:         s.TurnoverTarget,
		DepthUtilization:       s.DepthUtilization,
		SafetyMultiplier:       s.SafetyMultiplier,
		Beta:                   s.Beta,
		QMin:                   s.QMin,
		QMax:                   s.QMax,
		MinLiquidityUSD:        s.MinLiquidityUSD,
		MaxLiquidityUSD:        s.MaxLiquidityUSD,
	}
}
