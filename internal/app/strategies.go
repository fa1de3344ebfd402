package app

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/marketsync/internal/automation"
	"github.com/alanyoungcy/marketsync/internal/config"
	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/trigger"
)

// defaultHedgeSlippageBps bounds the depth check on mirror hedges when none is
// configured. Hedges are always depth-checked.
const defaultHedgeSlippageBps = 150

// BuildAutopilot turns one [[autopilot]] entry into a strategy bound to the
// venue clients in deps.
func BuildAutopilot(c config.AutopilotConfig, deps *Dependencies) (*automation.Autopilot, error) {
	venue, err := domain.ParseVenue(c.Venue)
	if err != nil {
		return nil, fmt.Errorf("app: autopilot %s: %w", c.MarketID, err)
	}

	funcs := automation.AutopilotFuncs{Execute: executeFunc(deps)}
	switch venue {
	case domain.VenuePandora:
		if deps.Pandora == nil {
			return nil, fmt.Errorf("app: autopilot %s: pandora indexer not configured", c.MarketID)
		}
		funcs.Quote = func(ctx context.Context) (domain.Quote, error) {
			return deps.Pandora.Quote(ctx, c.MarketID)
		}
	case domain.VenuePolymarket:
		funcs.Quote = func(ctx context.Context) (domain.Quote, error) {
			return deps.Gamma.Quote(ctx, c.MarketID)
		}
		if c.DepthSlippageBps > 0 {
			funcs.Depth = polymarketDepth(deps, c.MarketID, c.DepthSlippageBps)
		}
	}

	return automation.NewAutopilot(automation.AutopilotConfig{
		Venue:    venue,
		MarketID: c.MarketID,
		Thresholds: trigger.AutopilotThresholds{
			YesBelow: c.YesBelow,
			YesAbove: c.YesAbove,
		},
		AmountUsdc: c.AmountUsdc,
		CooldownMs: c.CooldownMs,
	}, funcs)
}

// BuildMirror turns one [[mirror]] entry into a strategy. The Pandora side is
// always read from the indexer; the source side from its venue.
func BuildMirror(c config.MirrorConfig, deps *Dependencies) (*automation.MirrorSync, error) {
	if deps.Pandora == nil {
		return nil, fmt.Errorf("app: mirror %s: pandora indexer not configured", c.PandoraMarketID)
	}
	venue := domain.VenuePolymarket
	if c.SourceVenue != "" {
		v, err := domain.ParseVenue(c.SourceVenue)
		if err != nil {
			return nil, fmt.Errorf("app: mirror %s: %w", c.PandoraMarketID, err)
		}
		venue = v
	}

	var source MarketReader
	funcs := automation.MirrorFuncs{}
	switch venue {
	case domain.VenuePolymarket:
		source = PolymarketReader{Client: deps.Gamma}
		bps := c.DepthSlippageBps
		if bps <= 0 {
			bps = defaultHedgeSlippageBps
		}
		funcs.Depth = polymarketDepth(deps, c.SourceMarketID, bps)
	case domain.VenuePandora:
		source = PandoraReader{Client: deps.Pandora}
	}

	verifier := NewVerifier(PandoraReader{Client: deps.Pandora}, source, c.PandoraMarketID, c.SourceMarketID, c.MinMatchScore)
	funcs.Verify = verifier.Verify
	funcs.Hedge = executeFunc(deps)
	funcs.Rebalance = executeFunc(deps)

	return automation.NewMirrorSync(automation.MirrorConfig{
		PandoraMarketID: c.PandoraMarketID,
		SourceVenue:     venue,
		SourceMarketID:  c.SourceMarketID,
		Thresholds: trigger.MirrorThresholds{
			DriftTriggerBps:  c.DriftTriggerBps,
			HedgeEnabled:     c.HedgeEnabled,
			HedgeRatio:       c.HedgeRatio,
			HedgeTriggerUsdc: c.HedgeTriggerUsdc,
			MaxHedgeUsdc:     c.MaxHedgeUsdc,
			RebalanceUsdc:    c.RebalanceUsdc,
		},
		MaxCloseDeltaSec: c.MaxCloseDeltaSec,
		CooldownMs:       c.CooldownMs,
	}, funcs)
}

func executeFunc(deps *Dependencies) automation.ExecuteFunc {
	if deps.Executor == nil {
		return nil
	}
	return deps.Executor.Execute
}

// polymarketDepth resolves the market's outcome tokens on every call and
// measures both books.
func polymarketDepth(deps *Dependencies, marketID string, bps float64) automation.DepthFunc {
	return func(ctx context.Context) (*domain.DepthEstimate, error) {
		m, err := deps.Gamma.GetMarket(ctx, marketID)
		if err != nil {
			return nil, err
		}
		yes, no, ok := m.TokenIDs()
		if !ok {
			return nil, fmt.Errorf("app: market %s has no clob tokens: %w", marketID, domain.ErrNotFound)
		}
		return deps.Clob.Depth(ctx, yes, no, bps)
	}
}
