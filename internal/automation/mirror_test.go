package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/risk"
	"github.com/alanyoungcy/marketsync/internal/trigger"
)

func mirrorCfg() MirrorConfig {
	return MirrorConfig{
		PandoraMarketID: "0x1111111111111111111111111111111111111111",
		SourceMarketID:  "btc-100k",
		Thresholds: trigger.MirrorThresholds{
			DriftTriggerBps:  150,
			HedgeEnabled:     true,
			HedgeRatio:       0.5,
			HedgeTriggerUsdc: 25,
			RebalanceUsdc:    20,
		},
		CooldownMs: 60_000,
	}
}

func fixedVerification(sourceYes, pandoraYes, yesRes, noRes float64) VerifyFunc {
	return func(context.Context) (domain.Verification, error) {
		return domain.Verification{
			MatchConfidence: 0.93,
			Gate:            domain.GateResult{Passed: true},
			Pandora: domain.MarketView{
				Venue: domain.VenuePandora, YesPct: pct(pandoraYes),
				YesReserveUsdc: pct(yesRes), NoReserveUsdc: pct(noRes),
				CloseTimestamp: ts(1_800_000_000),
			},
			SourceMarket: domain.MarketView{
				Venue: domain.VenuePolymarket, YesPct: pct(sourceYes),
				CloseTimestamp: ts(1_800_000_600),
			},
		}, nil
	}
}

func deepBook(context.Context) (*domain.DepthEstimate, error) {
	return &domain.DepthEstimate{DepthWithinSlippageUSD: 10_000}, nil
}

func TestNewMirrorSync_Defaults(t *testing.T) {
	m, err := NewMirrorSync(mirrorCfg(), MirrorFuncs{Verify: fixedVerification(50, 50, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, domain.VenuePolymarket, m.cfg.SourceVenue)
	assert.Equal(t, DefaultMaxCloseDeltaSec, m.cfg.MaxCloseDeltaSec)
	assert.Equal(t, KindMirror, m.Kind())

	_, err = NewMirrorSync(MirrorConfig{}, MirrorFuncs{})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "pandoraMarketId is required")
	assert.Contains(t, err.Error(), "verify function is required")
}

func TestMirrorSync_Ready(t *testing.T) {
	m, err := NewMirrorSync(mirrorCfg(), MirrorFuncs{Verify: fixedVerification(50, 50, 0, 0)})
	require.NoError(t, err)
	assert.NoError(t, m.Ready(false))
	assert.ErrorIs(t, m.Ready(true), domain.ErrExecutorMissing)

	noop := func(context.Context, domain.PlannedAction) (*domain.ExecutionResult, error) { return nil, nil }
	m, err = NewMirrorSync(mirrorCfg(), MirrorFuncs{Verify: fixedVerification(50, 50, 0, 0), Rebalance: noop})
	require.NoError(t, err)
	assert.ErrorIs(t, m.Ready(true), domain.ErrExecutorMissing, "hedging enabled needs a hedge executor")

	m, err = NewMirrorSync(mirrorCfg(), MirrorFuncs{Verify: fixedVerification(50, 50, 0, 0), Rebalance: noop, Hedge: noop})
	require.NoError(t, err)
	assert.NoError(t, m.Ready(true))
}

func TestMirrorSync_RebalanceFirstHedgeFallback(t *testing.T) {
	// Drift 200 bps and a 150 USDC hedge gap both fire.
	m, err := NewMirrorSync(mirrorCfg(), MirrorFuncs{Verify: fixedVerification(52, 50, 1300, 1000), Depth: deepBook})
	require.NoError(t, err)

	ev, err := m.Evaluate(context.Background(), &domain.StrategyState{}, t0)
	require.NoError(t, err)
	assert.True(t, ev.Triggered)
	assert.Equal(t, trigger.CodeDriftAboveTrigger, ev.Code)
	assert.Equal(t, "rebalance_yes", ev.Direction)
	require.NotNil(t, ev.Action)
	assert.Equal(t, domain.ActionRebalance, ev.Action.Kind)
	assert.Equal(t, domain.VenuePandora, ev.Action.Venue)
	assert.Equal(t, 20.0, ev.Action.AmountUsdc)
	require.Len(t, ev.Diagnostics, 1)
	assert.Contains(t, ev.Diagnostics[0], "hedge deferred")

	require.NotNil(t, ev.Fallback)
	assert.Equal(t, trigger.CodeHedgeGapAbove, ev.Fallback.Code)
	assert.Equal(t, "hedge_no", ev.Fallback.Direction)
	require.NotNil(t, ev.Fallback.Action)
	assert.Equal(t, domain.ActionHedge, ev.Fallback.Action.Kind)
	assert.Equal(t, 150.0, ev.Fallback.Action.AmountUsdc)
	require.Len(t, ev.Fallback.Checks, 3)
	assert.Equal(t, risk.CodeDepthCoverage, ev.Fallback.Checks[2].Code)

	codes := []string{}
	for _, c := range ev.Checks {
		codes = append(codes, c.Code)
		assert.True(t, c.Passed, c.Code)
	}
	assert.Equal(t, []string{risk.CodeMatchAndRules, risk.CodeCloseTimeDelta}, codes)
}

func TestMirrorSync_Hedge(t *testing.T) {
	m, err := NewMirrorSync(mirrorCfg(), MirrorFuncs{Verify: fixedVerification(50, 50, 1300, 1000), Depth: deepBook})
	require.NoError(t, err)

	ev, err := m.Evaluate(context.Background(), &domain.StrategyState{}, t0)
	require.NoError(t, err)
	assert.True(t, ev.Triggered)
	assert.Equal(t, trigger.CodeHedgeGapAbove, ev.Code)
	assert.Equal(t, "hedge_no", ev.Direction)
	require.NotNil(t, ev.Action)
	assert.Equal(t, domain.ActionHedge, ev.Action.Kind)
	assert.Equal(t, domain.VenuePolymarket, ev.Action.Venue)
	assert.Equal(t, "btc-100k", ev.Action.MarketID)
	assert.Equal(t, "buy", ev.Action.Side)
	assert.Equal(t, "no", ev.Action.Token)
	assert.Equal(t, 150.0, ev.Action.AmountUsdc)
	require.Len(t, ev.Checks, 3)
	assert.Equal(t, risk.CodeDepthCoverage, ev.Checks[2].Code)
	assert.True(t, ev.Checks[2].Passed)

	state := &domain.StrategyState{}
	m.Apply(state, *ev.Action, nil)
	assert.Equal(t, -150.0, state.CurrentHedgeUsdc)

	// With the hedge in place the gap closes.
	ev, err = m.Evaluate(context.Background(), state, t0)
	require.NoError(t, err)
	assert.False(t, ev.Triggered)
	assert.Equal(t, trigger.CodeMirrorIdle, ev.Code)
}

func TestMirrorSync_ApplyUsesFill(t *testing.T) {
	m, err := NewMirrorSync(mirrorCfg(), MirrorFuncs{Verify: fixedVerification(50, 50, 0, 0)})
	require.NoError(t, err)
	state := &domain.StrategyState{}
	m.Apply(state, domain.PlannedAction{Kind: domain.ActionHedge, Token: "yes", AmountUsdc: 100}, &domain.ExecutionResult{FilledUsdc: 60})
	assert.Equal(t, 60.0, state.CurrentHedgeUsdc)
	m.Apply(state, domain.PlannedAction{Kind: domain.ActionRebalance, Token: "yes", AmountUsdc: 100}, nil)
	assert.Equal(t, 60.0, state.CurrentHedgeUsdc)
}

func TestMirrorSync_VerifyFailureIsSoft(t *testing.T) {
	m, err := NewMirrorSync(mirrorCfg(), MirrorFuncs{Verify: func(context.Context) (domain.Verification, error) {
		return domain.Verification{}, errBoom
	}})
	require.NoError(t, err)
	ev, err := m.Evaluate(context.Background(), &domain.StrategyState{}, t0)
	require.NoError(t, err)
	assert.False(t, ev.Triggered)
	assert.Equal(t, CodeVerificationUnavailable, ev.Code)
}

func TestMirrorSync_GateFailureBlocks(t *testing.T) {
	verify := func(ctx context.Context) (domain.Verification, error) {
		v, _ := fixedVerification(60, 50, 0, 0)(ctx)
		v.Gate = domain.GateResult{FailedChecks: []string{"RULES_HASH_MISMATCH"}}
		v.SourceMarket.CloseTimestamp = ts(1_800_000_000 + 3*3600)
		return v, nil
	}
	m, err := NewMirrorSync(mirrorCfg(), MirrorFuncs{Verify: verify})
	require.NoError(t, err)
	ev, err := m.Evaluate(context.Background(), &domain.StrategyState{}, t0)
	require.NoError(t, err)
	res := risk.Evaluate(ev.Checks...)
	assert.False(t, res.Passed)
	assert.Equal(t, []string{risk.CodeMatchAndRules, risk.CodeCloseTimeDelta}, res.FailedChecks)
}
