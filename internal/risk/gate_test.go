package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

func TestEvaluate_AllPass(t *testing.T) {
	res := Evaluate(
		MatchAndRules(domain.GateResult{Passed: true}),
		MaxOpenExposure(10, 5, 100),
		MaxTradesPerDay(0, 1),
	)
	assert.True(t, res.Passed)
	assert.Empty(t, res.FailedChecks)
	assert.Len(t, res.Checks, 3)

	assert.True(t, Evaluate().Passed)
}

func TestEvaluate_SurfacesEveryFailureInOrder(t *testing.T) {
	depth := &domain.DepthEstimate{DepthWithinSlippageUSD: 40}
	res := Evaluate(
		MatchAndRules(domain.GateResult{FailedChecks: []string{"RULES_HASH_MISMATCH"}}),
		CloseTimeDelta(domain.Verification{CloseTimeDeltaSec: domain.Int64(3 * 3600)}, 7200),
		DepthCoverage(depth, 50),
		MaxOpenExposure(95, 10, 100),
		MaxTradesPerDay(1, 1),
	)
	assert.False(t, res.Passed)
	assert.Equal(t, []string{
		CodeMatchAndRules,
		CodeCloseTimeDelta,
		CodeDepthCoverage,
		CodeMaxOpenExposure,
		CodeMaxTradesPerDay,
	}, res.FailedChecks)
	assert.Contains(t, res.Checks[0].Detail, "RULES_HASH_MISMATCH")
}

func TestCloseTimeDelta(t *testing.T) {
	v := domain.Verification{
		Pandora:      domain.MarketView{CloseTimestamp: domain.Int64(1000)},
		SourceMarket: domain.MarketView{CloseTimestamp: domain.Int64(1000 + 7200)},
	}
	assert.True(t, CloseTimeDelta(v, 7200).Passed)
	assert.False(t, CloseTimeDelta(v, 7199).Passed)

	v.CloseTimeDeltaSec = domain.Int64(-60)
	assert.True(t, CloseTimeDelta(v, 120).Passed)

	c := CloseTimeDelta(domain.Verification{}, 7200)
	assert.False(t, c.Passed)
	assert.Equal(t, "close time unavailable", c.Detail)
}

func TestDepthCoverage(t *testing.T) {
	assert.True(t, DepthCoverage(&domain.DepthEstimate{DepthWithinSlippageUSD: 50}, 50).Passed)
	assert.False(t, DepthCoverage(&domain.DepthEstimate{DepthWithinSlippageUSD: 49.99}, 50).Passed)
	assert.False(t, DepthCoverage(nil, 1).Passed)
}

func TestCaps(t *testing.T) {
	assert.True(t, MaxOpenExposure(90, 10, 100).Passed)
	assert.False(t, MaxOpenExposure(90, 10.01, 100).Passed)
	assert.True(t, MaxOpenExposure(1e9, 1, 0).Passed)

	assert.True(t, MaxTradesPerDay(0, 1).Passed)
	assert.False(t, MaxTradesPerDay(1, 1).Passed)
	assert.True(t, MaxTradesPerDay(50, 0).Passed)
}
