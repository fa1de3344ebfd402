package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

func summarizeOnly(t *testing.T, legs []domain.MarketLeg, copts ClusterOptions, sopts SummaryOptions) *domain.Opportunity {
	t.Helper()
	res := Cluster(legs, copts)
	require.Len(t, res.Groups, 1)
	return Summarize(res, 0, sopts)
}

func TestSummarize_ScenarioA(t *testing.T) {
	// The literal paraphrase pair only reaches ~0.33 under the fixed scoring
	// pipeline, so it groups at a permissive threshold.
	legs := []domain.MarketLeg{
		leg(domain.VenuePandora, "p1", "Will BTC hit $100k by 2026?", domain.Int64(baseClose)),
		leg(domain.VenuePolymarket, "m1", "Will Bitcoin reach 100000 USD before end of 2026", domain.Int64(baseClose+1800)),
	}
	opp := summarizeOnly(t, legs,
		ClusterOptions{SimilarityThreshold: 0.3, MaxCloseDiffHours: 24, CrossVenueOnly: true},
		SummaryOptions{SimilarityThreshold: 0.3, MaxCloseDiffHours: 24, CrossVenueOnly: true})
	require.NotNil(t, opp)
	assert.False(t, opp.HasFlag(domain.FlagTransitiveMatchGap))
	assert.Equal(t, 0.331419, opp.MinPairSimilarity)

	// Close rewordings clear the 0.75 threshold.
	legs[1].Question = "Will BTC hit $100k by end of 2026?"
	opp = summarizeOnly(t, legs,
		ClusterOptions{SimilarityThreshold: 0.75, MaxCloseDiffHours: 24, CrossVenueOnly: true},
		SummaryOptions{SimilarityThreshold: 0.75, MaxCloseDiffHours: 24, CrossVenueOnly: true})
	require.NotNil(t, opp)
	assert.False(t, opp.HasFlag(domain.FlagTransitiveMatchGap))
	assert.Equal(t, []domain.Venue{domain.VenuePandora, domain.VenuePolymarket}, opp.Venues)
	require.NotNil(t, opp.CloseTimeSpreadHours)
	assert.Equal(t, 0.5, *opp.CloseTimeSpreadHours)
}

func TestSummarize_SpreadsBestLegsAndFlags(t *testing.T) {
	q := "Will BTC hit $100k by 2026?"
	p := leg(domain.VenuePandora, "p1", q, domain.Int64(baseClose))
	p.YesPct, p.NoPct, p.LiquidityUSD = domain.Float64(40), domain.Float64(60), domain.Float64(5000)
	m := leg(domain.VenuePolymarket, "m1", q, domain.Int64(baseClose))
	m.YesPct, m.NoPct, m.LiquidityUSD = domain.Float64(45), domain.Float64(55), domain.Float64(500)

	opp := summarizeOnly(t, []domain.MarketLeg{p, m},
		ClusterOptions{SimilarityThreshold: 0.75, MaxCloseDiffHours: 24},
		SummaryOptions{SimilarityThreshold: 0.75, MaxCloseDiffHours: 24, MinLiquidityUSD: 1000})
	require.NotNil(t, opp)

	assert.Equal(t, 5.0, opp.SpreadYesPct)
	assert.Equal(t, 5.0, opp.SpreadNoPct)
	require.NotNil(t, opp.BestYesBuy)
	assert.Equal(t, "pandora:p1", opp.BestYesBuy.LegID)
	assert.Equal(t, 40.0, opp.BestYesBuy.Pct)
	require.NotNil(t, opp.BestNoBuy)
	assert.Equal(t, "polymarket:m1", opp.BestNoBuy.LegID)
	require.NotNil(t, opp.ImpliedEdgePct)
	assert.Equal(t, 5.0, *opp.ImpliedEdgePct)

	assert.Equal(t, []domain.RiskFlag{domain.FlagLowLiquidity}, opp.RiskFlags)
	assert.Equal(t, 0.8, opp.Confidence)
}

func TestSummarize_TransitiveGapUsesCrossVenuePairs(t *testing.T) {
	legs := []domain.MarketLeg{
		leg(domain.VenuePandora, "a", "Will the Fed cut rates in March?", nil),
		leg(domain.VenuePandora, "b", "Will the Fed cut interest rates in March?", nil),
		leg(domain.VenuePolymarket, "c", "Will the Federal Reserve cut interest rates in March?", nil),
	}
	opp := summarizeOnly(t, legs,
		ClusterOptions{SimilarityThreshold: 0.69, MaxCloseDiffHours: 24},
		SummaryOptions{SimilarityThreshold: 0.69, MaxCloseDiffHours: 24})
	require.NotNil(t, opp)

	assert.Equal(t, 0.56676, opp.MinPairSimilarity)
	assert.Equal(t, []domain.RiskFlag{domain.FlagUnknownLiquidity, domain.FlagTransitiveMatchGap}, opp.RiskFlags)
	assert.Equal(t, 0.75, opp.Confidence)
	assert.Nil(t, opp.CloseTimeSpreadHours)
	assert.Nil(t, opp.ImpliedEdgePct)
}

func TestSummarize_SingleVenueFallsBackToAllPairs(t *testing.T) {
	legs := []domain.MarketLeg{
		leg(domain.VenuePandora, "a", "Will the Fed cut rates in March?", nil),
		leg(domain.VenuePandora, "b", "Will the Fed cut interest rates in March?", nil),
		leg(domain.VenuePandora, "c", "Will the Federal Reserve cut interest rates in March?", nil),
	}
	copts := ClusterOptions{SimilarityThreshold: 0.69, MaxCloseDiffHours: 24}
	opp := summarizeOnly(t, legs, copts, SummaryOptions{SimilarityThreshold: 0.69, MaxCloseDiffHours: 24})
	require.NotNil(t, opp)

	assert.True(t, opp.HasFlag(domain.FlagSingleVenueGroup))
	assert.True(t, opp.HasFlag(domain.FlagTransitiveMatchGap))
	assert.Equal(t, 0.56676, opp.MinPairSimilarity)
	assert.Equal(t, 0.65, opp.Confidence)

	res := Cluster(legs, copts)
	assert.Nil(t, Summarize(res, 0, SummaryOptions{SimilarityThreshold: 0.69, MaxCloseDiffHours: 24, CrossVenueOnly: true}))
}

func TestSummarize_DriftDiagnosticsAndSpreadFilter(t *testing.T) {
	q := "Will BTC hit $100k by 2026?"
	p := leg(domain.VenuePandora, "p1", q, domain.Int64(baseClose))
	p.YesPct = domain.Float64(50)
	p.Diagnostics = []string{"odds derived from reserve-ratio"}
	m := leg(domain.VenuePolymarket, "m1", q, domain.Int64(baseClose+13*3600))
	m.YesPct = domain.Float64(51)

	copts := ClusterOptions{SimilarityThreshold: 0.75, MaxCloseDiffHours: 24}
	opp := summarizeOnly(t, []domain.MarketLeg{p, m}, copts,
		SummaryOptions{SimilarityThreshold: 0.75, MaxCloseDiffHours: 24})
	require.NotNil(t, opp)
	assert.Equal(t, []domain.RiskFlag{
		domain.FlagUnknownLiquidity,
		domain.FlagNonStandardMapping,
		domain.FlagCloseTimeDrift,
	}, opp.RiskFlags)
	assert.Equal(t, 0.65, opp.Confidence)

	res := Cluster([]domain.MarketLeg{p, m}, copts)
	assert.Nil(t, Summarize(res, 0, SummaryOptions{SimilarityThreshold: 0.75, MaxCloseDiffHours: 24, MinSpreadPct: 2}))
}

func TestSummarize_PenaltiesAccumulate(t *testing.T) {
	q := "Will BTC hit $100k by 2026?"
	a := leg(domain.VenuePandora, "a", q, domain.Int64(baseClose))
	a.LiquidityUSD = domain.Float64(10)
	a.Diagnostics = []string{"x"}
	b := leg(domain.VenuePandora, "b", "Will BTC hit $100k by end of 2026?", domain.Int64(baseClose+20*3600))
	opp := summarizeOnly(t, []domain.MarketLeg{a, b},
		ClusterOptions{SimilarityThreshold: 0.8, MaxCloseDiffHours: 24},
		SummaryOptions{SimilarityThreshold: 0.9, MaxCloseDiffHours: 24, MinLiquidityUSD: 100})
	require.NotNil(t, opp)
	assert.Len(t, opp.RiskFlags, 5)
	assert.Equal(t, 0.3, opp.Confidence)
}

func TestGroupID_IndependentOfOrder(t *testing.T) {
	a := leg(domain.VenuePandora, "a", "Will BTC hit $100k by 2026?", nil)
	b := leg(domain.VenuePolymarket, "b", "will btc hit 100k by 2026", nil)
	id1 := GroupID([]domain.MarketLeg{a, b})
	id2 := GroupID([]domain.MarketLeg{b, a})
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 16)

	c := leg(domain.VenuePolymarket, "c", "Will BTC hit $100k by end of 2026?", nil)
	assert.NotEqual(t, id1, GroupID([]domain.MarketLeg{a, c}))
}

func TestScan_OrdersByConfidence(t *testing.T) {
	btcP := leg(domain.VenuePandora, "p1", "Will BTC hit $100k by 2026?", nil)
	btcP.YesPct, btcP.LiquidityUSD = domain.Float64(40), domain.Float64(5000)
	btcM := leg(domain.VenuePolymarket, "m1", "Will BTC hit $100k by end of 2026?", nil)
	btcM.YesPct, btcM.LiquidityUSD = domain.Float64(48), domain.Float64(5000)

	fedP := leg(domain.VenuePandora, "p2", "Will the Fed cut rates in March?", nil)
	fedP.YesPct = domain.Float64(30)
	fedP.Diagnostics = []string{"odds derived from reserve-ratio"}
	fedM := leg(domain.VenuePolymarket, "m2", "Will the Fed cut interest rates in March?", nil)
	fedM.YesPct = domain.Float64(33)

	noise := leg(domain.VenuePolymarket, "m3", "Will the Lakers win the NBA title?", nil)

	opts := DefaultScanOptions()
	res := Scan([]domain.MarketLeg{fedP, btcP, noise, fedM, btcM}, opts)

	assert.Equal(t, 5, res.LegsScanned)
	assert.Equal(t, 10, res.PairsCompared)
	assert.Equal(t, 2, res.GroupsFound)
	assert.Equal(t, 2, res.PairsAccepted)
	require.Len(t, res.Opportunities, 2)
	assert.Equal(t, "pandora:p1", res.Opportunities[0].Legs[0].LegID)
	assert.Equal(t, 1.0, res.Opportunities[0].Confidence)
	assert.Equal(t, 0.75, res.Opportunities[1].Confidence)
	assert.Equal(t, []string{"pandora:p2: odds derived from reserve-ratio"}, res.Diagnostics)

	opts.Limit = 1
	assert.Len(t, Scan([]domain.MarketLeg{fedP, btcP, noise, fedM, btcM}, opts).Opportunities, 1)
}
