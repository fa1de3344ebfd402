package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strings"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// Confidence penalties applied once per risk flag.
var flagPenalty = map[domain.RiskFlag]float64{
	domain.FlagLowLiquidity:       0.2,
	domain.FlagUnknownLiquidity:   0.1,
	domain.FlagCloseTimeDrift:     0.1,
	domain.FlagNonStandardMapping: 0.15,
	domain.FlagTransitiveMatchGap: 0.15,
	domain.FlagSingleVenueGroup:   0.1,
}

// SummaryOptions controls group discarding and flag thresholds.
type SummaryOptions struct {
	SimilarityThreshold float64
	MaxCloseDiffHours   float64
	CrossVenueOnly      bool
	MinSpreadPct        float64
	MinLiquidityUSD     float64
}

// Summarize turns group g of a clustering result into an opportunity. It
// returns nil when the group is discarded by the cross-venue or spread filters.
func Summarize(res *ClusterResult, g int, opts SummaryOptions) *domain.Opportunity {
	members := res.Groups[g]
	if len(members) < 2 {
		return nil
	}
	legs := res.GroupLegs(g)

	venues := venueSet(legs)
	if opts.CrossVenueOnly && len(venues) < 2 {
		return nil
	}

	spreadYes, bestYes := spreadAndBest(legs, func(l domain.MarketLeg) *float64 { return l.YesPct })
	spreadNo, bestNo := spreadAndBest(legs, func(l domain.MarketLeg) *float64 { return l.NoPct })
	if math.Max(spreadYes, spreadNo) < opts.MinSpreadPct {
		return nil
	}

	opp := &domain.Opportunity{
		GroupID:      GroupID(legs),
		Legs:         legs,
		Venues:       venues,
		SpreadYesPct: round6(spreadYes),
		SpreadNoPct:  round6(spreadNo),
	}
	if bestYes != nil {
		opp.BestYesBuy = &domain.BestLeg{LegID: bestYes.LegID, Venue: bestYes.Venue, MarketID: bestYes.MarketID, Pct: *bestYes.YesPct}
	}
	if bestNo != nil {
		opp.BestNoBuy = &domain.BestLeg{LegID: bestNo.LegID, Venue: bestNo.Venue, MarketID: bestNo.MarketID, Pct: *bestNo.NoPct}
	}
	if opp.BestYesBuy != nil && opp.BestNoBuy != nil {
		edge := round6(100 - (opp.BestYesBuy.Pct + opp.BestNoBuy.Pct))
		opp.ImpliedEdgePct = &edge
	}

	opp.MinPairSimilarity = minPairSimilarity(res, members)
	opp.CloseTimeSpreadHours = closeSpreadHours(legs)

	var flags []domain.RiskFlag
	knownLiquidity := 0
	lowLiquidity := false
	nonStandard := false
	for _, l := range legs {
		if l.LiquidityUSD != nil {
			knownLiquidity++
			if *l.LiquidityUSD < opts.MinLiquidityUSD {
				lowLiquidity = true
			}
		}
		if len(l.Diagnostics) > 0 {
			nonStandard = true
		}
	}
	if lowLiquidity {
		flags = append(flags, domain.FlagLowLiquidity)
	}
	if knownLiquidity == 0 {
		flags = append(flags, domain.FlagUnknownLiquidity)
	}
	if len(venues) < 2 {
		flags = append(flags, domain.FlagSingleVenueGroup)
	}
	if nonStandard {
		flags = append(flags, domain.FlagNonStandardMapping)
	}
	if opp.CloseTimeSpreadHours != nil && *opp.CloseTimeSpreadHours > opts.MaxCloseDiffHours/2 {
		flags = append(flags, domain.FlagCloseTimeDrift)
	}
	if opp.MinPairSimilarity < opts.SimilarityThreshold {
		flags = append(flags, domain.FlagTransitiveMatchGap)
	}
	opp.RiskFlags = flags

	confidence := 1.0
	for _, f := range flags {
		confidence -= flagPenalty[f]
	}
	opp.Confidence = round6(clamp01(confidence))
	return opp
}

// GroupID derives a membership-stable identifier from the sorted normalized
// questions of the legs.
func GroupID(legs []domain.MarketLeg) string {
	qs := make([]string, len(legs))
	for i, l := range legs {
		qs[i] = Normalize(l.Question)
	}
	sort.Strings(qs)
	sum := sha256.Sum256([]byte(strings.Join(qs, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

func venueSet(legs []domain.MarketLeg) []domain.Venue {
	seen := make(map[domain.Venue]struct{}, 2)
	var out []domain.Venue
	for _, l := range legs {
		if _, ok := seen[l.Venue]; ok {
			continue
		}
		seen[l.Venue] = struct{}{}
		out = append(out, l.Venue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// spreadAndBest returns max-min over the known values and the leg holding the
// minimum, which is the cheapest leg to buy that side on.
func spreadAndBest(legs []domain.MarketLeg, pick func(domain.MarketLeg) *float64) (float64, *domain.MarketLeg) {
	var best *domain.MarketLeg
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range legs {
		v := pick(legs[i])
		if v == nil {
			continue
		}
		if *v < lo {
			lo = *v
			best = &legs[i]
		}
		if *v > hi {
			hi = *v
		}
	}
	if best == nil {
		return 0, nil
	}
	return hi - lo, best
}

// minPairSimilarity audits cross-venue pairs inside the group, falling back to
// every pair when the group holds a single venue.
func minPairSimilarity(res *ClusterResult, members []int) float64 {
	minAll, minCross := math.Inf(1), math.Inf(1)
	for a := 0; a < len(members); a++ {
		for b := a + 1; b < len(members); b++ {
			i, j := members[a], members[b]
			sim, ok := res.PairScore(i, j)
			if !ok {
				sim = Score(res.Legs[i].Question, res.Legs[j].Question)
			}
			minAll = math.Min(minAll, sim.Score)
			if res.Legs[i].Venue != res.Legs[j].Venue {
				minCross = math.Min(minCross, sim.Score)
			}
		}
	}
	if !math.IsInf(minCross, 1) {
		return minCross
	}
	return minAll
}

func closeSpreadHours(legs []domain.MarketLeg) *float64 {
	var lo, hi int64
	n := 0
	for _, l := range legs {
		if l.CloseTimestamp == nil {
			continue
		}
		ts := *l.CloseTimestamp
		if n == 0 || ts < lo {
			lo = ts
		}
		if n == 0 || ts > hi {
			hi = ts
		}
		n++
	}
	if n < 2 {
		return nil
	}
	h := round6(float64(hi-lo) / 3600)
	return &h
}
