package domain

// RiskFlag annotates an opportunity with a known weakness.
type RiskFlag string

const (
	FlagLowLiquidity       RiskFlag = "LOW_LIQUIDITY"
	FlagUnknownLiquidity   RiskFlag = "UNKNOWN_LIQUIDITY"
	FlagSingleVenueGroup   RiskFlag = "SINGLE_VENUE_GROUP"
	FlagNonStandardMapping RiskFlag = "NON_STANDARD_MARKET_MAPPING"
	FlagCloseTimeDrift     RiskFlag = "CLOSE_TIME_DRIFT"
	FlagTransitiveMatchGap RiskFlag = "TRANSITIVE_MATCH_GAP"
)

// BestLeg points at the cheapest leg for one side of a group.
type BestLeg struct {
	LegID    string  `json:"legId"`
	Venue    Venue   `json:"venue"`
	MarketID string  `json:"marketId"`
	Pct      float64 `json:"pct"`
}

// Opportunity is a risk-annotated summary of one equivalence group.
type Opportunity struct {
	GroupID              string      `json:"groupId"`
	Legs                 []MarketLeg `json:"legs"`
	Venues               []Venue     `json:"venues"`
	SpreadYesPct         float64     `json:"spreadYesPct"`
	SpreadNoPct          float64     `json:"spreadNoPct"`
	BestYesBuy           *BestLeg    `json:"bestYesBuy"`
	BestNoBuy            *BestLeg    `json:"bestNoBuy"`
	ImpliedEdgePct       *float64    `json:"impliedEdgePct"`
	MinPairSimilarity    float64     `json:"minPairSimilarity"`
	CloseTimeSpreadHours *float64    `json:"closeTimeSpreadHours"`
	RiskFlags            []RiskFlag  `json:"riskFlags"`
	Confidence           float64     `json:"confidence"`
}

// HasFlag reports whether flag is present on the opportunity.
func (o Opportunity) HasFlag(flag RiskFlag) bool {
	for _, f := range o.RiskFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// MaxSpreadPct is the larger of the YES and NO spreads.
func (o Opportunity) MaxSpreadPct() float64 {
	if o.SpreadNoPct > o.SpreadYesPct {
		return o.SpreadNoPct
	}
	return o.SpreadYesPct
}
