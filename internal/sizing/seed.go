package sizing

// MirrorSeedPlan is everything needed to seed a mirrored AMM market.
type MirrorSeedPlan struct {
	Recommendation  LiquidityRecommendation `json:"recommendation"`
	ProbabilityYes  float64                 `json:"probabilityYes"`
	DistributionYes int64                   `json:"distributionYes"`
	DistributionNo  int64                   `json:"distributionNo"`
}

// PlanMirrorSeed combines a liquidity recommendation with the distribution
// hint for the source market's YES probability.
func PlanMirrorSeed(params SizingParams, pYes *float64) (MirrorSeedPlan, error) {
	rec, err := Recommend(params)
	if err != nil {
		return MirrorSeedPlan{}, err
	}
	yes, no := DistributionHint(pYes)
	return MirrorSeedPlan{
		Recommendation:  rec,
		ProbabilityYes:  float64(no) / float64(DistributionTotal),
		DistributionYes: yes,
		DistributionNo:  no,
	}, nil
}
