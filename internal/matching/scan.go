package matching

import (
	"fmt"
	"sort"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// ScanOptions configures one cross-venue matching pass.
type ScanOptions struct {
	SimilarityThreshold float64
	MaxCloseDiffHours   float64
	CrossVenueOnly      bool
	MinSpreadPct        float64
	MinLiquidityUSD     float64
	// Limit caps the number of returned opportunities. Zero means no cap.
	Limit int
}

// DefaultScanOptions returns the thresholds the scan mode uses out of the box.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		SimilarityThreshold: 0.75,
		MaxCloseDiffHours:   24,
		CrossVenueOnly:      true,
		MinSpreadPct:        0,
		MinLiquidityUSD:     1000,
	}
}

// ScanResult is the output of Scan.
type ScanResult struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
	LegsScanned   int                  `json:"legsScanned"`
	PairsCompared int                  `json:"pairsCompared"`
	PairsAccepted int                  `json:"pairsAccepted"`
	GroupsFound   int                  `json:"groupsFound"`
	Diagnostics   []string             `json:"diagnostics"`
}

// Scan clusters legs and summarizes every surviving group. Results are ordered
// by confidence, then by the wider spread.
func Scan(legs []domain.MarketLeg, opts ScanOptions) ScanResult {
	res := Cluster(legs, ClusterOptions{
		SimilarityThreshold: opts.SimilarityThreshold,
		MaxCloseDiffHours:   opts.MaxCloseDiffHours,
		CrossVenueOnly:      opts.CrossVenueOnly,
	})

	out := ScanResult{
		LegsScanned:   len(legs),
		PairsCompared: len(res.Pairs),
		PairsAccepted: len(res.Accepted()),
		GroupsFound:   len(res.Groups),
		Diagnostics:   []string{},
	}
	for _, l := range legs {
		for _, d := range l.Diagnostics {
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("%s: %s", l.LegID, d))
		}
	}

	sumOpts := SummaryOptions{
		SimilarityThreshold: opts.SimilarityThreshold,
		MaxCloseDiffHours:   opts.MaxCloseDiffHours,
		CrossVenueOnly:      opts.CrossVenueOnly,
		MinSpreadPct:        opts.MinSpreadPct,
		MinLiquidityUSD:     opts.MinLiquidityUSD,
	}
	for g := range res.Groups {
		if opp := Summarize(res, g, sumOpts); opp != nil {
			out.Opportunities = append(out.Opportunities, *opp)
		}
	}

	sort.SliceStable(out.Opportunities, func(i, j int) bool {
		a, b := out.Opportunities[i], out.Opportunities[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.MaxSpreadPct() > b.MaxSpreadPct()
	})
	if opts.Limit > 0 && len(out.Opportunities) > opts.Limit {
		out.Opportunities = out.Opportunities[:opts.Limit]
	}
	return out
}
