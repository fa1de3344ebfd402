package matching

import (
	"math"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// ClusterOptions controls which leg pairs are accepted as equivalent.
type ClusterOptions struct {
	SimilarityThreshold float64
	MaxCloseDiffHours   float64
	CrossVenueOnly      bool
}

// Pair is one scored leg pair from the clustering pass.
type Pair struct {
	I, J       int
	Similarity SimilarityResult
	Accepted   bool
}

// ClusterResult holds the equivalence groups plus the full pair ledger so the
// summarizer can audit every pair inside a group.
type ClusterResult struct {
	Legs   []domain.MarketLeg
	Groups [][]int
	Pairs  []Pair

	index map[[2]int]int
}

// PairScore returns the similarity recorded for legs i and j.
func (r *ClusterResult) PairScore(i, j int) (SimilarityResult, bool) {
	if i > j {
		i, j = j, i
	}
	idx, ok := r.index[[2]int{i, j}]
	if !ok {
		return SimilarityResult{}, false
	}
	return r.Pairs[idx].Similarity, true
}

// Accepted returns only the pairs that were unioned.
func (r *ClusterResult) Accepted() []Pair {
	var out []Pair
	for _, p := range r.Pairs {
		if p.Accepted {
			out = append(out, p)
		}
	}
	return out
}

// GroupLegs materializes the legs of group g.
func (r *ClusterResult) GroupLegs(g int) []domain.MarketLeg {
	members := r.Groups[g]
	out := make([]domain.MarketLeg, len(members))
	for k, idx := range members {
		out[k] = r.Legs[idx]
	}
	return out
}

// Cluster groups legs into connected components of the accept relation.
// Every unordered pair is compared; membership is transitive only through
// directly accepted pairs.
func Cluster(legs []domain.MarketLeg, opts ClusterOptions) *ClusterResult {
	n := len(legs)
	res := &ClusterResult{
		Legs:  legs,
		Pairs: make([]Pair, 0, n*(n-1)/2),
		index: make(map[[2]int]int, n*(n-1)/2),
	}
	ds := NewDisjointSet(n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := Score(legs[i].Question, legs[j].Question)
			ok := accept(legs[i], legs[j], sim.Score, opts)
			if ok {
				ds.Union(i, j)
			}
			res.index[[2]int{i, j}] = len(res.Pairs)
			res.Pairs = append(res.Pairs, Pair{I: i, J: j, Similarity: sim, Accepted: ok})
		}
	}

	for _, comp := range ds.Components() {
		if len(comp) >= 2 {
			res.Groups = append(res.Groups, comp)
		}
	}
	return res
}

func accept(a, b domain.MarketLeg, score float64, opts ClusterOptions) bool {
	if score < opts.SimilarityThreshold {
		return false
	}
	if a.CloseTimestamp != nil && b.CloseTimestamp != nil {
		diffHours := math.Abs(float64(*a.CloseTimestamp-*b.CloseTimestamp)) / 3600
		if diffHours > opts.MaxCloseDiffHours {
			return false
		}
	}
	if opts.CrossVenueOnly && a.Venue == b.Venue {
		return false
	}
	return true
}
