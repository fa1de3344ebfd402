// Package matching finds equivalent questions across venues. It scores
// question similarity, clusters legs into equivalence groups and summarizes
// each group into a risk-annotated opportunity.
//
// The normalization and scoring pipeline is fixed: match thresholds in the
// field are tuned against it, so any change here shifts every threshold.
package matching

import (
	"math"
	"strings"
)

const (
	tokenWeight = 0.55
	jaroWeight  = 0.45

	winklerPrefixScale = 0.1
	winklerMaxPrefix   = 4
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "will": {}, "be": {}, "on": {}, "at": {}, "in": {},
	"to": {}, "for": {}, "by": {}, "of": {}, "is": {}, "are": {}, "was": {}, "were": {},
}

// SimilarityResult is the full breakdown of a pairwise question comparison.
type SimilarityResult struct {
	NormalizedLeft  string  `json:"normalizedLeft"`
	NormalizedRight string  `json:"normalizedRight"`
	TokenScore      float64 `json:"tokenScore"`
	JaroWinkler     float64 `json:"jaroWinkler"`
	Score           float64 `json:"score"`
}

// Normalize canonicalizes a market question: lowercase, every character
// outside [a-z0-9] becomes a space, stop words are dropped and whitespace is
// collapsed.
func Normalize(s string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		} else {
			b.WriteByte(' ')
		}
	}
	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// TokenScore is the Jaccard index over the word sets of two normalized
// strings. Two empty sets score 0.
func TokenScore(a, b string) float64 {
	left := wordSet(a)
	right := wordSet(b)
	union := len(left)
	inter := 0
	for w := range right {
		if _, ok := left[w]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		out[w] = struct{}{}
	}
	return out
}

// Jaro returns the Jaro similarity of two strings. Either side empty scores 0.
func Jaro(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	window := max(la, lb)/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, la)
	bMatched := make([]bool, lb)
	matches := 0
	for i := 0; i < la; i++ {
		lo := max(0, i-window)
		hi := min(i+window+1, lb)
		for j := lo; j < hi; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := 0; i < la; i++ {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}

// JaroWinkler adds the conventional common-prefix bonus to Jaro.
func JaroWinkler(a, b string) float64 {
	j := Jaro(a, b)
	if j == 0 {
		return 0
	}
	prefix := 0
	limit := min(winklerMaxPrefix, len(a), len(b))
	for prefix < limit && a[prefix] == b[prefix] {
		prefix++
	}
	return j + float64(prefix)*winklerPrefixScale*(1-j)
}

// Score compares two raw market questions.
func Score(left, right string) SimilarityResult {
	nl := Normalize(left)
	nr := Normalize(right)

	// Jaro's greedy matching is order-sensitive in rare cases; a canonical
	// ordering keeps Score exactly symmetric.
	first, second := nl, nr
	if first > second {
		first, second = second, first
	}

	token := TokenScore(nl, nr)
	jw := JaroWinkler(first, second)
	score := clamp01(tokenWeight*token + jaroWeight*jw)

	return SimilarityResult{
		NormalizedLeft:  nl,
		NormalizedRight: nr,
		TokenScore:      token,
		JaroWinkler:     jw,
		Score:           round6(score),
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
