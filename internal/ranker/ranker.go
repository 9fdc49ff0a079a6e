// Package ranker scores and orders generated test case candidates,
// selecting a fixed-size top subset for execution.
package ranker

import (
	"sort"

	"github.com/prowlqa/prowl/internal/model"
)

// DefaultTopN is the number of candidates selected when no explicit
// limit is given.
const DefaultTopN = 10

// tieBreaker derives a small deterministic value from a candidate id.
// Its purpose is a total order among equal primary scores that is stable
// across runs, not randomness.
func tieBreaker(id string) float64 {
	sum := 0
	for _, c := range []byte(id) {
		sum += int(c)
	}
	return float64(sum%10) / 100.0
}

// Score computes the heuristic score of a candidate: more steps means
// higher coverage, very short titles are penalized, and the id-derived
// tie-breaker keeps the ordering total.
func Score(tc model.TestCase) float64 {
	base := float64(len(tc.Steps))
	titleBonus := (float64(len(tc.Title)) - 8) / 20
	if titleBonus < 0 {
		titleBonus = 0
	}
	return base + titleBonus + tieBreaker(tc.ID)
}

// Rank scores the candidates and returns the topN highest scoring ones,
// best first. Candidates are not mutated; if fewer than topN are
// supplied all of them are returned, ordered. The result is fully
// deterministic for a fixed input.
func Rank(candidates []model.TestCase, topN int) []model.TestCase {
	if topN <= 0 {
		topN = DefaultTopN
	}

	ranked := make([]model.TestCase, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := Score(ranked[i]), Score(ranked[j])
		if si != sj {
			return si > sj
		}
		// Equal totals can only happen for distinct ids whose tie-breakers
		// collide; fall back to the id itself to keep the order total.
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
