package route

import "github.com/tourloop/planner/internal/geo"

// weights are the position-dependent scoring weights from spec.md §4.6.2.
type weights struct {
	D, Sim, Rat, Bear float64
}

const highSimilarityThreshold = 0.8

// weightsFor resolves the weight table row for a stop position.
func weightsFor(pos stopPosition, circular bool, similarity float64) weights {
	switch pos {
	case posFirst:
		return weights{D: 0.10, Sim: 0.45, Rat: 0.45, Bear: 0}
	case posLast:
		if circular {
			return weights{D: 0.40, Sim: 0.10, Rat: 0.20, Bear: 0.30}
		}
		return weights{D: 0.40, Sim: 0.30, Rat: 0.30, Bear: 0}
	default: // posMiddle
		if circular {
			return weights{D: 0.30, Sim: 0.10, Rat: 0.20, Bear: 0.40}
		}
		if similarity >= highSimilarityThreshold {
			return weights{D: 0.15, Sim: 0.50, Rat: 0.30, Bear: 0.05}
		}
		return weights{D: 0.25, Sim: 0.10, Rat: 0.40, Bear: 0.25}
	}
}

type stopPosition int

const (
	posFirst stopPosition = iota
	posMiddle
	posLast
)

// scoreCandidate combines distance/similarity/rating/bearing sub-scores
// using the weight row for pos. hasBearing is false for the first stop,
// where bearing is undefined (spec.md §4.6.2).
func scoreCandidate(distM, rMax, similarity, rating, bearingScore float64, pos stopPosition, circular bool, hasBearing bool) float64 {
	w := weightsFor(pos, circular, similarity)
	distScore := 1 - geo.Clamp01(distM/rMax)

	total := distScore*w.D + similarity*w.Sim + rating*w.Rat
	if hasBearing {
		total += bearingScore * w.Bear
	}
	return total
}

// scoredCandidate pairs a pool index with its computed combined score.
type scoredCandidate struct {
	poolIndex int
	score     float64
	similarity float64
	rating    float64
	id        string
}

// best returns the winning candidate by spec.md §4.6.2's tie-break order:
// highest score, then highest similarity, then highest rating, then
// lexicographically smallest id.
func best(candidates []scoredCandidate) (scoredCandidate, bool) {
	if len(candidates) == 0 {
		return scoredCandidate{}, false
	}
	winner := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, winner) {
			winner = c
		}
	}
	return winner, true
}

func better(a, b scoredCandidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.similarity != b.similarity {
		return a.similarity > b.similarity
	}
	if a.rating != b.rating {
		return a.rating > b.rating
	}
	return a.id < b.id
}
