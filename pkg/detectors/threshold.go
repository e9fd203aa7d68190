package detectors

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ProcessDecisionScores derives the outlier threshold from training scores.
//
// The threshold is the value at the (1-contamination) quantile of a full sort,
// chosen so that floor(len(scores)*contamination) scores lie strictly above it
// when there are no ties. Labels are 1 for scores strictly greater than the
// threshold and 0 otherwise.
func ProcessDecisionScores(scores []float64, contamination float64) (float64, []int) {
	if len(scores) == 0 {
		return 0, []int{}
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	k := OutlierCount(len(sorted), contamination)
	threshold := sorted[len(sorted)-k-1]

	return threshold, Binarize(scores, threshold)
}

// countTolerance absorbs float rounding in n*contamination, so that
// 100*0.29 counts as 29 rather than 28.
const countTolerance = 1e-9

// OutlierCount returns floor(n*contamination), the number of training scores
// that ProcessDecisionScores places strictly above the threshold when there
// are no ties.
func OutlierCount(n int, contamination float64) int {
	k := int(math.Floor(float64(n)*contamination + countTolerance))
	if k > n-1 {
		k = n - 1
	}
	if k < 0 {
		k = 0
	}
	return k
}

// Binarize labels each score 1 if it is strictly greater than threshold.
func Binarize(scores []float64, threshold float64) []int {
	labels := make([]int, len(scores))
	for i, s := range scores {
		if s > threshold {
			labels[i] = 1
		}
	}
	return labels
}

// ScoresToProba converts raw scores into [inlier, outlier] probabilities by
// min-max scaling against the training score range and clipping to [0, 1].
func ScoresToProba(scores []float64, trainMin, trainMax float64) [][]float64 {
	scale := trainMax - trainMin
	if scale == 0 {
		scale = 1
	}

	proba := make([][]float64, len(scores))
	for i, s := range scores {
		p := (s - trainMin) / scale
		p = math.Max(0, math.Min(1, p))
		proba[i] = []float64{1 - p, p}
	}
	return proba
}

// scoreRange returns the min and max of a non-empty score slice.
func scoreRange(scores []float64) (float64, float64) {
	return floats.Min(scores), floats.Max(scores)
}
