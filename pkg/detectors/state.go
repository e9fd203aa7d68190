package detectors

// FittedState is the training outcome of a collective detector.
//
// It is produced only by NewFittedState, which runs the thresholding step,
// and is treated as read-only once built.
type FittedState struct {
	// DecisionScores are the outlier scores of the training windows.
	DecisionScores []float64
	// Threshold separates inliers from outliers.
	Threshold float64
	// Labels are DecisionScores binarized against Threshold.
	Labels []int
	// LeftInds and RightInds are the half-open row ranges of the training windows.
	LeftInds  []int
	RightInds []int
	// Contamination used to derive Threshold.
	Contamination float64
	// ScoreMin and ScoreMax bound DecisionScores, used for probability scaling.
	ScoreMin float64
	ScoreMax float64
}

// NewFittedState thresholds training scores and records the window ranges.
func NewFittedState(scores []float64, left, right []int, contamination float64) (*FittedState, error) {
	if len(scores) == 0 {
		return nil, InvalidInputf("no training windows to score")
	}
	if len(left) != len(scores) || len(right) != len(scores) {
		return nil, InvalidInputf("score/index length mismatch: %d scores, %d left, %d right",
			len(scores), len(left), len(right))
	}

	threshold, labels := ProcessDecisionScores(scores, contamination)
	lo, hi := scoreRange(scores)

	return &FittedState{
		DecisionScores: append([]float64(nil), scores...),
		Threshold:      threshold,
		Labels:         labels,
		LeftInds:       append([]int(nil), left...),
		RightInds:      append([]int(nil), right...),
		Contamination:  contamination,
		ScoreMin:       lo,
		ScoreMax:       hi,
	}, nil
}

// Clone returns a deep copy of the state.
func (s *FittedState) Clone() *FittedState {
	c := *s
	c.DecisionScores = append([]float64(nil), s.DecisionScores...)
	c.Labels = append([]int(nil), s.Labels...)
	c.LeftInds = append([]int(nil), s.LeftInds...)
	c.RightInds = append([]int(nil), s.RightInds...)
	return &c
}

// PadPrediction aligns a window decision with the n input rows.
//
// windowSize leading zero entries are prepended to scores and indices, and the
// result is extended with zero entries up to n when the stride leaves a gap.
// Labels are computed against threshold with a strict comparison.
func PadPrediction(dec *Decision, threshold float64, windowSize, n int) *Prediction {
	size := windowSize + dec.Len()
	if size < n {
		size = n
	}

	p := &Prediction{
		Scores:    make([]float64, size),
		LeftInds:  make([]int, size),
		RightInds: make([]int, size),
	}
	copy(p.Scores[windowSize:], dec.Scores)
	copy(p.LeftInds[windowSize:], dec.LeftInds)
	copy(p.RightInds[windowSize:], dec.RightInds)
	p.Labels = Binarize(p.Scores, threshold)

	return p
}
