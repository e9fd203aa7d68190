package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestOutlierCount(t *testing.T) {
	tests := []struct {
		n             int
		contamination float64
		want          int
	}{
		{n: 100, contamination: 0.29, want: 29},
		{n: 100, contamination: 0.07, want: 7},
		{n: 10, contamination: 0.3, want: 3},
		{n: 11, contamination: 0.2, want: 2},
		{n: 1, contamination: 0.49, want: 0},
		{n: 0, contamination: 0.1, want: 0},
		{n: 4, contamination: 1, want: 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OutlierCount(tt.n, tt.contamination), "n=%d c=%v", tt.n, tt.contamination)
	}
}

func TestProcessDecisionScores(t *testing.T) {
	tests := []struct {
		name          string
		scores        []float64
		contamination float64
		wantThreshold float64
		wantOutliers  int
	}{
		{
			name:          "distinct scores",
			scores:        []float64{3, 1, 10, 7, 2, 9, 4, 6, 5, 8},
			contamination: 0.2,
			wantThreshold: 8,
			wantOutliers:  2,
		},
		{
			name:          "fraction rounds down",
			scores:        []float64{0.5, 0.1, 0.9, 0.3, 0.7, 0.2, 0.8, 0.4, 0.6, 1.0, 1.1},
			contamination: 0.2,
			wantThreshold: 0.9,
			wantOutliers:  2,
		},
		{
			name:          "no outliers expected",
			scores:        []float64{1, 2, 3},
			contamination: 0.1,
			wantThreshold: 3,
			wantOutliers:  0,
		},
		{
			name:          "ties at threshold are inliers",
			scores:        []float64{1, 1, 1, 1},
			contamination: 0.25,
			wantThreshold: 1,
			wantOutliers:  0,
		},
		{
			name:          "product just below an integer",
			scores:        ramp(100),
			contamination: 0.29,
			wantThreshold: 71,
			wantOutliers:  29,
		},
		{
			name:          "single score",
			scores:        []float64{4},
			contamination: 0.4,
			wantThreshold: 4,
			wantOutliers:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threshold, labels := ProcessDecisionScores(tt.scores, tt.contamination)

			assert.Equal(t, tt.wantThreshold, threshold)
			require.Len(t, labels, len(tt.scores))

			outliers := 0
			for i, l := range labels {
				outliers += l
				assert.Equal(t, tt.scores[i] > threshold, l == 1)
			}
			assert.Equal(t, tt.wantOutliers, outliers)
		})
	}
}

func TestProcessDecisionScoresCountProperty(t *testing.T) {
	for n := 1; n <= 60; n++ {
		scores := make([]float64, n)
		for i := range scores {
			// distinct, unordered
			scores[i] = float64((i*37)%n) + float64(i)/1000
		}
		for _, c := range []float64{0.01, 0.05, 0.1, 0.25, 0.49} {
			threshold, labels := ProcessDecisionScores(scores, c)
			count := 0
			for _, l := range labels {
				count += l
			}
			assert.Equal(t, OutlierCount(n, c), count, "n=%d c=%v threshold=%v", n, c, threshold)
		}
	}
}

func TestProcessDecisionScoresDoesNotReorderInput(t *testing.T) {
	scores := []float64{5, 1, 4}
	ProcessDecisionScores(scores, 0.3)
	assert.Equal(t, []float64{5, 1, 4}, scores)
}

func TestBinarize(t *testing.T) {
	labels := Binarize([]float64{0, 0.5, 0.50001, 2}, 0.5)
	assert.Equal(t, []int{0, 0, 1, 1}, labels)
}

func TestScoresToProba(t *testing.T) {
	t.Run("linear scaling with clipping", func(t *testing.T) {
		proba := ScoresToProba([]float64{-1, 0, 5, 10, 20}, 0, 10)
		require.Len(t, proba, 5)

		want := []float64{0, 0, 0.5, 1, 1}
		for i, p := range proba {
			assert.InDelta(t, want[i], p[1], 1e-12)
			assert.InDelta(t, 1.0, p[0]+p[1], 1e-12)
		}
	})

	t.Run("zero training range", func(t *testing.T) {
		proba := ScoresToProba([]float64{2, 2.25, 5}, 2, 2)
		assert.InDelta(t, 0.0, proba[0][1], 1e-12)
		assert.InDelta(t, 0.25, proba[1][1], 1e-12)
		assert.InDelta(t, 1.0, proba[2][1], 1e-12)
	})
}
