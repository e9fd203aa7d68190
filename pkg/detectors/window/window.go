// Package window slides a fixed-size window over a sequence and flattens
// each span into a feature vector.
package window

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hed1ad/goguardts/pkg/detectors"
)

// SubMatrices is an ordered set of flattened windows and the half-open row
// ranges [Left[i], Right[i]) they were taken from.
type SubMatrices struct {
	// X has one flattened window per row, or is nil when there are no windows.
	X     *mat.Dense
	Left  []int
	Right []int

	windowSize int
	nFeatures  int
}

// Count returns the number of windows generated for a sequence of n rows
// before trimming. It is 0 when n < windowSize.
func Count(n, windowSize, step int) int {
	if windowSize < 1 || step < 1 || n < windowSize {
		return 0
	}
	return (n-windowSize)/step + 1
}

// Generate builds every window of windowSize rows at stride step starting at row 0.
func Generate(data [][]float64, windowSize, step int) (*SubMatrices, error) {
	if windowSize < 1 {
		return nil, detectors.ConfigErrorf("window size must be >= 1, got %d", windowSize)
	}
	if step < 1 {
		return nil, detectors.ConfigErrorf("step size must be >= 1, got %d", step)
	}

	nFeatures, err := detectors.ValidateInput(data)
	if err != nil {
		return nil, err
	}
	if len(data) < windowSize {
		return nil, detectors.InvalidInputf("sequence of %d rows is shorter than window size %d", len(data), windowSize)
	}

	n := Count(len(data), windowSize, step)
	width := windowSize * nFeatures
	sm := &SubMatrices{
		X:          mat.NewDense(n, width, nil),
		Left:       make([]int, n),
		Right:      make([]int, n),
		windowSize: windowSize,
		nFeatures:  nFeatures,
	}

	for i := 0; i < n; i++ {
		start := i * step
		row := sm.X.RawRowView(i)
		for j := 0; j < windowSize; j++ {
			copy(row[j*nFeatures:(j+1)*nFeatures], data[start+j])
		}
		sm.Left[i] = start
		sm.Right[i] = start + windowSize
	}

	return sm, nil
}

// Len returns the number of windows.
func (s *SubMatrices) Len() int {
	return len(s.Left)
}

// Width returns the length of a flattened window.
func (s *SubMatrices) Width() int {
	return s.windowSize * s.nFeatures
}

// Row returns the i-th flattened window. The slice aliases the matrix storage.
func (s *SubMatrices) Row(i int) []float64 {
	return s.X.RawRowView(i)
}

// Trim drops the last window so that every remaining window has a following
// sample at Left[i]+windowSize inside the sequence. It always drops one
// window, even when the last one already had a valid target.
func (s *SubMatrices) Trim() *SubMatrices {
	n := s.Len()
	if n == 0 {
		return s
	}

	out := &SubMatrices{
		Left:       s.Left[: n-1 : n-1],
		Right:      s.Right[: n-1 : n-1],
		windowSize: s.windowSize,
		nFeatures:  s.nFeatures,
	}
	if n > 1 {
		out.X = s.X.Slice(0, n-1, 0, s.Width()).(*mat.Dense)
	}
	return out
}

// Targets returns the value in column of the sample immediately following
// each window.
func (s *SubMatrices) Targets(data [][]float64, column int) []float64 {
	y := make([]float64, s.Len())
	for i, left := range s.Left {
		y[i] = data[left+s.windowSize][column]
	}
	return y
}
