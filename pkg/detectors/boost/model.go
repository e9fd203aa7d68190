package boost

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Model is a trained boosted ensemble. It is never modified after Fit
// returns, so concurrent Predict calls are safe.
type Model struct {
	Init         float64
	LearningRate float64
	NFeatures    int
	Trees        []*Tree
}

// PredictOne returns the ensemble prediction for a single sample.
func (m *Model) PredictOne(sample []float64) float64 {
	out := m.Init
	for _, t := range m.Trees {
		out += m.LearningRate * t.Predict(sample)
	}
	return out
}

// Predict returns one prediction per row of X.
func (m *Model) Predict(X mat.Matrix) ([]float64, error) {
	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, fmt.Errorf("boost: model expects %d features, got %d", m.NFeatures, c)
	}

	out := make([]float64, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out[i] = m.PredictOne(row)
	}
	return out, nil
}

// Validate checks that the ensemble can be evaluated without leaving the node
// arrays. Models decoded from untrusted bytes must pass it before Predict.
func (m *Model) Validate() error {
	if m.NFeatures < 1 {
		return fmt.Errorf("boost: model has %d features", m.NFeatures)
	}
	if len(m.Trees) == 0 {
		return errors.New("boost: model has no trees")
	}

	for i, t := range m.Trees {
		if t == nil || len(t.Nodes) == 0 {
			return fmt.Errorf("boost: tree %d is empty", i)
		}
		for j, n := range t.Nodes {
			if n.IsLeaf() {
				if n.Right >= 0 {
					return fmt.Errorf("boost: tree %d node %d has a right child but no left child", i, j)
				}
				continue
			}
			if n.Left <= j || n.Left >= len(t.Nodes) || n.Right <= j || n.Right >= len(t.Nodes) {
				return fmt.Errorf("boost: tree %d node %d has children %d, %d out of range", i, j, n.Left, n.Right)
			}
			if n.Feature < 0 || n.Feature >= m.NFeatures {
				return fmt.Errorf("boost: tree %d node %d splits on feature %d of %d", i, j, n.Feature, m.NFeatures)
			}
		}
	}
	return nil
}
