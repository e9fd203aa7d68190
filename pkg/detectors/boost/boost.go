// Package boost implements gradient-boosted regression trees with squared
// error loss.
//
// The ensemble starts from the mean of the targets and adds one depth-limited
// regression tree per stage, each fitted to the residuals of the current
// prediction and shrunk by the learning rate.
//
// # Basic Usage
//
//	reg := boost.NewRegressor(boost.WithEstimators(100), boost.WithSeed(42))
//	model, err := reg.Fit(X, y)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	yHat, err := model.Predict(X)
//	if err != nil {
//	    log.Fatal(err)
//	}
package boost

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Regressor holds the boosting hyperparameters. It is stateless between
// Fit calls apart from its random source.
type Regressor struct {
	nEstimators     int
	learningRate    float64
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	subsample       float64
	seed            int64
}

// Option configures a Regressor.
type Option func(*Regressor)

// WithEstimators sets the number of boosting stages.
func WithEstimators(n int) Option {
	return func(r *Regressor) {
		r.nEstimators = n
	}
}

// WithLearningRate sets the shrinkage applied to each tree.
func WithLearningRate(lr float64) Option {
	return func(r *Regressor) {
		r.learningRate = lr
	}
}

// WithMaxDepth sets the maximum depth of each tree.
func WithMaxDepth(d int) Option {
	return func(r *Regressor) {
		r.maxDepth = d
	}
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(r *Regressor) {
		r.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(r *Regressor) {
		r.minSamplesLeaf = n
	}
}

// WithSubsample sets the fraction of samples drawn for each tree.
// Values below 1 enable stochastic gradient boosting.
func WithSubsample(f float64) Option {
	return func(r *Regressor) {
		r.subsample = f
	}
}

// WithSeed sets the random seed used for subsampling.
func WithSeed(seed int64) Option {
	return func(r *Regressor) {
		r.seed = seed
	}
}

// NewRegressor creates a Regressor. The defaults are 100 stages, learning
// rate 0.1, depth 3, min split 2, min leaf 1 and no subsampling.
func NewRegressor(opts ...Option) *Regressor {
	r := &Regressor{
		nEstimators:     100,
		learningRate:    0.1,
		maxDepth:        3,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		subsample:       1.0,
		seed:            42,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Validate checks the hyperparameter ranges.
func (r *Regressor) Validate() error {
	switch {
	case r.nEstimators < 1:
		return fmt.Errorf("boost: estimators must be >= 1, got %d", r.nEstimators)
	case !(r.learningRate > 0):
		return fmt.Errorf("boost: learning rate must be > 0, got %v", r.learningRate)
	case r.maxDepth < 1:
		return fmt.Errorf("boost: max depth must be >= 1, got %d", r.maxDepth)
	case r.minSamplesSplit < 2:
		return fmt.Errorf("boost: min samples split must be >= 2, got %d", r.minSamplesSplit)
	case r.minSamplesLeaf < 1:
		return fmt.Errorf("boost: min samples leaf must be >= 1, got %d", r.minSamplesLeaf)
	case !(r.subsample > 0 && r.subsample <= 1):
		return fmt.Errorf("boost: subsample must be in (0, 1], got %v", r.subsample)
	}
	return nil
}

// Estimators returns the configured number of boosting stages.
func (r *Regressor) Estimators() int {
	return r.nEstimators
}

// Fit trains an ensemble mapping the rows of X to y.
func (r *Regressor) Fit(X mat.Matrix, y []float64) (*Model, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return nil, errors.New("boost: empty training matrix")
	}
	if len(y) != nSamples {
		return nil, fmt.Errorf("boost: %d targets for %d samples", len(y), nSamples)
	}

	cols := make([][]float64, nFeatures)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}

	m := &Model{
		Init:         stat.Mean(y, nil),
		LearningRate: r.learningRate,
		NFeatures:    nFeatures,
		Trees:        make([]*Tree, 0, r.nEstimators),
	}

	pred := make([]float64, nSamples)
	for i := range pred {
		pred[i] = m.Init
	}
	residual := make([]float64, nSamples)

	builder := &treeBuilder{
		cols:            cols,
		target:          residual,
		maxDepth:        r.maxDepth,
		minSamplesSplit: r.minSamplesSplit,
		minSamplesLeaf:  r.minSamplesLeaf,
	}

	rng := rand.New(rand.NewSource(r.seed))
	all := make([]int, nSamples)
	for i := range all {
		all[i] = i
	}
	row := make([]float64, nFeatures)

	for stage := 0; stage < r.nEstimators; stage++ {
		// Negative gradient of squared error
		floats.SubTo(residual, y, pred)

		tree := builder.build(r.sample(rng, all))
		m.Trees = append(m.Trees, tree)

		for i := range pred {
			for j := range row {
				row[j] = cols[j][i]
			}
			pred[i] += m.LearningRate * tree.Predict(row)
		}
	}

	return m, nil
}

// sample returns the rows used to grow one tree.
func (r *Regressor) sample(rng *rand.Rand, all []int) []int {
	if r.subsample >= 1 {
		return all
	}

	n := int(float64(len(all)) * r.subsample)
	if n < 1 {
		n = 1
	}
	return rng.Perm(len(all))[:n]
}
