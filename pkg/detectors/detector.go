// Package detectors provides unsupervised collective anomaly detection for time series.
//
// A collective detector scores fixed-size windows of a sequence rather than
// individual samples. Every detector in this module shares the contract
// defined here: Fit on a training sequence, then DecisionFunction, Predict and
// PredictProba on any sequence with the same column layout.
package detectors

import "context"

// CollectiveDetector is the common interface for window-based detection algorithms.
type CollectiveDetector interface {
	// Fit trains the detector on a sequence.
	// data is a 2D slice where each row is a time step and each column is a feature.
	Fit(data [][]float64) error

	// DecisionFunction returns raw anomaly scores, one per retained window.
	// Higher values indicate anomalies.
	DecisionFunction(data [][]float64) (*Decision, error)

	// Predict returns binary labels aligned with the rows of data.
	Predict(data [][]float64) (*Prediction, error)

	// PredictProba returns outlier probabilities, one row per retained window.
	PredictProba(data [][]float64) (*Probability, error)

	// Save serializes the trained model to bytes.
	Save() ([]byte, error)

	// Load deserializes a trained model from bytes.
	Load(data []byte) error
}

// StreamDetector extends CollectiveDetector with streaming capabilities.
type StreamDetector interface {
	CollectiveDetector

	// PredictStream processes samples from a channel and outputs scores.
	PredictStream(ctx context.Context, input <-chan []float64, output chan<- Score) error
}

// Score represents a single streaming detection result.
type Score struct {
	// Value is the raw anomaly score.
	Value float64
	// IsAnomaly indicates if the score exceeds the threshold.
	IsAnomaly bool
	// Features contains the original input sample.
	Features []float64
	// Metadata contains additional information.
	Metadata map[string]any
}

// Decision holds raw window scores and the half-open row ranges they cover.
type Decision struct {
	Scores    []float64
	LeftInds  []int
	RightInds []int
}

// Len returns the number of scored windows.
func (d *Decision) Len() int {
	return len(d.Scores)
}

// Prediction holds labels aligned with the input rows.
//
// The first WindowSize entries are padding, not predictions: they carry
// label 0, score 0 and zero indices.
type Prediction struct {
	Labels    []int
	Scores    []float64
	LeftInds  []int
	RightInds []int
}

// Probability holds per-window [inlier, outlier] probabilities.
type Probability struct {
	Proba     [][]float64
	LeftInds  []int
	RightInds []int
}

// Config holds common configuration for collective detectors.
type Config struct {
	// WindowSize is the number of consecutive samples in a window. Required.
	WindowSize int
	// StepSize is the displacement between consecutive windows.
	StepSize int
	// Contamination is the expected proportion of anomalies in training data.
	Contamination float64
	// RandomSeed for reproducibility.
	RandomSeed int64
}

// DefaultConfig returns sensible defaults for detector configuration.
// WindowSize has no default and must be set by the caller.
func DefaultConfig() Config {
	return Config{
		StepSize:      1,
		Contamination: 0.1,
		RandomSeed:    42,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.WindowSize < 1 {
		return ConfigErrorf("window size must be >= 1, got %d", c.WindowSize)
	}
	if c.StepSize < 1 {
		return ConfigErrorf("step size must be >= 1, got %d", c.StepSize)
	}
	if !(c.Contamination > 0 && c.Contamination < 0.5) {
		return ConfigErrorf("contamination must be in (0, 0.5), got %v", c.Contamination)
	}
	return nil
}
