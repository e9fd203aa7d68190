// Package io provides input/output utilities for series ingestion and
// detection results.
package io

import (
	"context"

	"github.com/hed1ad/goguardts/pkg/detectors"
)

// Reader is the interface for reading data from various sources.
type Reader interface {
	// Read returns the complete sequence, one row per time step.
	Read() ([][]float64, error)

	// Stream returns a channel of rows for real-time processing.
	Stream(ctx context.Context) (<-chan []float64, error)

	// Close releases resources.
	Close() error
}

// FeatureExtractor extracts numerical features from raw data.
type FeatureExtractor interface {
	// Extract converts raw input to feature vector.
	Extract(data any) ([]float64, error)

	// FeatureNames returns the names of extracted features.
	FeatureNames() []string
}

// Writer is the interface for writing detection results.
type Writer interface {
	// Write outputs a single result.
	Write(result Result) error

	// WriteAll outputs multiple results.
	WriteAll(results []Result) error

	// Close releases resources.
	Close() error
}

// Result is the detection outcome for one row of the input sequence.
type Result struct {
	Index      int     `json:"index"`
	Score      float64 `json:"score"`
	IsAnomaly  bool    `json:"is_anomaly"`
	LeftIndex  int     `json:"left_index"`
	RightIndex int     `json:"right_index"`
	// Padding marks rows that precede the first complete window.
	Padding bool `json:"padding,omitempty"`
}

// Results converts a padded prediction into one Result per row.
func Results(p *detectors.Prediction, windowSize int) []Result {
	out := make([]Result, len(p.Labels))
	for i := range p.Labels {
		out[i] = Result{
			Index:      i,
			Score:      p.Scores[i],
			IsAnomaly:  p.Labels[i] == 1,
			LeftIndex:  p.LeftInds[i],
			RightIndex: p.RightInds[i],
			Padding:    i < windowSize || p.RightInds[i] == 0,
		}
	}
	return out
}

// ScoreResult converts a streamed score into a Result. Warm-up scores carry
// no window and are marked as padding.
func ScoreResult(s detectors.Score) Result {
	r := Result{
		Score:     s.Value,
		IsAnomaly: s.IsAnomaly,
	}
	r.Index, _ = s.Metadata["index"].(int)
	r.LeftIndex, _ = s.Metadata["left"].(int)
	r.RightIndex, _ = s.Metadata["right"].(int)
	if warmup, _ := s.Metadata["warmup"].(bool); warmup {
		r.Padding = true
	}
	return r
}
