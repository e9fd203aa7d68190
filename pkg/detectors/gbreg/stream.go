package gbreg

import (
	"context"
	"math"

	"github.com/hed1ad/goguardts/pkg/detectors"
)

// PredictStream scores univariate samples as they arrive on input.
//
// The first windowSize samples only fill the window and are emitted as
// inliers with a zero score. Every later sample is scored against the
// prediction made from the windowSize samples before it, which matches
// Predict with a step size of one. Step size is not applied to streams.
// output is closed when PredictStream returns.
func (d *Detector) PredictStream(ctx context.Context, input <-chan []float64, output chan<- detectors.Score) error {
	defer close(output)

	d.mu.RLock()
	if d.state == nil {
		d.mu.RUnlock()
		return detectors.ErrNotFitted
	}
	model := d.model
	threshold := d.state.Threshold
	windowSize := d.cfg.WindowSize
	d.mu.RUnlock()

	buf := make([]float64, 0, windowSize)
	index := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-input:
			if !ok {
				return nil
			}

			if len(sample) != 1 || math.IsNaN(sample[0]) || math.IsInf(sample[0], 0) {
				d.log.WithField("index", index).Warnf("gbreg: skipping malformed stream sample %v", sample)
				continue
			}

			score := detectors.Score{
				Features: sample,
				Metadata: map[string]any{"index": index},
			}

			if len(buf) < windowSize {
				buf = append(buf, sample[0])
				score.Metadata["warmup"] = true
			} else {
				score.Value = math.Abs(sample[0] - model.PredictOne(buf))
				score.IsAnomaly = score.Value > threshold
				score.Metadata["left"] = index - windowSize
				score.Metadata["right"] = index

				copy(buf, buf[1:])
				buf[windowSize-1] = sample[0]
			}
			index++

			select {
			case output <- score:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
