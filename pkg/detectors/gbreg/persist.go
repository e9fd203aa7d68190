package gbreg

import (
	"bytes"
	"encoding/gob"

	"github.com/hed1ad/goguardts/pkg/detectors"
	"github.com/hed1ad/goguardts/pkg/detectors/boost"
)

// Save serializes the configuration, fitted state and trees.
func (d *Detector) Save() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.state == nil {
		return nil, detectors.ErrNotFitted
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(d.cfg); err != nil {
		return nil, err
	}
	if err := enc.Encode(d.state); err != nil {
		return nil, err
	}
	if err := enc.Encode(d.model); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Load deserializes a model written by Save, replacing the configuration and
// fitted state. Boosting options given to New are kept for later Fit calls.
func (d *Detector) Load(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))

	var cfg detectors.Config
	if err := dec.Decode(&cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var state detectors.FittedState
	if err := dec.Decode(&state); err != nil {
		return err
	}

	var model boost.Model
	if err := dec.Decode(&model); err != nil {
		return err
	}
	if model.NFeatures != cfg.WindowSize {
		return detectors.InvalidInputf("model has %d features, window size is %d", model.NFeatures, cfg.WindowSize)
	}
	if err := model.Validate(); err != nil {
		return detectors.InvalidInputf("%v", err)
	}
	if err := validateState(&state); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg = cfg
	d.state = &state
	d.model = &model

	return nil
}

// validateState checks that a decoded fitted state is internally consistent.
func validateState(s *detectors.FittedState) error {
	n := len(s.DecisionScores)
	if n == 0 {
		return detectors.InvalidInputf("fitted state has no decision scores")
	}
	if len(s.Labels) != n || len(s.LeftInds) != n || len(s.RightInds) != n {
		return detectors.InvalidInputf("fitted state lengths differ: %d scores, %d labels, %d left, %d right",
			n, len(s.Labels), len(s.LeftInds), len(s.RightInds))
	}
	return nil
}
