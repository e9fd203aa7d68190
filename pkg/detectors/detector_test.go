package detectors

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	base := DefaultConfig()
	base.WindowSize = 3

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults with window", mutate: func(*Config) {}},
		{name: "missing window", mutate: func(c *Config) { c.WindowSize = 0 }, wantErr: true},
		{name: "zero step", mutate: func(c *Config) { c.StepSize = 0 }, wantErr: true},
		{name: "contamination too high", mutate: func(c *Config) { c.Contamination = 0.6 }, wantErr: true},
		{name: "contamination at upper bound", mutate: func(c *Config) { c.Contamination = 0.5 }, wantErr: true},
		{name: "contamination zero", mutate: func(c *Config) { c.Contamination = 0 }, wantErr: true},
		{name: "contamination NaN", mutate: func(c *Config) { c.Contamination = math.NaN() }, wantErr: true},
		{name: "small contamination", mutate: func(c *Config) { c.Contamination = 0.001 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name      string
		data      [][]float64
		wantCols  int
		wantError bool
	}{
		{name: "empty", data: [][]float64{}, wantError: true},
		{name: "no columns", data: [][]float64{{}}, wantError: true},
		{name: "ragged", data: [][]float64{{1}, {1, 2}}, wantError: true},
		{name: "NaN", data: [][]float64{{1}, {math.NaN()}}, wantError: true},
		{name: "Inf", data: [][]float64{{math.Inf(-1)}}, wantError: true},
		{name: "univariate", data: Column([]float64{1, 2, 3}), wantCols: 1},
		{name: "two columns", data: [][]float64{{1, 2}, {3, 4}}, wantCols: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := ValidateInput(tt.data)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, cols)
		})
	}
}

func TestNewFittedState(t *testing.T) {
	state, err := NewFittedState([]float64{1, 5, 3}, []int{0, 1, 2}, []int{2, 3, 4}, 0.4)
	require.NoError(t, err)

	assert.Equal(t, 3.0, state.Threshold)
	assert.Equal(t, []int{0, 1, 0}, state.Labels)
	assert.Equal(t, 1.0, state.ScoreMin)
	assert.Equal(t, 5.0, state.ScoreMax)

	clone := state.Clone()
	clone.DecisionScores[0] = 100
	assert.Equal(t, 1.0, state.DecisionScores[0])

	_, err = NewFittedState(nil, nil, nil, 0.1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewFittedState([]float64{1}, []int{0, 1}, []int{1}, 0.1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPadPrediction(t *testing.T) {
	dec := &Decision{
		Scores:    []float64{0.5, 2},
		LeftInds:  []int{0, 1},
		RightInds: []int{3, 4},
	}

	t.Run("aligned", func(t *testing.T) {
		p := PadPrediction(dec, 1, 3, 5)
		assert.Equal(t, []int{0, 0, 0, 0, 1}, p.Labels)
		assert.Equal(t, []float64{0, 0, 0, 0.5, 2}, p.Scores)
		assert.Equal(t, []int{0, 0, 0, 0, 1}, p.LeftInds)
		assert.Equal(t, []int{0, 0, 0, 3, 4}, p.RightInds)
	})

	t.Run("tail padded to input length", func(t *testing.T) {
		p := PadPrediction(dec, 1, 3, 8)
		assert.Len(t, p.Labels, 8)
		assert.Len(t, p.Scores, 8)
		assert.Equal(t, []int{0, 0, 0, 0, 1, 0, 0, 0}, p.Labels)
	})

	t.Run("no windows", func(t *testing.T) {
		p := PadPrediction(&Decision{}, 1, 3, 3)
		assert.Equal(t, []int{0, 0, 0}, p.Labels)
	})
}
