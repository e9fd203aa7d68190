package detectors

import "math"

// ValidateInput checks that data is a non-empty rectangular matrix of finite
// values and returns its column count.
func ValidateInput(data [][]float64) (int, error) {
	if len(data) == 0 {
		return 0, InvalidInputf("empty sequence")
	}

	nFeatures := len(data[0])
	if nFeatures == 0 {
		return 0, InvalidInputf("row 0 has no columns")
	}

	for i, row := range data {
		if len(row) != nFeatures {
			return 0, InvalidInputf("ragged input: row %d has %d columns, want %d", i, len(row), nFeatures)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, InvalidInputf("non-finite value %v at row %d column %d", v, i, j)
			}
		}
	}

	return nFeatures, nil
}

// Column wraps a univariate series as a single-column matrix.
func Column(series []float64) [][]float64 {
	data := make([][]float64, len(series))
	for i, v := range series {
		data[i] = []float64{v}
	}
	return data
}
