package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each feature on its mean and divides by its
// population standard deviation. Constant features keep a scale of 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit computes per-feature statistics
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("%w: no rows", ErrTooFewSamples)
	}
	width := len(X[0])
	s.Mean = make([]float64, width)
	s.Scale = make([]float64, width)

	n := float64(len(X))
	col := make([]float64, len(X))
	for j := 0; j < width; j++ {
		for i, row := range X {
			if len(row) != width {
				return fmt.Errorf("%w: row %d has %d features, want %d", ErrDimension, i, len(row), width)
			}
			col[i] = row[j]
		}
		s.Mean[j] = stat.Mean(col, nil)
		s.Scale[j] = 1
		if len(X) > 1 {
			// stat.Variance is the unbiased estimator
			std := math.Sqrt(stat.Variance(col, nil) * (n - 1) / n)
			if std > 1e-12 && !math.IsNaN(std) {
				s.Scale[j] = std
			}
		}
	}
	return nil
}

// Transform returns scaled copies of the rows
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.Mean == nil {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrDimension, i, len(row), len(s.Mean))
		}
		r := make([]float64, len(row))
		floats.SubTo(r, row, s.Mean)
		floats.Div(r, s.Scale)
		out[i] = r
	}
	return out, nil
}

// FitTransform fits and transforms in one step
func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
