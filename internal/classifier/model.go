// Package classifier trains and evaluates the word desirability classifier:
// a standardize-then-SVC pipeline selected by cross-validated grid search.
package classifier

import (
	"encoding"
	"errors"
	"fmt"
)

var (
	// ErrEmptyClass is returned when one of the two label sets is empty
	ErrEmptyClass = errors.New("cannot train with an empty class")
	// ErrTooFewSamples is returned when a class is too small to split or fold
	ErrTooFewSamples = errors.New("too few samples")
	// ErrNotFitted is returned when predicting with an untrained model
	ErrNotFitted = errors.New("model not fitted")
	// ErrDimension is returned when input rows do not match the fitted width
	ErrDimension = errors.New("feature dimension mismatch")
)

// Model is a binary classifier over embedding vectors. Labels are 1
// (approved) and 0 (rejected); positive decision values lean toward 1.
type Model interface {
	Fit(X [][]float64, y []int) error
	DecisionFunction(X [][]float64) ([]float64, error)
	Predict(X [][]float64) ([]int, error)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Accuracy returns the share of predictions equal to the labels
func Accuracy(pred, y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	ok := 0
	for i := range y {
		if pred[i] == y[i] {
			ok++
		}
	}
	return float64(ok) / float64(len(y))
}

func checkXY(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("%w: no rows", ErrTooFewSamples)
	}
	if len(X) != len(y) {
		return fmt.Errorf("%d rows but %d labels", len(X), len(y))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrDimension, i, len(row), width)
		}
	}
	return nil
}
