// Package models is a collection of regressors used to build the stacked sales forecast:
// a standard scaler, elastic net, random forest, gradient boosted trees and the stacking
// ensemble that combines them.
package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Regressor is fit on an m x n design matrix and an m x 1 target matrix
type Regressor interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
}

// Estimator is a Regressor that can produce an unfitted copy of itself with the same options
// and export its fitted state for serialization.
type Estimator interface {
	Regressor
	Clone() Estimator
	State() (EstimatorState, error)
}

// Score computes the coefficient of determination of the regressor's predictions on x
func Score(r Regressor, x, y mat.Matrix) (float64, error) {
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}
	res, err := r.Predict(x)
	if err != nil {
		return 0.0, err
	}
	return FiniteRSquared(res, mat.Col(nil, 0, y)), nil
}

// FiniteRSquared is the coefficient of determination where a constant actual, which leaves
// it undefined, scores 1 for an exact match and 0 otherwise
func FiniteRSquared(predicted, actual []float64) float64 {
	r2 := stat.RSquaredFrom(predicted, actual, nil)
	if !math.IsNaN(r2) && !math.IsInf(r2, 0) {
		return r2
	}
	if floats.Equal(predicted, actual) {
		return 1.0
	}
	return 0.0
}

func validateFit(x, y mat.Matrix) (int, int, []float64, error) {
	if x == nil {
		return 0, 0, nil, ErrNoTrainingMatrix
	}
	if y == nil {
		return 0, 0, nil, ErrNoTargetMatrix
	}
	m, n := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return 0, 0, nil, fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}
	return m, n, mat.Col(nil, 0, y), nil
}

func validatePredict(x mat.Matrix, features int) (int, error) {
	if x == nil {
		return 0, ErrNoDesignMatrix
	}
	m, n := x.Dims()
	if n != features {
		return 0, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, features, ErrFeatureLenMismatch)
	}
	return m, nil
}
