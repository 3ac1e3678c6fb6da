package pipeline

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/aouyang1/go-salesforecast/models"
)

var ErrResLenMismatch = errors.New("predicted and actual have different lengths")

// Scores are the diagnostics of a training run. R2Train is measured on the training split,
// every other score on the held out test split.
type Scores struct {
	R2Train float64 `json:"r_squared_train"`
	R2Test  float64 `json:"r_squared_test"`
	MAE     float64 `json:"mean_absolute_error"`
	RMSE    float64 `json:"root_mean_squared_error"`
	MAPE    float64 `json:"mean_average_percent_error"`
}

// NewScores computes the train and test scores
func NewScores(trainPredicted, trainActual, testPredicted, testActual []float64) (*Scores, error) {
	r2Train, err := RSquared(trainPredicted, trainActual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute train r-squared, %w", err)
	}
	r2Test, err := RSquared(testPredicted, testActual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute test r-squared, %w", err)
	}
	mae, err := MAE(testPredicted, testActual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	mse, err := MSE(testPredicted, testActual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, err := MAPE(testPredicted, testActual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean average percent error, %w", err)
	}
	return &Scores{
		R2Train: r2Train,
		R2Test:  r2Test,
		MAE:     mae,
		RMSE:    math.Sqrt(mse),
		MAPE:    mape,
	}, nil
}

// TablePrint writes the scores as an indented block
func (s *Scores) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sScores:\n", prefix, strings.Repeat(indent, indentGrowth)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%sR2 (train): %.4f    R2 (test): %.4f    MAE: %.4f    RMSE: %.4f    MAPE: %.4f\n",
		prefix, strings.Repeat(indent, indentGrowth+1),
		s.R2Train,
		s.R2Test,
		s.MAE,
		s.RMSE,
		s.MAPE,
	)
	return err
}

func checkLen(predicted, actual []float64) error {
	if len(predicted) != len(actual) {
		return fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	return nil
}

// MAE computes the mean absolute error skipping NaN pairs
func MAE(predicted, actual []float64) (float64, error) {
	if err := checkLen(predicted, actual); err != nil {
		return 0, err
	}
	var sum float64
	var cnt int
	for i := range actual {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		sum += math.Abs(actual[i] - predicted[i])
		cnt++
	}
	if cnt == 0 {
		return 0, nil
	}
	return sum / float64(cnt), nil
}

// MSE computes the mean squared error. A score of 0 means a perfect match with no errors.
func MSE(predicted, actual []float64) (float64, error) {
	if err := checkLen(predicted, actual); err != nil {
		return 0, err
	}
	var sum float64
	var cnt int
	for i := range actual {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		sum += math.Pow(actual[i]-predicted[i], 2.0)
		cnt++
	}
	if cnt == 0 {
		return 0, nil
	}
	return sum / float64(cnt), nil
}

// RMSE is the square root of the MSE
func RMSE(predicted, actual []float64) (float64, error) {
	mse, err := MSE(predicted, actual)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAPE calculates the mean average percent error ignoring zero actuals
func MAPE(predicted, actual []float64) (float64, error) {
	if err := checkLen(predicted, actual); err != nil {
		return 0, err
	}
	var sum float64
	var cnt int
	for i := range actual {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) || actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - predicted[i]) / actual[i])
		cnt++
	}
	if cnt == 0 {
		return 0, nil
	}
	return sum / float64(cnt), nil
}

// RSquared computes the coefficient of determination where 1.0 is a perfect fit
func RSquared(predicted, actual []float64) (float64, error) {
	if err := checkLen(predicted, actual); err != nil {
		return 0, err
	}
	predictCopy := make([]float64, 0, len(predicted))
	actualCopy := make([]float64, 0, len(actual))
	for i := range predicted {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		predictCopy = append(predictCopy, predicted[i])
		actualCopy = append(actualCopy, actual[i])
	}
	if len(actualCopy) == 0 {
		return 1.0, nil
	}
	return models.FiniteRSquared(predictCopy, actualCopy), nil
}
