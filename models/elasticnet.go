package models

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultAlpha      = 0.01
	DefaultL1Ratio    = 0.5
	DefaultIterations = 5000
	DefaultTolerance  = 1e-4
)

var (
	ErrNegativeAlpha      = errors.New("negative alpha")
	ErrInvalidL1Ratio     = errors.New("l1 ratio must be within [0, 1]")
	ErrNegativeIterations = errors.New("negative iterations")
	ErrNegativeTolerance  = errors.New("negative tolerance")
)

// ElasticNetOptions represents input options to run the elastic net regression
type ElasticNetOptions struct {
	// Alpha is the overall regularization strength. 0.0 converges to ordinary least squares.
	Alpha float64 `json:"alpha"`
	// L1Ratio mixes the L1 and L2 penalties where 1.0 is the lasso and 0.0 is ridge.
	L1Ratio float64 `json:"l1_ratio"`
	// Iterations is the maximum number of passes over all coefficients.
	Iterations int `json:"iterations"`
	// Tolerance is the smallest coefficient change relative to the largest coefficient on a
	// pass before stopping early.
	Tolerance float64 `json:"tolerance"`
	// FitIntercept centers the features and target and fits an unpenalized intercept
	FitIntercept bool `json:"fit_intercept"`
}

// NewDefaultElasticNetOptions returns the options of the stacking meta learner
func NewDefaultElasticNetOptions() *ElasticNetOptions {
	return &ElasticNetOptions{
		Alpha:        DefaultAlpha,
		L1Ratio:      DefaultL1Ratio,
		Iterations:   DefaultIterations,
		Tolerance:    DefaultTolerance,
		FitIntercept: true,
	}
}

// Validate runs basic validation on elastic net options
func (e *ElasticNetOptions) Validate() (*ElasticNetOptions, error) {
	if e == nil {
		e = NewDefaultElasticNetOptions()
	}
	if e.Alpha < 0 {
		return nil, ErrNegativeAlpha
	}
	if e.L1Ratio < 0 || e.L1Ratio > 1 {
		return nil, ErrInvalidL1Ratio
	}
	if e.Iterations < 0 {
		return nil, ErrNegativeIterations
	}
	if e.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	return e, nil
}

// ElasticNetRegression minimizes
//
//	1/(2m) * ||y - Xw||^2 + alpha * l1 * ||w||_1 + 0.5 * alpha * (1 - l1) * ||w||^2
//
// using cyclic coordinate descent.
type ElasticNetRegression struct {
	opt *ElasticNetOptions

	coef      []float64
	intercept float64
}

// NewElasticNetRegression initializes an elastic net model ready for fitting
func NewElasticNetRegression(opt *ElasticNetOptions) (*ElasticNetRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &ElasticNetRegression{opt: opt}, nil
}

// Fit the model according to the given training data
func (e *ElasticNetRegression) Fit(x, y mat.Matrix) error {
	if e.opt == nil {
		return ErrNoOptions
	}
	m, n, yArr, err := validateFit(x, y)
	if err != nil {
		return err
	}
	if m == 0 {
		return ErrNoTrainingRows
	}

	xMean := make([]float64, n)
	var yMean float64
	xcols := make([][]float64, n)
	for j := 0; j < n; j++ {
		xcols[j] = mat.Col(nil, j, x)
		if e.opt.FitIntercept {
			xMean[j] = floats.Sum(xcols[j]) / float64(m)
			floats.AddConst(-xMean[j], xcols[j])
		}
	}
	if e.opt.FitIntercept {
		yMean = floats.Sum(yArr) / float64(m)
		floats.AddConst(-yMean, yArr)
	}

	// precompute the per feature dot product
	xdot := make([]float64, n)
	for j := 0; j < n; j++ {
		xdot[j] = floats.Dot(xcols[j], xcols[j])
	}

	l1 := float64(m) * e.opt.Alpha * e.opt.L1Ratio
	l2 := float64(m) * e.opt.Alpha * (1.0 - e.opt.L1Ratio)

	beta := make([]float64, n)
	// residual starts at y since all betas are 0
	residual := make([]float64, m)
	copy(residual, yArr)

	for i := 0; i < e.opt.Iterations; i++ {
		maxCoef := 0.0
		maxUpdate := 0.0
		for j := 0; j < n; j++ {
			denom := xdot[j] + l2
			if denom == 0 {
				continue
			}
			betaCurr := beta[j]
			rho := floats.Dot(xcols[j], residual) + xdot[j]*betaCurr
			betaNext := SoftThreshold(rho, l1) / denom

			if delta := betaNext - betaCurr; delta != 0 {
				floats.AddScaled(residual, -delta, xcols[j])
			}
			maxCoef = math.Max(maxCoef, math.Abs(betaNext))
			maxUpdate = math.Max(maxUpdate, math.Abs(betaNext-betaCurr))
			beta[j] = betaNext
		}
		// break early if we've achieved the desired tolerance
		if maxUpdate <= e.opt.Tolerance*maxCoef {
			break
		}
	}

	e.coef = beta
	e.intercept = 0
	if e.opt.FitIntercept {
		e.intercept = yMean - floats.Dot(xMean, beta)
	}
	return nil
}

// Predict using the elastic net model
func (e *ElasticNetRegression) Predict(x mat.Matrix) ([]float64, error) {
	if e.coef == nil {
		return nil, ErrNotFitted
	}
	m, err := validatePredict(x, len(e.coef))
	if err != nil {
		return nil, err
	}
	res := make([]float64, m)
	row := make([]float64, len(e.coef))
	for i := 0; i < m; i++ {
		mat.Row(row, i, x)
		res[i] = floats.Dot(row, e.coef) + e.intercept
	}
	return res, nil
}

// Intercept returns the computed intercept if FitIntercept is set to true. Defaults to 0.0 if not set.
func (e *ElasticNetRegression) Intercept() float64 {
	return e.intercept
}

// Coef returns a copy of the trained coefficients in the same order of the training feature
// matrix columns.
func (e *ElasticNetRegression) Coef() []float64 {
	c := make([]float64, len(e.coef))
	copy(c, e.coef)
	return c
}

// Clone returns an unfitted elastic net with the same options
func (e *ElasticNetRegression) Clone() Estimator {
	opt := *e.opt
	return &ElasticNetRegression{opt: &opt}
}

// State exports the fitted coefficients
func (e *ElasticNetRegression) State() (EstimatorState, error) {
	if e.coef == nil {
		return EstimatorState{}, ErrNotFitted
	}
	return EstimatorState{
		Type: EstimatorElasticNet,
		ElasticNet: &ElasticNetState{
			Options:   *e.opt,
			Intercept: e.intercept,
			Coef:      e.Coef(),
		},
	}, nil
}

// SoftThreshold shrinks x towards 0 by gamma, returning 0.0 if |x| <= gamma
func SoftThreshold(x, gamma float64) float64 {
	res := math.Max(0, math.Abs(x)-gamma)
	if math.Signbit(x) {
		return -res
	}
	return res
}
