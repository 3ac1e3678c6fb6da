package models

import (
	"errors"
	"fmt"
	"runtime"

	mat_ "github.com/aouyang1/go-salesforecast/mat"
	"gonum.org/v1/gonum/mat"
)

const DefaultFolds = 5

var (
	ErrTooFewFolds      = errors.New("stacking needs at least 2 folds")
	ErrTooFewRows       = errors.New("fewer training rows than folds")
	ErrNoBaseEstimators = errors.New("no base estimators")
	ErrNoFinalEstimator = errors.New("no final estimator")
	ErrDuplicateName    = errors.New("duplicate estimator name")
)

// StackingOptions configures the cross validation used to train the final estimator
type StackingOptions struct {
	Folds int `json:"folds"`
	// Parallelization caps how many base estimators are fit at once. 0 uses every cpu.
	Parallelization int `json:"-"`
}

// NewDefaultStackingOptions returns 5 contiguous folds
func NewDefaultStackingOptions() *StackingOptions {
	return &StackingOptions{Folds: DefaultFolds}
}

// Validate runs basic validation on the stacking options
func (s *StackingOptions) Validate() (*StackingOptions, error) {
	if s == nil {
		s = NewDefaultStackingOptions()
	}
	if s.Folds < 2 {
		return nil, ErrTooFewFolds
	}
	return s, nil
}

// NamedEstimator is a base estimator of the stack
type NamedEstimator struct {
	Name      string
	Estimator Estimator
}

// Fold is the contiguous half open range of rows held out in one cross validation split
type Fold struct {
	Start int
	End   int
}

// KFold splits m rows into k contiguous folds without shuffling. The first m % k folds
// hold one extra row.
func KFold(m, k int) ([]Fold, error) {
	if k < 2 {
		return nil, ErrTooFewFolds
	}
	if m < k {
		return nil, fmt.Errorf("%d rows for %d folds, %w", m, k, ErrTooFewRows)
	}
	folds := make([]Fold, k)
	start := 0
	for f := 0; f < k; f++ {
		size := m / k
		if f < m%k {
			size++
		}
		folds[f] = Fold{Start: start, End: start + size}
		start += size
	}
	return folds, nil
}

// Train returns every row index outside of the fold
func (f Fold) Train(m int) []int {
	idx := make([]int, 0, m-(f.End-f.Start))
	for i := 0; i < f.Start; i++ {
		idx = append(idx, i)
	}
	for i := f.End; i < m; i++ {
		idx = append(idx, i)
	}
	return idx
}

// Test returns the row indices of the fold
func (f Fold) Test() []int {
	idx := make([]int, 0, f.End-f.Start)
	for i := f.Start; i < f.End; i++ {
		idx = append(idx, i)
	}
	return idx
}

// StackingRegressor fits the final estimator on the out of fold predictions of every base
// estimator, then refits each base estimator on all of the training rows.
type StackingRegressor struct {
	opt *StackingOptions

	estimators []NamedEstimator
	final      *ElasticNetRegression
	fitted     bool
}

// NewStackingRegressor initializes a stack from unfitted base estimators and a final
// estimator. A nil final estimator uses the default elastic net.
func NewStackingRegressor(estimators []NamedEstimator, final *ElasticNetRegression, opt *StackingOptions) (*StackingRegressor, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if len(estimators) == 0 {
		return nil, ErrNoBaseEstimators
	}
	seen := make(map[string]struct{}, len(estimators))
	for _, e := range estimators {
		if e.Estimator == nil {
			return nil, fmt.Errorf("%s, %w", e.Name, ErrNoBaseEstimators)
		}
		if _, exists := seen[e.Name]; exists {
			return nil, fmt.Errorf("%s, %w", e.Name, ErrDuplicateName)
		}
		seen[e.Name] = struct{}{}
	}
	if final == nil {
		final, err = NewElasticNetRegression(nil)
		if err != nil {
			return nil, err
		}
	}
	return &StackingRegressor{opt: opt, estimators: estimators, final: final}, nil
}

func (s *StackingRegressor) parallelization() int {
	if s.opt.Parallelization > 0 {
		return s.opt.Parallelization
	}
	return runtime.NumCPU()
}

// Fit trains the stack
func (s *StackingRegressor) Fit(x, y mat.Matrix) error {
	if s.opt == nil {
		return ErrNoOptions
	}
	m, _, yArr, err := validateFit(x, y)
	if err != nil {
		return err
	}
	oof, err := s.OutOfFold(x, yArr)
	if err != nil {
		return err
	}
	if err := s.final.Fit(oof, y); err != nil {
		return fmt.Errorf("unable to fit final estimator, %w", err)
	}

	err = runParallel(len(s.estimators), s.parallelization(), func(e int) error {
		if err := s.estimators[e].Estimator.Fit(x, y); err != nil {
			return fmt.Errorf("unable to refit %s on %d rows, %w", s.estimators[e].Name, m, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.fitted = true
	return nil
}

// OutOfFold returns an m x len(estimators) matrix where row i column e is the prediction of
// a clone of base estimator e fit on every fold except the one holding row i.
func (s *StackingRegressor) OutOfFold(x mat.Matrix, y []float64) (*mat.Dense, error) {
	m, _ := x.Dims()
	folds, err := KFold(m, s.opt.Folds)
	if err != nil {
		return nil, err
	}
	numEst := len(s.estimators)
	oof := mat.NewDense(m, numEst, nil)

	// each task writes a disjoint block of oof
	err = runParallel(len(folds)*numEst, s.parallelization(), func(task int) error {
		fold := folds[task/numEst]
		named := s.estimators[task%numEst]

		trainIdx := fold.Train(m)
		xTrain, err := mat_.SelectRows(x, trainIdx)
		if err != nil {
			return err
		}
		yTrain := mat.NewDense(len(trainIdx), 1, mat_.SelectValues(y, trainIdx))
		xTest, err := mat_.SelectRows(x, fold.Test())
		if err != nil {
			return err
		}

		est := named.Estimator.Clone()
		if err := est.Fit(xTrain, yTrain); err != nil {
			return fmt.Errorf("unable to fit %s on fold [%d, %d), %w", named.Name, fold.Start, fold.End, err)
		}
		pred, err := est.Predict(xTest)
		if err != nil {
			return fmt.Errorf("unable to predict %s on fold [%d, %d), %w", named.Name, fold.Start, fold.End, err)
		}
		for k, v := range pred {
			oof.Set(fold.Start+k, task%numEst, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return oof, nil
}

// BasePredictions returns the predictions of every fitted base estimator as columns
func (s *StackingRegressor) BasePredictions(x mat.Matrix) (*mat.Dense, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	cols := make([][]float64, len(s.estimators))
	for e, named := range s.estimators {
		pred, err := named.Estimator.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("%s, %w", named.Name, err)
		}
		cols[e] = pred
	}
	return mat_.ColumnsFrom(cols)
}

// Predict combines the base estimator predictions with the final estimator
func (s *StackingRegressor) Predict(x mat.Matrix) ([]float64, error) {
	base, err := s.BasePredictions(x)
	if err != nil {
		return nil, err
	}
	return s.final.Predict(base)
}

// Estimators returns the base estimators in stacking order
func (s *StackingRegressor) Estimators() []NamedEstimator {
	return s.estimators
}

// Final returns the final estimator
func (s *StackingRegressor) Final() *ElasticNetRegression {
	return s.final
}

// StackingState is the exported form of a fitted stack
type StackingState struct {
	Options    StackingOptions  `json:"options"`
	Estimators []EstimatorState `json:"estimators"`
	Final      EstimatorState   `json:"final"`
}

// State exports every fitted estimator of the stack
func (s *StackingRegressor) State() (*StackingState, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	states := make([]EstimatorState, 0, len(s.estimators))
	for _, named := range s.estimators {
		state, err := named.Estimator.State()
		if err != nil {
			return nil, fmt.Errorf("%s, %w", named.Name, err)
		}
		state.Name = named.Name
		states = append(states, state)
	}
	final, err := s.final.State()
	if err != nil {
		return nil, fmt.Errorf("final estimator, %w", err)
	}
	return &StackingState{
		Options:    *s.opt,
		Estimators: states,
		Final:      final,
	}, nil
}

// NewStackingFromState restores a fitted stack
func NewStackingFromState(state *StackingState) (*StackingRegressor, error) {
	if state == nil {
		return nil, ErrIncompleteState
	}
	if state.Final.Type != EstimatorElasticNet || state.Final.ElasticNet == nil {
		return nil, fmt.Errorf("final estimator must be %s, %w", EstimatorElasticNet, ErrNoFinalEstimator)
	}
	final, err := NewElasticNetFromState(state.Final.ElasticNet)
	if err != nil {
		return nil, err
	}
	if len(final.coef) != len(state.Estimators) {
		return nil, fmt.Errorf("final estimator has %d coefficients for %d base estimators, %w", len(final.coef), len(state.Estimators), ErrFeatureLenMismatch)
	}

	estimators := make([]NamedEstimator, 0, len(state.Estimators))
	for _, es := range state.Estimators {
		est, err := es.ToEstimator()
		if err != nil {
			return nil, fmt.Errorf("%s, %w", es.Name, err)
		}
		estimators = append(estimators, NamedEstimator{Name: es.Name, Estimator: est})
	}

	opt := state.Options
	s, err := NewStackingRegressor(estimators, final, &opt)
	if err != nil {
		return nil, err
	}
	s.fitted = true
	return s, nil
}
