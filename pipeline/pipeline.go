// Package pipeline chains the standard scaler with the stacked ensemble and persists the
// fitted result as a versioned artifact.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-salesforecast/models"
	"gonum.org/v1/gonum/mat"
)

const (
	NameRandomForest = "rf"
	NameDepthwise    = "xgb"
	NameLeafwise     = "lgbm"
)

var (
	ErrNoScaler = errors.New("pipeline has no scaler")
	ErrNoStack  = errors.New("pipeline has no stacking ensemble")
)

// Options configures every estimator of the pipeline
type Options struct {
	RandomForest *models.RandomForestOptions     `json:"random_forest"`
	Depthwise    *models.GradientBoostingOptions `json:"depthwise"`
	Leafwise     *models.GradientBoostingOptions `json:"leafwise"`
	Final        *models.ElasticNetOptions       `json:"final"`
	Stacking     *models.StackingOptions         `json:"stacking"`

	// Parallelization bounds concurrent estimator fits and forest trees. 0 uses every cpu.
	Parallelization int `json:"-"`
}

// NewDefaultOptions returns a random forest, a depthwise and a leafwise gradient boosted
// ensemble stacked under an elastic net over 5 folds.
func NewDefaultOptions() *Options {
	return &Options{
		RandomForest: models.NewDefaultRandomForestOptions(),
		Depthwise:    models.NewDefaultDepthwiseBoostingOptions(),
		Leafwise:     models.NewDefaultLeafwiseBoostingOptions(),
		Final:        models.NewDefaultElasticNetOptions(),
		Stacking:     models.NewDefaultStackingOptions(),
	}
}

// Validate fills in any missing estimator options with defaults
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	var err error
	if o.RandomForest, err = o.RandomForest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid random forest options, %w", err)
	}
	if o.Depthwise == nil {
		o.Depthwise = models.NewDefaultDepthwiseBoostingOptions()
	}
	if o.Depthwise, err = o.Depthwise.Validate(); err != nil {
		return nil, fmt.Errorf("invalid depthwise boosting options, %w", err)
	}
	if o.Leafwise == nil {
		o.Leafwise = models.NewDefaultLeafwiseBoostingOptions()
	}
	if o.Leafwise, err = o.Leafwise.Validate(); err != nil {
		return nil, fmt.Errorf("invalid leafwise boosting options, %w", err)
	}
	if o.Final, err = o.Final.Validate(); err != nil {
		return nil, fmt.Errorf("invalid final estimator options, %w", err)
	}
	if o.Stacking, err = o.Stacking.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stacking options, %w", err)
	}
	if o.Parallelization > 0 {
		o.RandomForest.Parallelization = o.Parallelization
		o.Stacking.Parallelization = o.Parallelization
	}
	return o, nil
}

// Pipeline standardizes the design matrix before passing it to the stacked ensemble
type Pipeline struct {
	Scaler *models.StandardScaler
	Stack  *models.StackingRegressor
}

// New initializes an unfitted pipeline
func New(opt *Options) (*Pipeline, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	forest, err := models.NewRandomForestRegressor(opt.RandomForest)
	if err != nil {
		return nil, err
	}
	depthwise, err := models.NewGradientBoostingRegressor(opt.Depthwise)
	if err != nil {
		return nil, err
	}
	leafwise, err := models.NewGradientBoostingRegressor(opt.Leafwise)
	if err != nil {
		return nil, err
	}
	final, err := models.NewElasticNetRegression(opt.Final)
	if err != nil {
		return nil, err
	}

	stack, err := models.NewStackingRegressor([]models.NamedEstimator{
		{Name: NameRandomForest, Estimator: forest},
		{Name: NameDepthwise, Estimator: depthwise},
		{Name: NameLeafwise, Estimator: leafwise},
	}, final, opt.Stacking)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Scaler: new(models.StandardScaler), Stack: stack}, nil
}

// Fit learns the scaler on x and trains the stack on the scaled x
func (p *Pipeline) Fit(x, y mat.Matrix) error {
	if p.Scaler == nil {
		return ErrNoScaler
	}
	if p.Stack == nil {
		return ErrNoStack
	}
	scaled, err := p.Scaler.FitTransform(x)
	if err != nil {
		return fmt.Errorf("unable to fit scaler, %w", err)
	}
	if err := p.Stack.Fit(scaled, y); err != nil {
		return fmt.Errorf("unable to fit stacking ensemble, %w", err)
	}
	return nil
}

// Predict scales x with the fitted scaler and predicts with the stack
func (p *Pipeline) Predict(x mat.Matrix) ([]float64, error) {
	if p.Scaler == nil {
		return nil, ErrNoScaler
	}
	if p.Stack == nil {
		return nil, ErrNoStack
	}
	scaled, err := p.Scaler.Transform(x)
	if err != nil {
		return nil, err
	}
	return p.Stack.Predict(scaled)
}

// State is the serializable form of a fitted pipeline
type State struct {
	Scaler   *models.StandardScaler `json:"scaler"`
	Stacking *models.StackingState  `json:"stacking"`
}

// State exports the fitted pipeline
func (p *Pipeline) State() (*State, error) {
	if p.Scaler == nil || p.Scaler.Mean == nil {
		return nil, ErrNoScaler
	}
	if p.Stack == nil {
		return nil, ErrNoStack
	}
	stack, err := p.Stack.State()
	if err != nil {
		return nil, err
	}
	return &State{Scaler: p.Scaler, Stacking: stack}, nil
}

// NewFromState rebuilds a fitted pipeline
func NewFromState(s *State) (*Pipeline, error) {
	if s == nil || s.Scaler == nil || len(s.Scaler.Mean) == 0 {
		return nil, ErrNoScaler
	}
	if len(s.Scaler.Mean) != len(s.Scaler.Scale) {
		return nil, fmt.Errorf("scaler has %d means and %d scales, %w", len(s.Scaler.Mean), len(s.Scaler.Scale), models.ErrFeatureLenMismatch)
	}
	if s.Stacking == nil {
		return nil, ErrNoStack
	}
	stack, err := models.NewStackingFromState(s.Stacking)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Scaler: s.Scaler, Stack: stack}, nil
}
