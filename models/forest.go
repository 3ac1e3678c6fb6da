package models

import (
	"errors"
	"math/rand/v2"
	"runtime"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoTrees           = errors.New("number of trees must be positive")
	ErrNegativeDepth     = errors.New("negative max depth")
	ErrInvalidLeafSample = errors.New("min samples per leaf must be positive")
)

// RandomForestOptions configures a bagged forest of regression trees
type RandomForestOptions struct {
	NumTrees       int  `json:"num_trees"`
	MaxDepth       int  `json:"max_depth"`
	MinSamplesLeaf int  `json:"min_samples_leaf"`
	MaxBins        int  `json:"max_bins"`
	Bootstrap      bool `json:"bootstrap"`
	// Seed makes the bootstrap samples reproducible. Tree i draws from a stream keyed on
	// (Seed, i).
	Seed uint64 `json:"seed"`
	// Parallelization sets how many trees are grown at once. 0 uses every cpu.
	Parallelization int `json:"-"`
}

// NewDefaultRandomForestOptions returns 500 trees of depth 10 on bootstrap samples
func NewDefaultRandomForestOptions() *RandomForestOptions {
	return &RandomForestOptions{
		NumTrees:       500,
		MaxDepth:       10,
		MinSamplesLeaf: 1,
		MaxBins:        DefaultMaxBins,
		Bootstrap:      true,
		Seed:           42,
	}
}

// Validate runs basic validation on the forest options
func (r *RandomForestOptions) Validate() (*RandomForestOptions, error) {
	if r == nil {
		r = NewDefaultRandomForestOptions()
	}
	if r.NumTrees <= 0 {
		return nil, ErrNoTrees
	}
	if r.MaxDepth < 0 {
		return nil, ErrNegativeDepth
	}
	if r.MinSamplesLeaf <= 0 {
		return nil, ErrInvalidLeafSample
	}
	if r.MaxBins == 0 {
		r.MaxBins = DefaultMaxBins
	}
	return r, nil
}

// RandomForestRegressor averages regression trees each grown on a bootstrap sample of the
// training rows.
type RandomForestRegressor struct {
	opt *RandomForestOptions

	features int
	trees    []*Tree
}

// NewRandomForestRegressor initializes a forest ready for fitting
func NewRandomForestRegressor(opt *RandomForestOptions) (*RandomForestRegressor, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RandomForestRegressor{opt: opt}, nil
}

// Fit grows every tree of the forest
func (r *RandomForestRegressor) Fit(x, y mat.Matrix) error {
	if r.opt == nil {
		return ErrNoOptions
	}
	m, n, yArr, err := validateFit(x, y)
	if err != nil {
		return err
	}
	if m == 0 {
		return ErrNoTrainingRows
	}

	bins := newBinMapper(x, r.opt.MaxBins)
	binned := bins.transform(x)
	features := make([]int, n)
	for j := range features {
		features[j] = j
	}

	parallelization := r.opt.Parallelization
	if parallelization <= 0 {
		parallelization = runtime.NumCPU()
	}

	trees := make([]*Tree, r.opt.NumTrees)
	err = runParallel(r.opt.NumTrees, parallelization, func(t int) error {
		weights := make([]float64, m)
		if r.opt.Bootstrap {
			rng := rand.New(rand.NewPCG(r.opt.Seed, uint64(t)))
			for k := 0; k < m; k++ {
				weights[rng.IntN(m)]++
			}
		} else {
			for i := range weights {
				weights[i] = 1.0
			}
		}

		rows := make([]int, 0, m)
		grad := make([]float64, m)
		hess := make([]float64, m)
		for i, w := range weights {
			if w == 0 {
				continue
			}
			rows = append(rows, i)
			grad[i] = -w * yArr[i]
			hess[i] = w
		}

		builder := &treeBuilder{
			opt: treeOptions{
				MaxDepth:       r.opt.MaxDepth,
				MinSamplesLeaf: r.opt.MinSamplesLeaf,
			},
			bins:     bins,
			binned:   binned,
			grad:     grad,
			hess:     hess,
			features: features,
		}
		trees[t] = builder.build(rows)
		return nil
	})
	if err != nil {
		return err
	}

	r.features = n
	r.trees = trees
	return nil
}

// Predict averages the prediction of every tree
func (r *RandomForestRegressor) Predict(x mat.Matrix) ([]float64, error) {
	if len(r.trees) == 0 {
		return nil, ErrNotFitted
	}
	m, err := validatePredict(x, r.features)
	if err != nil {
		return nil, err
	}
	res := make([]float64, m)
	row := make([]float64, r.features)
	for i := 0; i < m; i++ {
		mat.Row(row, i, x)
		var sum float64
		for _, t := range r.trees {
			sum += t.PredictRow(row)
		}
		res[i] = sum / float64(len(r.trees))
	}
	return res, nil
}

// Trees returns the fitted trees
func (r *RandomForestRegressor) Trees() []*Tree {
	return r.trees
}

// Clone returns an unfitted forest with the same options
func (r *RandomForestRegressor) Clone() Estimator {
	opt := *r.opt
	return &RandomForestRegressor{opt: &opt}
}

// State exports the fitted trees
func (r *RandomForestRegressor) State() (EstimatorState, error) {
	if len(r.trees) == 0 {
		return EstimatorState{}, ErrNotFitted
	}
	return EstimatorState{
		Type: EstimatorRandomForest,
		RandomForest: &RandomForestState{
			Options:  *r.opt,
			Features: r.features,
			Trees:    r.trees,
		},
	}, nil
}
