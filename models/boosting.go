package models

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoRounds            = errors.New("number of boosting rounds must be positive")
	ErrInvalidLearningRate = errors.New("learning rate must be within (0, 1]")
	ErrInvalidSubsample    = errors.New("subsample must be within (0, 1]")
	ErrInvalidColSample    = errors.New("column sample must be within (0, 1]")
	ErrNegativeLambda      = errors.New("negative lambda")
	ErrNegativeMaxLeaves   = errors.New("negative max leaves")
	ErrNegativeChildWeight = errors.New("negative min child weight")
	ErrUnboundedTreeGrowth = errors.New("depthwise growth needs a max depth and leafwise growth needs max leaves")
	ErrUnknownGrowthPolicy = errors.New("unknown tree growth policy")
)

// Growth selects how each boosted tree is expanded
type Growth string

const (
	// GrowthDepthwise splits every leaf level by level up to MaxDepth
	GrowthDepthwise Growth = "depthwise"
	// GrowthLeafwise always splits the leaf with the best gain until MaxLeaves
	GrowthLeafwise Growth = "leafwise"
)

// GradientBoostingOptions configures a gradient boosted tree ensemble on squared error
type GradientBoostingOptions struct {
	Growth         Growth  `json:"growth"`
	NumRounds      int     `json:"num_rounds"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	MaxLeaves      int     `json:"max_leaves"`
	Subsample      float64 `json:"subsample"`
	ColSample      float64 `json:"colsample_bytree"`
	Lambda         float64 `json:"lambda"`
	MinChildWeight float64 `json:"min_child_weight"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	MaxBins        int     `json:"max_bins"`
	Seed           uint64  `json:"seed"`
}

// NewDefaultDepthwiseBoostingOptions returns 500 rounds of depth 6 trees with an L2 leaf
// penalty of 1, in the style of xgboost.
func NewDefaultDepthwiseBoostingOptions() *GradientBoostingOptions {
	return &GradientBoostingOptions{
		Growth:         GrowthDepthwise,
		NumRounds:      500,
		LearningRate:   0.05,
		MaxDepth:       6,
		Subsample:      0.9,
		ColSample:      0.8,
		Lambda:         1.0,
		MinChildWeight: 1.0,
		MinSamplesLeaf: 1,
		MaxBins:        DefaultMaxBins,
		Seed:           42,
	}
}

// NewDefaultLeafwiseBoostingOptions returns 600 rounds of 64 leaf trees grown best first, in
// the style of lightgbm.
func NewDefaultLeafwiseBoostingOptions() *GradientBoostingOptions {
	return &GradientBoostingOptions{
		Growth:         GrowthLeafwise,
		NumRounds:      600,
		LearningRate:   0.05,
		MaxLeaves:      64,
		Subsample:      0.9,
		ColSample:      0.8,
		MinChildWeight: 1e-3,
		MinSamplesLeaf: 20,
		MaxBins:        DefaultMaxBins,
		Seed:           42,
	}
}

// Validate runs basic validation on the boosting options
func (g *GradientBoostingOptions) Validate() (*GradientBoostingOptions, error) {
	if g == nil {
		g = NewDefaultDepthwiseBoostingOptions()
	}
	switch g.Growth {
	case GrowthDepthwise, GrowthLeafwise:
	default:
		return nil, ErrUnknownGrowthPolicy
	}
	if g.NumRounds <= 0 {
		return nil, ErrNoRounds
	}
	if g.LearningRate <= 0 || g.LearningRate > 1 {
		return nil, ErrInvalidLearningRate
	}
	if g.MaxDepth < 0 {
		return nil, ErrNegativeDepth
	}
	if g.MaxLeaves < 0 {
		return nil, ErrNegativeMaxLeaves
	}
	if g.Growth == GrowthDepthwise && g.MaxDepth == 0 {
		return nil, ErrUnboundedTreeGrowth
	}
	if g.Growth == GrowthLeafwise && g.MaxLeaves == 0 {
		return nil, ErrUnboundedTreeGrowth
	}
	if g.Subsample <= 0 || g.Subsample > 1 {
		return nil, ErrInvalidSubsample
	}
	if g.ColSample <= 0 || g.ColSample > 1 {
		return nil, ErrInvalidColSample
	}
	if g.Lambda < 0 {
		return nil, ErrNegativeLambda
	}
	if g.MinChildWeight < 0 {
		return nil, ErrNegativeChildWeight
	}
	if g.MinSamplesLeaf <= 0 {
		return nil, ErrInvalidLeafSample
	}
	if g.MaxBins == 0 {
		g.MaxBins = DefaultMaxBins
	}
	return g, nil
}

// GradientBoostingRegressor fits trees sequentially on the residual of the running
// prediction starting from the mean of the target.
type GradientBoostingRegressor struct {
	opt *GradientBoostingOptions

	features  int
	baseScore float64
	trees     []*Tree
}

// NewGradientBoostingRegressor initializes a boosted ensemble ready for fitting
func NewGradientBoostingRegressor(opt *GradientBoostingOptions) (*GradientBoostingRegressor, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &GradientBoostingRegressor{opt: opt}, nil
}

// Fit runs every boosting round
func (g *GradientBoostingRegressor) Fit(x, y mat.Matrix) error {
	if g.opt == nil {
		return ErrNoOptions
	}
	m, n, yArr, err := validateFit(x, y)
	if err != nil {
		return err
	}
	if m == 0 {
		return ErrNoTrainingRows
	}

	bins := newBinMapper(x, g.opt.MaxBins)
	binned := bins.transform(x)
	rng := rand.New(rand.NewPCG(g.opt.Seed, 0))

	baseScore := floats.Sum(yArr) / float64(m)
	pred := make([]float64, m)
	floats.AddConst(baseScore, pred)

	numRows := max(int(math.Ceil(g.opt.Subsample*float64(m))), 1)
	numCols := max(int(math.Round(g.opt.ColSample*float64(n))), 1)

	treeOpt := treeOptions{
		MaxDepth:       g.opt.MaxDepth,
		MaxLeaves:      g.opt.MaxLeaves,
		MinSamplesLeaf: g.opt.MinSamplesLeaf,
		MinChildWeight: g.opt.MinChildWeight,
		Lambda:         g.opt.Lambda,
		Shrinkage:      g.opt.LearningRate,
	}
	if g.opt.Growth == GrowthDepthwise {
		treeOpt.MaxLeaves = 0
	}

	grad := make([]float64, m)
	hess := make([]float64, m)
	floats.AddConst(1.0, hess)

	trees := make([]*Tree, 0, g.opt.NumRounds)
	for round := 0; round < g.opt.NumRounds; round++ {
		floats.SubTo(grad, pred, yArr)

		rows := rng.Perm(m)[:numRows]
		features := rng.Perm(n)[:numCols]

		builder := &treeBuilder{
			opt:      treeOpt,
			bins:     bins,
			binned:   binned,
			grad:     grad,
			hess:     hess,
			features: features,
		}
		tree := builder.build(rows)
		for i := 0; i < m; i++ {
			pred[i] += tree.predictBinned(binned, i)
		}
		trees = append(trees, tree)
	}

	g.features = n
	g.baseScore = baseScore
	g.trees = trees
	return nil
}

// Predict sums the base score and the shrunk contribution of every tree
func (g *GradientBoostingRegressor) Predict(x mat.Matrix) ([]float64, error) {
	if len(g.trees) == 0 {
		return nil, ErrNotFitted
	}
	m, err := validatePredict(x, g.features)
	if err != nil {
		return nil, err
	}
	res := make([]float64, m)
	row := make([]float64, g.features)
	for i := 0; i < m; i++ {
		mat.Row(row, i, x)
		sum := g.baseScore
		for _, t := range g.trees {
			sum += t.PredictRow(row)
		}
		res[i] = sum
	}
	return res, nil
}

// BaseScore returns the initial prediction before any tree is applied
func (g *GradientBoostingRegressor) BaseScore() float64 {
	return g.baseScore
}

// Trees returns the fitted trees in boosting order
func (g *GradientBoostingRegressor) Trees() []*Tree {
	return g.trees
}

// Clone returns an unfitted ensemble with the same options
func (g *GradientBoostingRegressor) Clone() Estimator {
	opt := *g.opt
	return &GradientBoostingRegressor{opt: &opt}
}

// State exports the fitted trees
func (g *GradientBoostingRegressor) State() (EstimatorState, error) {
	if len(g.trees) == 0 {
		return EstimatorState{}, ErrNotFitted
	}
	return EstimatorState{
		Type: EstimatorGradientBoosting,
		GradientBoosting: &GradientBoostingState{
			Options:   *g.opt,
			Features:  g.features,
			BaseScore: g.baseScore,
			Trees:     g.trees,
		},
	}, nil
}
