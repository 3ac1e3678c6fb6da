package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGradientBoostingOptionsValidate(t *testing.T) {
	valid := func() *GradientBoostingOptions {
		return NewDefaultDepthwiseBoostingOptions()
	}
	testData := map[string]struct {
		update func(o *GradientBoostingOptions)
		err    error
	}{
		"valid":             {func(o *GradientBoostingOptions) {}, nil},
		"unknown growth":    {func(o *GradientBoostingOptions) { o.Growth = "random" }, ErrUnknownGrowthPolicy},
		"no rounds":         {func(o *GradientBoostingOptions) { o.NumRounds = 0 }, ErrNoRounds},
		"zero rate":         {func(o *GradientBoostingOptions) { o.LearningRate = 0 }, ErrInvalidLearningRate},
		"subsample":         {func(o *GradientBoostingOptions) { o.Subsample = 1.1 }, ErrInvalidSubsample},
		"colsample":         {func(o *GradientBoostingOptions) { o.ColSample = 0 }, ErrInvalidColSample},
		"negative lambda":   {func(o *GradientBoostingOptions) { o.Lambda = -1 }, ErrNegativeLambda},
		"negative leaves":   {func(o *GradientBoostingOptions) { o.MaxLeaves = -1 }, ErrNegativeMaxLeaves},
		"child weight":      {func(o *GradientBoostingOptions) { o.MinChildWeight = -1 }, ErrNegativeChildWeight},
		"unbounded depth":   {func(o *GradientBoostingOptions) { o.MaxDepth = 0 }, ErrUnboundedTreeGrowth},
		"unbounded leaves":  {func(o *GradientBoostingOptions) { o.Growth = GrowthLeafwise }, ErrUnboundedTreeGrowth},
		"no samples a leaf": {func(o *GradientBoostingOptions) { o.MinSamplesLeaf = 0 }, ErrInvalidLeafSample},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := valid()
			td.update(opt)
			_, err := opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.Nil(t, err)
		})
	}

	var nilOpt *GradientBoostingOptions
	opt, err := nilOpt.Validate()
	require.Nil(t, err)
	assert.Equal(t, NewDefaultDepthwiseBoostingOptions(), opt)

	_, err = NewDefaultLeafwiseBoostingOptions().Validate()
	assert.Nil(t, err)
}

func TestGradientBoostingStep(t *testing.T) {
	x, y := stepData(20)

	testData := map[string]*GradientBoostingOptions{
		"depthwise": {
			Growth:         GrowthDepthwise,
			NumRounds:      200,
			LearningRate:   0.1,
			MaxDepth:       2,
			Subsample:      1,
			ColSample:      1,
			MinSamplesLeaf: 1,
		},
		"leafwise": {
			Growth:         GrowthLeafwise,
			NumRounds:      200,
			LearningRate:   0.1,
			MaxLeaves:      4,
			Subsample:      1,
			ColSample:      1,
			MinSamplesLeaf: 2,
		},
	}
	for name, opt := range testData {
		t.Run(name, func(t *testing.T) {
			model, err := NewGradientBoostingRegressor(opt)
			require.Nil(t, err)
			require.Nil(t, model.Fit(x, y))

			assert.Equal(t, 5.0, model.BaseScore())
			assert.Len(t, model.Trees(), opt.NumRounds)
			for _, tree := range model.Trees() {
				if opt.MaxLeaves > 0 {
					assert.LessOrEqual(t, tree.NumLeaves(), opt.MaxLeaves)
				}
				if opt.MaxDepth > 0 {
					assert.LessOrEqual(t, tree.Depth(), opt.MaxDepth)
				}
			}

			pred, err := model.Predict(mat.NewDense(3, 1, []float64{2, 9, 17}))
			require.Nil(t, err)
			assert.InDeltaSlice(t, []float64{0, 0, 10}, pred, 1e-5)
		})
	}
}

func TestGradientBoostingSampling(t *testing.T) {
	x, y := linearData(80)
	opt := NewDefaultDepthwiseBoostingOptions()
	opt.NumRounds = 100

	predict := func() []float64 {
		model, err := NewGradientBoostingRegressor(opt)
		require.Nil(t, err)
		require.Nil(t, model.Fit(x, y))

		score, err := Score(model, x, y)
		require.Nil(t, err)
		assert.Greater(t, score, 0.9)

		pred, err := model.Predict(x)
		require.Nil(t, err)
		return pred
	}
	assert.Equal(t, predict(), predict(), "same seed gives the same ensemble")
}

func TestGradientBoostingClone(t *testing.T) {
	x, y := stepData(10)
	model, err := NewGradientBoostingRegressor(&GradientBoostingOptions{
		Growth:         GrowthDepthwise,
		NumRounds:      5,
		LearningRate:   0.5,
		MaxDepth:       1,
		Subsample:      1,
		ColSample:      1,
		MinSamplesLeaf: 1,
	})
	require.Nil(t, err)
	require.Nil(t, model.Fit(x, y))

	clone := model.Clone()
	_, err = clone.Predict(x)
	assert.ErrorIs(t, err, ErrNotFitted)

	require.Nil(t, clone.Fit(x, y))
	expected, err := model.Predict(x)
	require.Nil(t, err)
	actual, err := clone.Predict(x)
	require.Nil(t, err)
	assert.Equal(t, expected, actual)
}
