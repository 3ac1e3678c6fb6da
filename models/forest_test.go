package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRandomForestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *RandomForestOptions
		err      error
		expected *RandomForestOptions
	}{
		"nil":            {nil, nil, NewDefaultRandomForestOptions()},
		"no trees":       {&RandomForestOptions{MinSamplesLeaf: 1}, ErrNoTrees, nil},
		"negative depth": {&RandomForestOptions{NumTrees: 1, MaxDepth: -1, MinSamplesLeaf: 1}, ErrNegativeDepth, nil},
		"no leaf sample": {&RandomForestOptions{NumTrees: 1}, ErrInvalidLeafSample, nil},
		"default bins": {
			&RandomForestOptions{NumTrees: 3, MinSamplesLeaf: 1},
			nil,
			&RandomForestOptions{NumTrees: 3, MinSamplesLeaf: 1, MaxBins: DefaultMaxBins},
		},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestRandomForestStep(t *testing.T) {
	x, y := stepData(40)

	testData := map[string]struct {
		opt *RandomForestOptions
		tol float64
	}{
		"no bootstrap": {
			opt: &RandomForestOptions{NumTrees: 5, MaxDepth: 3, MinSamplesLeaf: 1},
			tol: 1e-9,
		},
		"bootstrap": {
			opt: &RandomForestOptions{NumTrees: 50, MaxDepth: 3, MinSamplesLeaf: 1, Bootstrap: true, Seed: 7, Parallelization: 4},
			tol: 1e-9,
		},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			model, err := NewRandomForestRegressor(td.opt)
			require.Nil(t, err)
			require.Nil(t, model.Fit(x, y))
			assert.Len(t, model.Trees(), td.opt.NumTrees)

			pred, err := model.Predict(mat.NewDense(2, 1, []float64{3, 35}))
			require.Nil(t, err)
			assert.InDeltaSlice(t, []float64{0, 10}, pred, td.tol)

			score, err := Score(model, x, y)
			require.Nil(t, err)
			assert.Greater(t, score, 0.95)
		})
	}
}

func TestRandomForestDeterministic(t *testing.T) {
	x, y := linearData(60)
	opt := &RandomForestOptions{NumTrees: 20, MaxDepth: 4, MinSamplesLeaf: 1, Bootstrap: true, Seed: 42}

	predict := func() []float64 {
		model, err := NewRandomForestRegressor(opt)
		require.Nil(t, err)
		require.Nil(t, model.Fit(x, y))
		pred, err := model.Predict(x)
		require.Nil(t, err)
		return pred
	}
	assert.Equal(t, predict(), predict())
}

func TestRandomForestErrors(t *testing.T) {
	model, err := NewRandomForestRegressor(&RandomForestOptions{NumTrees: 2, MinSamplesLeaf: 1})
	require.Nil(t, err)

	_, err = model.Predict(mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, ErrNotFitted)

	err = model.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(2, 1, []float64{1, 2}))
	assert.ErrorIs(t, err, ErrTargetLenMismatch)

	x, y := stepData(10)
	require.Nil(t, model.Fit(x, y))
	_, err = model.Predict(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
}
