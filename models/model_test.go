package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFiniteRSquared(t *testing.T) {
	testData := map[string]struct {
		predicted []float64
		actual    []float64
		expected  float64
	}{
		"perfect":                {[]float64{1, 2, 3}, []float64{1, 2, 3}, 1.0},
		"mean prediction":        {[]float64{2, 2, 2}, []float64{1, 2, 3}, 0.0},
		"constant actual match":  {[]float64{4, 4}, []float64{4, 4}, 1.0},
		"constant actual missed": {[]float64{3, 5}, []float64{4, 4}, 0.0},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, td.expected, FiniteRSquared(td.predicted, td.actual), 1e-12)
		})
	}
}

func TestScoreConstantTarget(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{7, 7, 7, 7})

	model, err := NewElasticNetRegression(nil)
	require.Nil(t, err)
	require.Nil(t, model.Fit(x, y))

	// an intercept only fit reproduces the constant exactly
	score, err := Score(model, x, y)
	require.Nil(t, err)
	assert.Equal(t, 1.0, score)

	shifted := mat.NewDense(4, 1, []float64{9, 9, 9, 9})
	score, err = Score(model, x, shifted)
	require.Nil(t, err)
	assert.Equal(t, 0.0, score)
}
