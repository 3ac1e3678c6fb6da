package models

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

const DefaultMaxBins = 255

// binMapper buckets each feature into at most maxBins ordered bins. A value v falls in bin b
// when thresholds[b-1] < v <= thresholds[b], and in the last bin when it is above every
// threshold.
type binMapper struct {
	thresholds [][]float64
}

func newBinMapper(x mat.Matrix, maxBins int) *binMapper {
	if maxBins <= 1 || maxBins > 256 {
		maxBins = DefaultMaxBins
	}
	m, n := x.Dims()
	b := &binMapper{thresholds: make([][]float64, n)}
	col := make([]float64, m)
	for j := 0; j < n; j++ {
		mat.Col(col, j, x)
		b.thresholds[j] = featureThresholds(col, maxBins)
	}
	return b
}

func featureThresholds(values []float64, maxBins int) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	distinct := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) <= 1 {
		return nil
	}

	if len(distinct) <= maxBins {
		thresholds := make([]float64, 0, len(distinct)-1)
		for i := 1; i < len(distinct); i++ {
			thresholds = append(thresholds, (distinct[i-1]+distinct[i])/2.0)
		}
		return thresholds
	}

	// quantile cut points, never at the maximum so the last bin is never empty
	top := distinct[len(distinct)-1]
	thresholds := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		v := sorted[k*len(sorted)/maxBins]
		if v >= top {
			break
		}
		if len(thresholds) > 0 && v <= thresholds[len(thresholds)-1] {
			continue
		}
		thresholds = append(thresholds, v)
	}
	return thresholds
}

func (b *binMapper) numBins(feature int) int {
	return len(b.thresholds[feature]) + 1
}

func (b *binMapper) bin(feature int, v float64) uint8 {
	return uint8(sort.SearchFloat64s(b.thresholds[feature], v))
}

// transform returns the bin of every value stored by feature column
func (b *binMapper) transform(x mat.Matrix) [][]uint8 {
	m, n := x.Dims()
	binned := make([][]uint8, n)
	for j := 0; j < n; j++ {
		binned[j] = make([]uint8, m)
		for i := 0; i < m; i++ {
			binned[j][i] = b.bin(j, x.At(i, j))
		}
	}
	return binned
}
