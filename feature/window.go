package feature

import "math"

// Shift returns values moved k rows later. The first k rows are NaN.
func Shift(values []float64, k int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < k {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i-k]
	}
	return out
}

// RollingMean computes the trailing mean over window rows ending at each row, skipping NaNs.
// A row with fewer than minPeriods valid values is NaN.
func RollingMean(values []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(values))
	if minPeriods < 1 {
		minPeriods = 1
	}

	var sum float64
	var cnt int
	for i, v := range values {
		if !math.IsNaN(v) {
			sum += v
			cnt++
		}
		if j := i - window; j >= 0 && !math.IsNaN(values[j]) {
			sum -= values[j]
			cnt--
		}
		if cnt < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(cnt)
	}
	return out
}

// BackFill replaces each NaN with the next non NaN value after it. Trailing NaNs are kept.
func BackFill(values []float64) []float64 {
	out := make([]float64, len(values))
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			next = values[i]
		}
		out[i] = next
	}
	return out
}
