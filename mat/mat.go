// Package mat contains helpers around gonum dense matrices used when slicing
// design matrices for training and cross validation.
package mat

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrColMismatch    = errors.New("column size mismatch")
	ErrRowOutOfBounds = errors.New("row is out of bounds")
)

// FromRows copies equally sized rows into a new matrix
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, mat.ErrZeroLength
	}
	n := len(rows[0])
	out := mat.NewDense(len(rows), n, nil)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		out.SetRow(i, row)
	}
	return out, nil
}

// SelectRows copies the rows at the given indices, in order, into a new matrix.
func SelectRows(x mat.Matrix, idx []int) (*mat.Dense, error) {
	m, n := x.Dims()
	data := make([]float64, 0, len(idx)*n)
	for _, i := range idx {
		if i < 0 || i >= m {
			return nil, fmt.Errorf("row %d of %d, %w", i, m, ErrRowOutOfBounds)
		}
		for j := 0; j < n; j++ {
			data = append(data, x.At(i, j))
		}
	}
	return mat.NewDense(len(idx), n, data), nil
}

// SelectValues returns the values of y at the given indices.
func SelectValues(y []float64, idx []int) []float64 {
	out := make([]float64, 0, len(idx))
	for _, i := range idx {
		out = append(out, y[i])
	}
	return out
}

// ColumnsFrom stacks equally sized slices as the columns of a new matrix.
func ColumnsFrom(cols [][]float64) (*mat.Dense, error) {
	if len(cols) == 0 {
		return nil, mat.ErrZeroLength
	}
	m := len(cols[0])
	out := mat.NewDense(m, len(cols), nil)
	for j, col := range cols {
		if len(col) != m {
			return nil, fmt.Errorf("at column %d, %w", j, ErrColMismatch)
		}
		out.SetCol(j, col)
	}
	return out, nil
}

// HasNaN reports the first row and column holding a NaN or infinite value.
func HasNaN(x mat.Matrix) (int, int, bool) {
	m, n := x.Dims()
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := x.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}
