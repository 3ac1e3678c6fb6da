package dataset

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"
)

const sampleCSV = `date,store,price,sales
2024-01-03,b,1.5,30
2024-01-01,a,2.0,10
2024-01-02,a,,20
`

func TestReadCSV(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(sampleCSV))
	require.Nil(t, err)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"date", "store", "price", "sales"}, f.Names())

	store, err := f.Column("store")
	require.Nil(t, err)
	assert.Equal(t, KindText, store.Kind)
	assert.Equal(t, []string{"b", "a", "a"}, store.Text)

	price, err := f.Numeric("price")
	require.Nil(t, err)
	assert.Equal(t, 1.5, price[0])
	assert.True(t, math.IsNaN(price[2]), "empty cell is NaN")

	_, err = f.Numeric("store")
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = f.Column("missing")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestReadCSVNoRows(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n"))
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestReadExcel(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]any{
		{"price", "sales"},
		{1.5, 10},
		{2.5, 20},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.Nil(t, err)
		require.Nil(t, wb.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.Nil(t, wb.Write(&buf))

	f, err := ReadExcel(&buf)
	require.Nil(t, err)
	sales, err := f.Numeric("sales")
	require.Nil(t, err)
	assert.Equal(t, []float64{10, 20}, sales)
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("sales.parquet")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFrameSortBy(t *testing.T) {
	f := New(4)
	require.Nil(t, f.SetNumeric("k1", []float64{2, 1, 2, 1}))
	require.Nil(t, f.SetNumeric("k2", []float64{1, 1, 0, 1}))
	require.Nil(t, f.SetText("id", []string{"a", "b", "c", "d"}))

	require.Nil(t, f.SortBy("k1", "k2"))

	id, err := f.Column("id")
	require.Nil(t, err)
	// ties keep their input order
	assert.Equal(t, []string{"b", "d", "c", "a"}, id.Text)

	assert.ErrorIs(t, f.SortBy("id"), ErrNotNumeric)
}

func TestFrameSetDropCopy(t *testing.T) {
	f := New(2)
	require.Nil(t, f.SetNumeric("a", []float64{1, 2}))
	require.Nil(t, f.SetNumeric("b", []float64{3, 4}))

	assert.ErrorIs(t, f.SetNumeric("c", []float64{1}), ErrColumnLenMismatch)

	cp := f.Copy()
	require.Nil(t, f.SetNumeric("a", []float64{9, 9}))
	f.Drop("b", "unknown")

	assert.Equal(t, []string{"a"}, f.Names())
	assert.Equal(t, []string{"a", "b"}, cp.Names())

	a, err := cp.Numeric("a")
	require.Nil(t, err)
	assert.Equal(t, []float64{1, 2}, a)
}

func TestFrameSliceMatrix(t *testing.T) {
	f := New(3)
	require.Nil(t, f.SetNumeric("a", []float64{1, 2, 3}))
	require.Nil(t, f.SetNumeric("b", []float64{4, 5, 6}))

	sub, err := f.Slice(1, 3)
	require.Nil(t, err)
	assert.Equal(t, 2, sub.Len())

	x, err := sub.Matrix([]string{"b", "a"})
	require.Nil(t, err)
	assert.Equal(t, []float64{5, 2}, mat.Row(nil, 0, x))
	assert.Equal(t, []float64{6, 3}, mat.Row(nil, 1, x))

	_, err = f.Slice(2, 4)
	assert.ErrorIs(t, err, ErrRowRangeOutOfBound)
}
