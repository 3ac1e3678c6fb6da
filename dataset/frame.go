// Package dataset holds the tabular sales data read from disk before it is turned into
// a design matrix.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoColumns          = errors.New("frame has no columns")
	ErrDuplicateColumn    = errors.New("duplicate column name")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrColumnLenMismatch  = errors.New("column length does not match frame rows")
	ErrNotNumeric         = errors.New("column is not numeric")
	ErrRowRangeOutOfBound = errors.New("row range out of bounds")
)

// Kind describes how a column's values are stored
type Kind int

const (
	KindNumeric Kind = iota
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Column is a single named column. Numeric columns store Values with NaN marking a
// missing cell, text columns store the raw Text.
type Column struct {
	Name   string
	Kind   Kind
	Values []float64
	Text   []string
}

// Len returns the number of rows in the column
func (c *Column) Len() int {
	if c.Kind == KindText {
		return len(c.Text)
	}
	return len(c.Values)
}

func (c *Column) copy() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Values != nil {
		out.Values = make([]float64, len(c.Values))
		copy(out.Values, c.Values)
	}
	if c.Text != nil {
		out.Text = make([]string, len(c.Text))
		copy(out.Text, c.Text)
	}
	return out
}

// Frame is an ordered set of equally sized columns.
type Frame struct {
	names []string
	cols  map[string]*Column
	rows  int
}

// New creates an empty frame with the given number of rows.
func New(rows int) *Frame {
	return &Frame{
		cols: make(map[string]*Column),
		rows: rows,
	}
}

// FromRecords builds a frame from a header and string rows. A column becomes numeric when
// every non-empty cell parses as a number, otherwise it is kept as text.
func FromRecords(header []string, records [][]string) (*Frame, error) {
	if len(header) == 0 {
		return nil, ErrNoColumns
	}
	f := New(len(records))
	for j, h := range header {
		name := strings.TrimSpace(h)
		cells := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				cells[i] = strings.TrimSpace(rec[j])
			}
		}
		if err := f.add(inferColumn(name, cells)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func inferColumn(name string, cells []string) *Column {
	values := make([]float64, len(cells))
	for i, cell := range cells {
		if cell == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := cast.ToFloat64E(cell)
		if err != nil {
			return &Column{Name: name, Kind: KindText, Text: cells}
		}
		values[i] = v
	}
	return &Column{Name: name, Kind: KindNumeric, Values: values}
}

func (f *Frame) add(c *Column) error {
	if _, exists := f.cols[c.Name]; exists {
		return fmt.Errorf("%s, %w", c.Name, ErrDuplicateColumn)
	}
	if c.Len() != f.rows {
		return fmt.Errorf("%s has %d rows, expected %d, %w", c.Name, c.Len(), f.rows, ErrColumnLenMismatch)
	}
	f.names = append(f.names, c.Name)
	f.cols[c.Name] = c
	return nil
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return f.rows
}

// Names returns the column names in order
func (f *Frame) Names() []string {
	names := make([]string, len(f.names))
	copy(names, f.names)
	return names
}

// Has reports whether the named column exists
func (f *Frame) Has(name string) bool {
	_, exists := f.cols[name]
	return exists
}

// Column returns the named column
func (f *Frame) Column(name string) (*Column, error) {
	c, exists := f.cols[name]
	if !exists {
		return nil, fmt.Errorf("%s, %w", name, ErrUnknownColumn)
	}
	return c, nil
}

// Numeric returns the values of a numeric column
func (f *Frame) Numeric(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != KindNumeric {
		return nil, fmt.Errorf("%s, %w", name, ErrNotNumeric)
	}
	return c.Values, nil
}

// SetNumeric replaces the named column with numeric values, or appends it if it does not
// exist yet.
func (f *Frame) SetNumeric(name string, values []float64) error {
	if len(values) != f.rows {
		return fmt.Errorf("%s has %d rows, expected %d, %w", name, len(values), f.rows, ErrColumnLenMismatch)
	}
	if c, exists := f.cols[name]; exists {
		c.Kind = KindNumeric
		c.Values = values
		c.Text = nil
		return nil
	}
	return f.add(&Column{Name: name, Kind: KindNumeric, Values: values})
}

// SetText appends or replaces a text column
func (f *Frame) SetText(name string, text []string) error {
	if len(text) != f.rows {
		return fmt.Errorf("%s has %d rows, expected %d, %w", name, len(text), f.rows, ErrColumnLenMismatch)
	}
	if c, exists := f.cols[name]; exists {
		c.Kind = KindText
		c.Text = text
		c.Values = nil
		return nil
	}
	return f.add(&Column{Name: name, Kind: KindText, Text: text})
}

// Drop removes the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) {
	for _, name := range names {
		if _, exists := f.cols[name]; !exists {
			continue
		}
		delete(f.cols, name)
		for i, n := range f.names {
			if n == name {
				f.names = append(f.names[:i], f.names[i+1:]...)
				break
			}
		}
	}
}

// Copy returns a deep copy of the frame
func (f *Frame) Copy() *Frame {
	out := New(f.rows)
	out.names = f.Names()
	for name, c := range f.cols {
		out.cols[name] = c.copy()
	}
	return out
}

// SortBy stably reorders every column ascending on the given numeric keys, compared in
// order. NaN keys sort last.
func (f *Frame) SortBy(keys ...string) error {
	keyVals := make([][]float64, 0, len(keys))
	for _, k := range keys {
		vals, err := f.Numeric(k)
		if err != nil {
			return err
		}
		keyVals = append(keyVals, vals)
	}

	order := make([]int, f.rows)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		for _, vals := range keyVals {
			va, vb := vals[ia], vals[ib]
			switch {
			case math.IsNaN(va) && math.IsNaN(vb):
				continue
			case math.IsNaN(va):
				return false
			case math.IsNaN(vb):
				return true
			case va < vb:
				return true
			case va > vb:
				return false
			}
		}
		return false
	})
	f.reorder(order)
	return nil
}

func (f *Frame) reorder(order []int) {
	for _, c := range f.cols {
		switch c.Kind {
		case KindNumeric:
			vals := make([]float64, len(order))
			for i, idx := range order {
				vals[i] = c.Values[idx]
			}
			c.Values = vals
		case KindText:
			text := make([]string, len(order))
			for i, idx := range order {
				text[i] = c.Text[idx]
			}
			c.Text = text
		}
	}
}

// Slice returns a copy of the rows in [start, end)
func (f *Frame) Slice(start, end int) (*Frame, error) {
	if start < 0 || end > f.rows || start > end {
		return nil, fmt.Errorf("[%d, %d) of %d rows, %w", start, end, f.rows, ErrRowRangeOutOfBound)
	}
	out := New(end - start)
	for _, name := range f.names {
		c := f.cols[name]
		sub := &Column{Name: c.Name, Kind: c.Kind}
		switch c.Kind {
		case KindNumeric:
			sub.Values = make([]float64, end-start)
			copy(sub.Values, c.Values[start:end])
		case KindText:
			sub.Text = make([]string, end-start)
			copy(sub.Text, c.Text[start:end])
		}
		if err := out.add(sub); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Matrix returns the named numeric columns as an m x n design matrix in the given order.
func (f *Frame) Matrix(names []string) (*mat.Dense, error) {
	if len(names) == 0 {
		return nil, ErrNoColumns
	}
	if f.rows == 0 {
		return nil, mat.ErrZeroLength
	}
	x := mat.NewDense(f.rows, len(names), nil)
	for j, name := range names {
		vals, err := f.Numeric(name)
		if err != nil {
			return nil, err
		}
		x.SetCol(j, vals)
	}
	return x, nil
}
