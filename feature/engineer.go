// Package feature turns a raw sales table into a model ready design matrix by decomposing
// dates, label encoding categorical columns and appending lag and rolling mean features of
// the target.
package feature

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-salesforecast/dataset"
	"github.com/aouyang1/go-salesforecast/event"
	"github.com/spf13/cast"
)

const (
	DefaultTarget     = "sales"
	DefaultDateColumn = "date"

	ColYear      = "year"
	ColMonth     = "month"
	ColDay       = "day"
	ColDayOfWeek = "dayofweek"
	ColHoliday   = "is_holiday"
)

var (
	ErrMissingTarget    = errors.New("target column not found")
	ErrNonNumericTarget = errors.New("target column is not numeric")
	ErrInvalidDate      = errors.New("unable to parse date")
	ErrInvalidWindow    = errors.New("lag and rolling windows must be positive")
	ErrNoTargetName     = errors.New("no target column name")
)

// Options configures which columns are read and which target derived features are
// generated.
type Options struct {
	Target         string `json:"target"`
	DateColumn     string `json:"date_column"`
	Lags           []int  `json:"lags"`
	RollingWindows []int  `json:"rolling_windows"`
	// Holidays adds an is_holiday flag for every row using the US federal calendar.
	Holidays bool `json:"holidays"`
}

// NewDefaultOptions returns lag_1, lag_7 and rolling_7 over the sales column
func NewDefaultOptions() *Options {
	return &Options{
		Target:         DefaultTarget,
		DateColumn:     DefaultDateColumn,
		Lags:           []int{1, 7},
		RollingWindows: []int{7},
	}
}

// Validate fills a nil set of options with defaults and checks the windows
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.Target == "" {
		return nil, ErrNoTargetName
	}
	for _, k := range o.Lags {
		if k <= 0 {
			return nil, fmt.Errorf("lag %d, %w", k, ErrInvalidWindow)
		}
	}
	for _, w := range o.RollingWindows {
		if w <= 0 {
			return nil, fmt.Errorf("rolling window %d, %w", w, ErrInvalidWindow)
		}
	}
	return o, nil
}

// LagName is the column name of the target shifted k rows
func LagName(k int) string {
	return fmt.Sprintf("lag_%d", k)
}

// RollingName is the column name of the trailing mean over w rows
func RollingName(w int) string {
	return fmt.Sprintf("rolling_%d", w)
}

// servingNames are the single row request fields that carry an engineered column under a
// different name
var servingNames = map[string]string{
	ColDayOfWeek:    "dow",
	LagName(1):      "sales_lag_1",
	LagName(7):      "sales_lag_7",
	LagName(14):     "sales_lag_14",
	LagName(30):     "sales_lag_30",
	RollingName(7):  "sales_roll_mean_7",
	RollingName(30): "sales_roll_mean_30",
}

// Aliases maps every feature that a prediction request supplies under another name to that
// name. Features absent from the result are looked up by their own name.
func Aliases(features []string) map[string]string {
	aliases := make(map[string]string)
	for _, name := range features {
		if alias, exists := servingNames[name]; exists {
			aliases[name] = alias
		}
	}
	return aliases
}

// Result is the engineered frame along with the label encoders fit per categorical column
type Result struct {
	Frame    *dataset.Frame
	Encoders map[string]*LabelEncoder
}

// Features returns every column name except the target in frame order
func (r *Result) Features(target string) []string {
	names := r.Frame.Names()
	features := make([]string, 0, len(names))
	for _, name := range names {
		if name == target {
			continue
		}
		features = append(features, name)
	}
	return features
}

// Engineer fits new label encoders and builds the feature frame. The input frame is not
// modified.
func Engineer(f *dataset.Frame, opt *Options) (*Result, error) {
	return Transform(f, opt, nil)
}

// Transform builds the feature frame reusing the given encoders for the columns they were fit
// on. Categorical columns without an encoder get a newly fit one.
func Transform(f *dataset.Frame, opt *Options, encoders map[string]*LabelEncoder) (*Result, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	target, err := f.Column(opt.Target)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", opt.Target, ErrMissingTarget)
	}
	if target.Kind != dataset.KindNumeric {
		return nil, fmt.Errorf("%s, %w", opt.Target, ErrNonNumericTarget)
	}

	out := f.Copy()
	if out.Has(opt.DateColumn) {
		if err := decomposeDate(out, opt); err != nil {
			return nil, err
		}
	}

	fitted := make(map[string]*LabelEncoder)
	for _, name := range out.Names() {
		if name == opt.Target {
			continue
		}
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Kind != dataset.KindText {
			continue
		}
		enc, exists := encoders[name]
		if !exists {
			enc = new(LabelEncoder)
			enc.Fit(col.Text)
		}
		codes, err := enc.Transform(col.Text)
		if err != nil {
			return nil, fmt.Errorf("unable to encode column %s, %w", name, err)
		}
		if err := out.SetNumeric(name, codes); err != nil {
			return nil, err
		}
		fitted[name] = enc
	}

	if out.Has(ColYear) && out.Has(ColMonth) && out.Has(ColDay) {
		if err := out.SortBy(ColYear, ColMonth, ColDay); err != nil {
			return nil, fmt.Errorf("unable to sort by date, %w", err)
		}
	}

	sales, err := out.Numeric(opt.Target)
	if err != nil {
		return nil, err
	}
	for _, k := range opt.Lags {
		if err := out.SetNumeric(LagName(k), BackFill(Shift(sales, k))); err != nil {
			return nil, err
		}
	}
	for _, w := range opt.RollingWindows {
		if err := out.SetNumeric(RollingName(w), BackFill(RollingMean(sales, w, 1))); err != nil {
			return nil, err
		}
	}

	return &Result{Frame: out, Encoders: fitted}, nil
}

func decomposeDate(f *dataset.Frame, opt *Options) error {
	col, err := f.Column(opt.DateColumn)
	if err != nil {
		return err
	}
	if col.Kind != dataset.KindText {
		return fmt.Errorf("column %s is numeric, %w", opt.DateColumn, ErrInvalidDate)
	}

	n := f.Len()
	year := make([]float64, n)
	month := make([]float64, n)
	day := make([]float64, n)
	dow := make([]float64, n)

	var holiday []float64
	var calendar *event.Calendar
	if opt.Holidays {
		holiday = make([]float64, n)
		calendar = event.NewUSCalendar()
	}

	for i, raw := range col.Text {
		t, err := cast.ToTimeInDefaultLocationE(raw, time.UTC)
		if err != nil {
			return fmt.Errorf("%q at row %d, %w", raw, i, ErrInvalidDate)
		}
		year[i] = float64(t.Year())
		month[i] = float64(t.Month())
		day[i] = float64(t.Day())
		// monday is 0
		dow[i] = float64((int(t.Weekday()) + 6) % 7)
		if calendar != nil && calendar.IsHoliday(t) {
			holiday[i] = 1.0
		}
	}

	for _, c := range []struct {
		name   string
		values []float64
	}{
		{ColYear, year},
		{ColMonth, month},
		{ColDay, day},
		{ColDayOfWeek, dow},
		{ColHoliday, holiday},
	} {
		if c.values == nil {
			continue
		}
		if err := f.SetNumeric(c.name, c.values); err != nil {
			return err
		}
	}
	f.Drop(opt.DateColumn)
	return nil
}
