package salesforecast

import (
	"errors"

	"github.com/aouyang1/go-salesforecast/feature"
	"github.com/aouyang1/go-salesforecast/pipeline"
)

const DefaultTestFraction = 0.2

var ErrInvalidTestFraction = errors.New("test fraction must be within (0, 1)")

// Options configures a training run
type Options struct {
	FeatureOptions  *feature.Options  `json:"feature_options"`
	PipelineOptions *pipeline.Options `json:"pipeline_options"`

	// TestFraction is the share of the most recent rows held out for evaluation. The count is
	// rounded up.
	TestFraction float64 `json:"test_fraction"`
}

// NewDefaultOptions holds out the last 20% of rows and uses the default features and pipeline
func NewDefaultOptions() *Options {
	return &Options{
		FeatureOptions:  feature.NewDefaultOptions(),
		PipelineOptions: pipeline.NewDefaultOptions(),
		TestFraction:    DefaultTestFraction,
	}
}

// Validate fills any missing options with defaults
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	var err error
	if o.FeatureOptions, err = o.FeatureOptions.Validate(); err != nil {
		return nil, err
	}
	if o.PipelineOptions, err = o.PipelineOptions.Validate(); err != nil {
		return nil, err
	}
	if o.TestFraction == 0 {
		o.TestFraction = DefaultTestFraction
	}
	if o.TestFraction < 0 || o.TestFraction >= 1 {
		return nil, ErrInvalidTestFraction
	}
	return o, nil
}
