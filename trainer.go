// Package salesforecast trains the stacked sales forecasting pipeline end to end: feature
// engineering, a temporal train/test split, fitting, evaluation and persisting the artifact.
package salesforecast

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/aouyang1/go-salesforecast/dataset"
	"github.com/aouyang1/go-salesforecast/feature"
	mat_ "github.com/aouyang1/go-salesforecast/mat"
	"github.com/aouyang1/go-salesforecast/pipeline"
	"github.com/go-echarts/go-echarts/v2/components"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrMissingValues     = errors.New("design matrix has missing values")
	ErrInsufficientRows  = errors.New("not enough rows for a train and test split")
	ErrNotTrained        = errors.New("trainer has not been fit")
	ErrNoTrainingDataset = errors.New("no training dataset")
)

// Trainer fits the sales pipeline on a raw sales table
type Trainer struct {
	opt *Options

	features []string
	artifact *pipeline.Artifact
	test     *Results
	fitTime  time.Duration
}

// New creates a trainer using the provided options. If no options are provided a default is
// used.
func New(opt *Options) (*Trainer, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid training options, %w", err)
	}
	return &Trainer{opt: opt}, nil
}

// SplitIndex returns the first row of the test split when the last fraction of m rows,
// rounded up, is held out.
func SplitIndex(m int, fraction float64) (int, error) {
	numTest := int(math.Ceil(fraction * float64(m)))
	trainEnd := m - numTest
	if numTest < 1 || trainEnd < 1 {
		return 0, fmt.Errorf("%d rows with test fraction %.2f, %w", m, fraction, ErrInsufficientRows)
	}
	return trainEnd, nil
}

// Fit engineers the features of the raw frame, holds out the most recent rows, trains the
// pipeline on the rest and scores it.
func (t *Trainer) Fit(f *dataset.Frame) error {
	if f == nil {
		return ErrNoTrainingDataset
	}
	start := time.Now()
	target := t.opt.FeatureOptions.Target

	eng, err := feature.Engineer(f, t.opt.FeatureOptions)
	if err != nil {
		return fmt.Errorf("unable to engineer features, %w", err)
	}
	features := eng.Features(target)
	x, err := eng.Frame.Matrix(features)
	if err != nil {
		return fmt.Errorf("unable to build design matrix, %w", err)
	}
	if i, j, found := mat_.HasNaN(x); found {
		return fmt.Errorf("feature %s at row %d, %w", features[j], i, ErrMissingValues)
	}
	y, err := eng.Frame.Numeric(target)
	if err != nil {
		return err
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("target %s at row %d, %w", target, i, ErrMissingValues)
		}
	}

	m, _ := x.Dims()
	trainEnd, err := SplitIndex(m, t.opt.TestFraction)
	if err != nil {
		return err
	}
	xTrain := x.Slice(0, trainEnd, 0, len(features))
	xTest := x.Slice(trainEnd, m, 0, len(features))
	yTrain := mat.NewDense(trainEnd, 1, y[:trainEnd])
	yTest := y[trainEnd:]

	slog.Info("fitting sales pipeline",
		"rows", m,
		"train_rows", trainEnd,
		"test_rows", m-trainEnd,
		"features", len(features),
	)

	p, err := pipeline.New(t.opt.PipelineOptions)
	if err != nil {
		return fmt.Errorf("unable to initialize pipeline, %w", err)
	}
	if err := p.Fit(xTrain, yTrain); err != nil {
		return err
	}

	trainPred, err := p.Predict(xTrain)
	if err != nil {
		return fmt.Errorf("unable to predict training split, %w", err)
	}
	testPred, err := p.Predict(xTest)
	if err != nil {
		return fmt.Errorf("unable to predict test split, %w", err)
	}
	scores, err := pipeline.NewScores(trainPred, y[:trainEnd], testPred, yTest)
	if err != nil {
		return err
	}

	artifact, err := pipeline.NewArtifact(p, target, features, eng.Encoders, scores)
	if err != nil {
		return err
	}
	artifact.Aliases = feature.Aliases(features)

	t.features = features
	t.artifact = artifact
	t.test = &Results{
		Labels:    rowLabels(eng.Frame, trainEnd, m),
		Actual:    yTest,
		Predicted: testPred,
	}
	t.fitTime = time.Since(start)

	slog.Info("fit sales pipeline",
		"duration", t.fitTime,
		"r2_train", scores.R2Train,
		"r2_test", scores.R2Test,
		"mae", scores.MAE,
		"rmse", scores.RMSE,
	)
	return nil
}

// Features returns the ordered feature columns the pipeline was fit on
func (t *Trainer) Features() []string {
	return t.features
}

// Artifact returns the fitted artifact
func (t *Trainer) Artifact() (*pipeline.Artifact, error) {
	if t.artifact == nil {
		return nil, ErrNotTrained
	}
	return t.artifact, nil
}

// Scores returns the scores of the last fit
func (t *Trainer) Scores() (*pipeline.Scores, error) {
	if t.artifact == nil {
		return nil, ErrNotTrained
	}
	return t.artifact.Scores, nil
}

// TestResults returns the predictions on the held out rows
func (t *Trainer) TestResults() (*Results, error) {
	if t.test == nil {
		return nil, ErrNotTrained
	}
	return t.test, nil
}

// Save writes the fitted artifact to path, replacing any previous artifact
func (t *Trainer) Save(path string) error {
	if t.artifact == nil {
		return ErrNotTrained
	}
	if err := t.artifact.Save(path); err != nil {
		return err
	}
	slog.Info("saved sales pipeline", "path", path, "version", t.artifact.Version)
	return nil
}

// TablePrint writes a summary of the fit
func (t *Trainer) TablePrint(w io.Writer, prefix, indent string) error {
	if t.artifact == nil {
		return ErrNotTrained
	}
	if _, err := fmt.Fprintf(w, "%sSales Pipeline:\n", prefix); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sTarget: %s\n", prefix, indent, t.artifact.Target); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sFeatures: %v\n", prefix, indent, t.features); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sFit Time: %s\n", prefix, indent, t.fitTime.Round(time.Millisecond)); err != nil {
		return err
	}
	if t.artifact.Scores == nil {
		return nil
	}
	return t.artifact.Scores.TablePrint(w, prefix, indent, 1)
}

// PlotFit uses the Apache Echarts library to generate an html file comparing the actual and
// predicted sales on the held out rows.
func (t *Trainer) PlotFit(path string) error {
	res, err := t.TestResults()
	if err != nil {
		return err
	}
	residual := make([]float64, len(res.Actual))
	for i := range residual {
		residual[i] = res.Actual[i] - res.Predicted[i]
	}

	page := components.NewPage()
	page.AddCharts(
		LineSeries(
			"Test Fit",
			[]string{"Actual", "Predicted"},
			res.Labels,
			[][]float64{res.Actual, res.Predicted},
		),
		LineSeries(
			"Test Residual",
			[]string{"Residual"},
			res.Labels,
			[][]float64{residual},
		),
	)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return page.Render(file)
}

// Train loads the sales table at dataPath, fits a trainer and saves the artifact to
// modelPath. Nothing is written if any step fails.
func Train(dataPath, modelPath string, opt *Options) (*Trainer, error) {
	f, err := dataset.Load(dataPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load training data, %w", err)
	}
	t, err := New(opt)
	if err != nil {
		return nil, err
	}
	if err := t.Fit(f); err != nil {
		return nil, err
	}
	if err := t.Save(modelPath); err != nil {
		return nil, err
	}
	return t, nil
}

// rowLabels names rows by their date when the frame carries decomposed date columns and by
// row number otherwise.
func rowLabels(f *dataset.Frame, start, end int) []string {
	labels := make([]string, 0, end-start)
	year, errY := f.Numeric(feature.ColYear)
	month, errM := f.Numeric(feature.ColMonth)
	day, errD := f.Numeric(feature.ColDay)
	hasDate := errY == nil && errM == nil && errD == nil
	for i := start; i < end; i++ {
		if hasDate {
			labels = append(labels, fmt.Sprintf("%04d-%02d-%02d", int(year[i]), int(month[i]), int(day[i])))
			continue
		}
		labels = append(labels, fmt.Sprintf("%d", i))
	}
	return labels
}
