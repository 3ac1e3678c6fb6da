package pipeline

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aouyang1/go-salesforecast/feature"
	mat_ "github.com/aouyang1/go-salesforecast/mat"
	"github.com/aouyang1/go-salesforecast/models"
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"
)

// Version is bumped whenever the artifact layout changes in a way older readers cannot load
const Version = 1

var (
	ErrArtifactNotFound    = errors.New("artifact not found")
	ErrCorruptArtifact     = errors.New("corrupt artifact")
	ErrIncompatibleVersion = errors.New("incompatible artifact version")
	ErrNoFeatures          = errors.New("artifact has no features")
	ErrNonFinitePrediction = errors.New("prediction is not finite")
)

// Artifact is the single persisted output of training. It carries everything needed to
// rebuild the feature columns and predict.
type Artifact struct {
	Version   int                              `json:"version"`
	CreatedAt time.Time                        `json:"created_at"`
	Target    string                           `json:"target"`
	Features  []string                         `json:"features"`
	Aliases   map[string]string                `json:"aliases,omitempty"`
	Encoders  map[string]*feature.LabelEncoder `json:"encoders,omitempty"`
	Pipeline  *State                           `json:"pipeline"`
	Scores    *Scores                          `json:"scores,omitempty"`

	fitted *Pipeline
}

// NewArtifact exports a fitted pipeline trained on the given feature columns
func NewArtifact(p *Pipeline, target string, features []string, encoders map[string]*feature.LabelEncoder, scores *Scores) (*Artifact, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	state, err := p.State()
	if err != nil {
		return nil, fmt.Errorf("unable to export pipeline, %w", err)
	}
	if len(state.Scaler.Mean) != len(features) {
		return nil, fmt.Errorf("pipeline fit on %d features, but got %d names, %w", len(state.Scaler.Mean), len(features), models.ErrFeatureLenMismatch)
	}
	return &Artifact{
		Version:   Version,
		CreatedAt: time.Now().UTC(),
		Target:    target,
		Features:  features,
		Encoders:  encoders,
		Pipeline:  state,
		Scores:    scores,
		fitted:    p,
	}, nil
}

// Save writes the artifact to path. The file is written to a temporary file in the same
// directory first and renamed so a failed save never leaves a partial artifact behind.
func (a *Artifact) Save(path string) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("unable to encode artifact, %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary artifact, %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("unable to write artifact, %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("unable to sync artifact, %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("unable to close artifact, %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("unable to move artifact into place, %w", err)
	}
	return nil
}

// Load reads and validates an artifact and rebuilds its fitted pipeline
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s, %w", path, ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("unable to open artifact, %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes an artifact from r
func Read(r io.Reader) (*Artifact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read artifact, %w", err)
	}

	// version is checked before the rest of the document so a newer layout reports the
	// version mismatch instead of a decoding error
	var header struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w, %w", ErrCorruptArtifact, err)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("got version %d, but expected %d, %w", header.Version, Version, ErrIncompatibleVersion)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w, %w", ErrCorruptArtifact, err)
	}
	if len(a.Features) == 0 {
		return nil, fmt.Errorf("%w, %w", ErrCorruptArtifact, ErrNoFeatures)
	}
	p, err := NewFromState(a.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrCorruptArtifact, err)
	}
	if len(p.Scaler.Mean) != len(a.Features) {
		return nil, fmt.Errorf("scaler has %d features and artifact lists %d, %w", len(p.Scaler.Mean), len(a.Features), ErrCorruptArtifact)
	}
	a.fitted = p
	return &a, nil
}

// Predict runs the fitted pipeline on a design matrix whose columns follow Features
func (a *Artifact) Predict(x mat.Matrix) ([]float64, error) {
	if a.fitted == nil {
		return nil, ErrNoStack
	}
	return a.fitted.Predict(x)
}

// PredictRows predicts every row, each holding one value per feature in Features order
func (a *Artifact) PredictRows(rows [][]float64) ([]float64, error) {
	x, err := mat_.FromRows(rows)
	if err != nil {
		return nil, err
	}
	res, err := a.Predict(x)
	if err != nil {
		return nil, err
	}
	for i, v := range res {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("row %d, %w", i, ErrNonFinitePrediction)
		}
	}
	return res, nil
}

// lookup finds the value of a feature by its own name first and then by its alias
func (a *Artifact) lookup(fields map[string]float64, name string) (float64, bool) {
	if v, exists := fields[name]; exists {
		return v, true
	}
	if alias, exists := a.Aliases[name]; exists {
		v, exists := fields[alias]
		return v, exists
	}
	return 0, false
}

// PredictFields builds a single row by looking up every artifact feature by name or alias
// and returns its prediction. Features the fields do not carry are 0, the same default an
// omitted optional request field takes. Fields not used by the artifact are ignored.
func (a *Artifact) PredictFields(fields map[string]float64) (float64, error) {
	row := make([]float64, len(a.Features))
	for j, name := range a.Features {
		row[j], _ = a.lookup(fields, name)
	}
	res, err := a.PredictRows([][]float64{row})
	if err != nil {
		return 0, err
	}
	return res[0], nil
}

// Unresolved lists, sorted, the features that no field name reaches by name or alias
func (a *Artifact) Unresolved(names []string) []string {
	fields := make(map[string]float64, len(names))
	for _, name := range names {
		fields[name] = 0
	}
	var missing []string
	for _, name := range a.Features {
		if _, found := a.lookup(fields, name); !found {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
