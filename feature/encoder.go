package feature

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnseenLabel = errors.New("label was not seen during fit")

// LabelEncoder maps each distinct string to its index in the lexically sorted set of
// values seen during Fit.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// Fit learns the sorted distinct values
func (l *LabelEncoder) Fit(values []string) {
	seen := make(map[string]struct{})
	classes := make([]string, 0)
	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	l.Classes = classes
}

// Transform returns the integer code of each value
func (l *LabelEncoder) Transform(values []string) ([]float64, error) {
	idx := make(map[string]int, len(l.Classes))
	for i, c := range l.Classes {
		idx[c] = i
	}
	codes := make([]float64, len(values))
	for i, v := range values {
		code, exists := idx[v]
		if !exists {
			return nil, fmt.Errorf("%q at row %d, %w", v, i, ErrUnseenLabel)
		}
		codes[i] = float64(code)
	}
	return codes, nil
}

// FitTransform fits the encoder and returns the codes of values
func (l *LabelEncoder) FitTransform(values []string) ([]float64, error) {
	l.Fit(values)
	return l.Transform(values)
}
