package models

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEstimator = errors.New("unknown estimator type")
	ErrIncompleteState  = errors.New("estimator state is missing its fitted parameters")
)

// EstimatorType names a serializable estimator
type EstimatorType string

const (
	EstimatorRandomForest     EstimatorType = "random_forest"
	EstimatorGradientBoosting EstimatorType = "gradient_boosting"
	EstimatorElasticNet       EstimatorType = "elastic_net"
)

// EstimatorState is the exported form of a fitted estimator. Only the field matching Type
// is set.
type EstimatorState struct {
	Name             string                 `json:"name,omitempty"`
	Type             EstimatorType          `json:"type"`
	RandomForest     *RandomForestState     `json:"random_forest,omitempty"`
	GradientBoosting *GradientBoostingState `json:"gradient_boosting,omitempty"`
	ElasticNet       *ElasticNetState       `json:"elastic_net,omitempty"`
}

type RandomForestState struct {
	Options  RandomForestOptions `json:"options"`
	Features int                 `json:"features"`
	Trees    []*Tree             `json:"trees"`
}

type GradientBoostingState struct {
	Options   GradientBoostingOptions `json:"options"`
	Features  int                     `json:"features"`
	BaseScore float64                 `json:"base_score"`
	Trees     []*Tree                 `json:"trees"`
}

type ElasticNetState struct {
	Options   ElasticNetOptions `json:"options"`
	Intercept float64           `json:"intercept"`
	Coef      []float64         `json:"coef"`
}

// ToEstimator rebuilds a fitted estimator from its exported state
func (s EstimatorState) ToEstimator() (Estimator, error) {
	switch s.Type {
	case EstimatorRandomForest:
		if s.RandomForest == nil {
			return nil, fmt.Errorf("%s, %w", s.Type, ErrIncompleteState)
		}
		return NewRandomForestFromState(s.RandomForest)
	case EstimatorGradientBoosting:
		if s.GradientBoosting == nil {
			return nil, fmt.Errorf("%s, %w", s.Type, ErrIncompleteState)
		}
		return NewGradientBoostingFromState(s.GradientBoosting)
	case EstimatorElasticNet:
		if s.ElasticNet == nil {
			return nil, fmt.Errorf("%s, %w", s.Type, ErrIncompleteState)
		}
		return NewElasticNetFromState(s.ElasticNet)
	default:
		return nil, fmt.Errorf("%q, %w", s.Type, ErrUnknownEstimator)
	}
}

// NewRandomForestFromState restores a fitted forest
func NewRandomForestFromState(s *RandomForestState) (*RandomForestRegressor, error) {
	opt := s.Options
	if _, err := opt.Validate(); err != nil {
		return nil, err
	}
	if err := validateTrees(s.Trees, s.Features); err != nil {
		return nil, err
	}
	return &RandomForestRegressor{opt: &opt, features: s.Features, trees: s.Trees}, nil
}

// NewGradientBoostingFromState restores a fitted boosted ensemble
func NewGradientBoostingFromState(s *GradientBoostingState) (*GradientBoostingRegressor, error) {
	opt := s.Options
	if _, err := opt.Validate(); err != nil {
		return nil, err
	}
	if err := validateTrees(s.Trees, s.Features); err != nil {
		return nil, err
	}
	return &GradientBoostingRegressor{
		opt:       &opt,
		features:  s.Features,
		baseScore: s.BaseScore,
		trees:     s.Trees,
	}, nil
}

// NewElasticNetFromState restores fitted elastic net coefficients
func NewElasticNetFromState(s *ElasticNetState) (*ElasticNetRegression, error) {
	opt := s.Options
	if _, err := opt.Validate(); err != nil {
		return nil, err
	}
	if len(s.Coef) == 0 {
		return nil, fmt.Errorf("no coefficients, %w", ErrIncompleteState)
	}
	coef := make([]float64, len(s.Coef))
	copy(coef, s.Coef)
	return &ElasticNetRegression{opt: &opt, coef: coef, intercept: s.Intercept}, nil
}

// validateTrees makes sure every node reference stays within its tree so prediction can
// never index out of range or loop.
func validateTrees(trees []*Tree, features int) error {
	if len(trees) == 0 {
		return fmt.Errorf("no trees, %w", ErrIncompleteState)
	}
	if features <= 0 {
		return fmt.Errorf("no features, %w", ErrIncompleteState)
	}
	for t, tree := range trees {
		if tree == nil || len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty, %w", t, ErrIncompleteState)
		}
		for i, n := range tree.Nodes {
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= features {
				return fmt.Errorf("tree %d node %d splits on feature %d, %w", t, i, n.Feature, ErrIncompleteState)
			}
			// children are always appended after their parent
			if n.Left <= i || n.Right <= i || n.Left >= len(tree.Nodes) || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d has invalid children, %w", t, i, ErrIncompleteState)
			}
		}
	}
	return nil
}
