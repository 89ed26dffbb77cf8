package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	TypeDecisionTree       = "decision_tree"
	TypeRandomForest       = "random_forest"
	TypeLogisticRegression = "logistic_regression"
)

// Artifact is the on-disk form of a trained classifier.
type Artifact struct {
	ModelType          string    `json:"model_type"`
	Version            string    `json:"version,omitempty"`
	FeatureNames       []string  `json:"feature_names"`
	Classes            []int     `json:"classes"`
	FeatureImportances []float64 `json:"feature_importances,omitempty"`

	// Tree models.
	Trees []TreeArtifact `json:"trees,omitempty"`

	// Linear models.
	Coefficients []float64 `json:"coefficients,omitempty"`
	Intercept    float64   `json:"intercept,omitempty"`
}

type TreeArtifact struct {
	Nodes []TreeNode `json:"nodes"`
}

// LoadModel reads an artifact from path. modelType may be empty to accept
// whatever type the artifact declares.
func LoadModel(modelType, path string) (Classifier, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("load model %s: %w: %v", path, ErrCorruptModel, err)
	}
	if modelType != "" && modelType != artifact.ModelType {
		return nil, fmt.Errorf("load model %s: expected %s, artifact is %s", path, modelType, artifact.ModelType)
	}
	model, err := FromArtifact(artifact)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return model, nil
}

func FromArtifact(artifact Artifact) (Classifier, error) {
	b, err := newBase(artifact)
	if err != nil {
		return nil, err
	}
	var model Classifier
	switch artifact.ModelType {
	case TypeDecisionTree:
		if len(artifact.Trees) != 1 {
			return nil, fmt.Errorf("%w: decision tree needs exactly one tree, got %d", ErrCorruptModel, len(artifact.Trees))
		}
		model, err = newDecisionTree(b, artifact.Trees[0].Nodes)
	case TypeRandomForest:
		model, err = newRandomForest(b, artifact.Trees)
	case TypeLogisticRegression:
		model, err = newLogisticRegression(b, artifact.Coefficients, artifact.Intercept)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, artifact.ModelType)
	}
	if err != nil {
		return nil, err
	}
	return model, nil
}

// SaveArtifact writes an artifact as JSON.
func SaveArtifact(path string, artifact Artifact) error {
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func newBase(artifact Artifact) (*base, error) {
	if len(artifact.FeatureNames) == 0 {
		return nil, fmt.Errorf("%w: no feature names", ErrCorruptModel)
	}
	// Probabilities are indexed by class, and ties go to the first one.
	if len(artifact.Classes) != 2 || artifact.Classes[0] != 0 || artifact.Classes[1] != 1 {
		return nil, fmt.Errorf("%w: classes must be [0 1], got %v", ErrCorruptModel, artifact.Classes)
	}
	if len(artifact.FeatureImportances) != 0 && len(artifact.FeatureImportances) != len(artifact.FeatureNames) {
		return nil, fmt.Errorf("%w: %d importances for %d features", ErrCorruptModel, len(artifact.FeatureImportances), len(artifact.FeatureNames))
	}
	return &base{
		kind:        artifact.ModelType,
		classes:     append([]int(nil), artifact.Classes...),
		names:       append([]string(nil), artifact.FeatureNames...),
		importances: append([]float64(nil), artifact.FeatureImportances...),
	}, nil
}
