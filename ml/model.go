package ml

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrSchemaMismatch   = errors.New("schema mismatch")
	ErrUnsupportedModel = errors.New("unsupported model type")
	ErrCorruptModel     = errors.New("corrupt model artifact")
)

// Classifier is a trained binary classifier over a fixed feature layout.
type Classifier interface {
	// PredictProba returns one probability per class, ordered like Classes.
	PredictProba(features []float64) ([]float64, error)
	PredictLabel(features []float64) (int, error)
	Classes() []int
	FeatureNames() []string
	FeatureImportances() []float64
	Type() string
}

// PositiveProbability returns the probability of class 1.
func PositiveProbability(model Classifier, features []float64) (float64, error) {
	proba, err := model.PredictProba(features)
	if err != nil {
		return 0, err
	}
	for i, class := range model.Classes() {
		if class == 1 {
			return proba[i], nil
		}
	}
	return 0, fmt.Errorf("%w: model has no positive class", ErrSchemaMismatch)
}

// CheckSchema verifies that the model was trained on exactly these columns.
func CheckSchema(model Classifier, columns []string) error {
	names := model.FeatureNames()
	if len(names) != len(columns) {
		return fmt.Errorf("%w: model expects %d features, record has %d", ErrSchemaMismatch, len(names), len(columns))
	}
	for i := range names {
		if names[i] != columns[i] {
			return fmt.Errorf("%w: feature %d is %q in model, %q in record", ErrSchemaMismatch, i, names[i], columns[i])
		}
	}
	return nil
}

// base carries the metadata every artifact has.
type base struct {
	kind        string
	classes     []int
	names       []string
	importances []float64
}

func (b *base) Type() string { return b.kind }

func (b *base) Classes() []int { return append([]int(nil), b.classes...) }

func (b *base) FeatureNames() []string { return append([]string(nil), b.names...) }

func (b *base) FeatureImportances() []float64 { return append([]float64(nil), b.importances...) }

func (b *base) checkFeatures(features []float64) error {
	if len(features) != len(b.names) {
		return fmt.Errorf("%w: got %d features, model expects %d", ErrSchemaMismatch, len(features), len(b.names))
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: feature %s is not finite", ErrSchemaMismatch, b.names[i])
		}
	}
	return nil
}

// labelFor picks the class with the highest probability. Classes are always
// [0 1], so a tie resolves to 0.
func (b *base) labelFor(proba []float64) int {
	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return b.classes[best]
}

func normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total <= 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	for i, v := range values {
		out[i] = v / total
	}
	return out
}
