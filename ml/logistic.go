package ml

import (
	"fmt"
	"math"
)

// LogisticRegression scores z = w·x + b; P(class 1) = 1/(1+e^-z).
type LogisticRegression struct {
	*base
	coefficients []float64
	intercept    float64
}

func newLogisticRegression(b *base, coefficients []float64, intercept float64) (*LogisticRegression, error) {
	if len(coefficients) != len(b.names) {
		return nil, fmt.Errorf("%w: %d coefficients for %d features", ErrCorruptModel, len(coefficients), len(b.names))
	}
	if len(b.importances) == 0 {
		abs := make([]float64, len(coefficients))
		for i, c := range coefficients {
			abs[i] = math.Abs(c)
		}
		b.importances = normalizeImportances(abs)
	}
	return &LogisticRegression{
		base:         b,
		coefficients: append([]float64(nil), coefficients...),
		intercept:    intercept,
	}, nil
}

func (lr *LogisticRegression) PredictProba(features []float64) ([]float64, error) {
	if err := lr.checkFeatures(features); err != nil {
		return nil, err
	}
	z := lr.intercept
	for i, x := range features {
		z += lr.coefficients[i] * x
	}
	positive := 1 / (1 + math.Exp(-z))
	proba := make([]float64, 2)
	for i, class := range lr.classes {
		if class == 1 {
			proba[i] = positive
		} else {
			proba[i] = 1 - positive
		}
	}
	return proba, nil
}

func (lr *LogisticRegression) PredictLabel(features []float64) (int, error) {
	proba, err := lr.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return lr.labelFor(proba), nil
}
