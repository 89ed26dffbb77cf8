package report

import (
	"fmt"

	"heartrisk/dataset"
	"heartrisk/ml"
)

// Bar is one horizontal bar.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is a horizontal bar chart; bars keep their input order.
type Chart struct {
	Title string `json:"title"`
	Bars  []Bar  `json:"bars"`
}

// Max returns the largest bar value, or 0 for an empty chart.
func (c Chart) Max() float64 {
	max := 0.0
	for _, b := range c.Bars {
		if b.Value > max {
			max = b.Value
		}
	}
	return max
}

// Width scales v against the largest bar to a length of at most full.
func (c Chart) Width(v, full float64) float64 {
	max := c.Max()
	if max <= 0 || v <= 0 {
		return 0
	}
	return v / max * full
}

// ImportanceChart pairs each feature column with the model's importance for
// it. columns are the dataset's non-outcome columns in dataset order; the
// model must have been trained on the same set of columns.
func ImportanceChart(model ml.Classifier, columns []string) (Chart, error) {
	names := model.FeatureNames()
	importances := model.FeatureImportances()
	if len(importances) != len(columns) {
		return Chart{}, fmt.Errorf("%w: %d importances for %d columns", ml.ErrSchemaMismatch, len(importances), len(columns))
	}
	byName := make(map[string]float64, len(names))
	for i, name := range names {
		byName[name] = importances[i]
	}
	chart := Chart{Title: "Feature Importance", Bars: make([]Bar, len(columns))}
	for i, column := range columns {
		value, ok := byName[column]
		if !ok {
			return Chart{}, fmt.Errorf("%w: model has no feature %q", ml.ErrSchemaMismatch, column)
		}
		chart.Bars[i] = Bar{Label: column, Value: value}
	}
	return chart, nil
}

// BalanceChart shows the outcome counts of the reference dataset.
func BalanceChart(balance dataset.Balance) Chart {
	return Chart{
		Title: "Death Event Distribution",
		Bars: []Bar{
			{Label: "0 (survived)", Value: float64(balance.Survived)},
			{Label: "1 (death event)", Value: float64(balance.Died)},
		},
	}
}
