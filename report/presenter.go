// Package report turns a patient record into a displayed prediction and
// builds the dataset charts shown beside it.
package report

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"heartrisk/ml"
	"heartrisk/patient"
)

const (
	SeveritySuccess = "success"
	SeverityError   = "error"
)

// Verdict is the label-dependent message shown to the user.
type Verdict struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Prediction is the outcome of one inference.
type Prediction struct {
	Record          patient.Record `json:"record"`
	Label           int            `json:"label"`
	Probability     float64        `json:"probability"`
	Percent         string         `json:"percent"`
	Verdict         Verdict        `json:"verdict"`
	ProbabilityText string         `json:"probability_text"`
}

// VerdictFor maps 1 to the death-event message and anything else to survival.
func VerdictFor(label int) Verdict {
	if label == 1 {
		return Verdict{Message: "🔴 Death Event Likely", Severity: SeverityError}
	}
	return Verdict{Message: "🟢 Survival Likely", Severity: SeveritySuccess}
}

// Presenter runs a classifier over records. Results are memoised per record;
// the classifier is deterministic so a cached result is always current.
type Presenter struct {
	model   ml.Classifier
	fields  []patient.Field
	cache   *lru.Cache[patient.Record, Prediction]
	printer *message.Printer
	logger  *zap.Logger
}

// NewPresenter checks every record against fields before it reaches the
// model. Nil fields means the default form fields.
func NewPresenter(model ml.Classifier, fields []patient.Field, cacheSize int, logger *zap.Logger) (*Presenter, error) {
	if model == nil {
		return nil, fmt.Errorf("presenter needs a model")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if fields == nil {
		fields = patient.Fields(patient.DefaultOptions())
	}
	p := &Presenter{
		model:   model,
		fields:  fields,
		printer: message.NewPrinter(language.English),
		logger:  logger,
	}
	if cacheSize > 0 {
		cache, err := lru.New[patient.Record, Prediction](cacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

func (p *Presenter) Model() ml.Classifier {
	return p.model
}

// Predict returns the label, positive-class probability and display strings
// for record.
func (p *Presenter) Predict(ctx context.Context, record patient.Record) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if err := record.Validate(p.fields); err != nil {
		return Prediction{}, err
	}
	if p.cache != nil {
		if cached, ok := p.cache.Get(record); ok {
			return cached, nil
		}
	}

	features := record.Vector()
	label, err := p.model.PredictLabel(features)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict label: %w", err)
	}
	probability, err := ml.PositiveProbability(p.model, features)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict probability: %w", err)
	}
	if probability < 0 || probability > 1 {
		return Prediction{}, fmt.Errorf("%w: probability %v outside [0, 1]", ml.ErrCorruptModel, probability)
	}

	percent := p.FormatPercent(probability)
	prediction := Prediction{
		Record:          record,
		Label:           label,
		Probability:     probability,
		Percent:         percent,
		Verdict:         VerdictFor(label),
		ProbabilityText: "Probability of Death Event: " + percent,
	}
	if p.cache != nil {
		p.cache.Add(record, prediction)
	}
	p.logger.Debug("prediction",
		zap.Int("label", label),
		zap.Float64("probability", probability),
	)
	return prediction, nil
}

// FormatPercent renders a probability as a percentage with two decimals.
func (p *Presenter) FormatPercent(probability float64) string {
	return p.printer.Sprintf("%.2f%%", probability*100)
}

// FormatValue renders a record or dataset value for display, grouping
// thousands and trimming integral values.
func (p *Presenter) FormatValue(v float64) string {
	if v == float64(int64(v)) {
		return p.printer.Sprintf("%d", int64(v))
	}
	return p.printer.Sprintf("%.2f", v)
}

// ShouldPredict applies the trigger policy: "always" predicts on every
// render, "button" only once the user asked for it.
func ShouldPredict(trigger string, pressed bool) bool {
	if trigger == "button" {
		return pressed
	}
	return true
}
