// Package app builds the run context: everything loaded once at start and
// shared read-only by every request until it is replaced or closed.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"heartrisk/config"
	"heartrisk/dataset"
	"heartrisk/db"
	"heartrisk/ml"
	"heartrisk/patient"
	"heartrisk/report"
)

// Context is one loaded model plus, optionally, the reference dataset.
type Context struct {
	Config    config.Config
	Model     ml.Classifier
	Collector *patient.Collector
	Presenter *report.Presenter
	// Dataset is nil when no reference CSV is configured.
	Dataset *dataset.Dataset

	store *db.Store
}

// Load builds a context from cfg. A missing or corrupt artifact, or a model
// whose features do not match the record layout, fails the whole load.
func Load(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Context, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	collector, err := patient.NewCollector(patient.Options{CPKMin: cfg.Form.CPKMin})
	if err != nil {
		return nil, err
	}

	model, err := ml.LoadModel(cfg.Model.Type, cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	if err := ml.CheckSchema(model, patient.Columns()); err != nil {
		return nil, fmt.Errorf("model %s: %w", cfg.Model.Path, err)
	}

	presenter, err := report.NewPresenter(model, collector.Fields(), cfg.Cache.Size, logger)
	if err != nil {
		return nil, err
	}

	c := &Context{
		Config:    cfg,
		Model:     model,
		Collector: collector,
		Presenter: presenter,
	}

	if cfg.Dataset.Path != "" {
		store, err := db.Open(cfg.Dataset.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open dataset store: %w", err)
		}
		ds, err := dataset.Load(ctx, cfg.Dataset.Path, store)
		if err != nil {
			store.Close()
			return nil, err
		}
		if _, err := report.ImportanceChart(model, ds.FeatureColumns()); err != nil {
			store.Close()
			return nil, fmt.Errorf("dataset %s: %w", cfg.Dataset.Path, err)
		}
		c.Dataset = ds
		c.store = store
	}

	logger.Info("run context loaded",
		zap.String("model_path", cfg.Model.Path),
		zap.String("model_type", model.Type()),
		zap.String("dataset_path", cfg.Dataset.Path),
		zap.Int("dataset_rows", c.DatasetRows()),
	)
	return c, nil
}

func (c *Context) DatasetRows() int {
	if c.Dataset == nil {
		return 0
	}
	return c.Dataset.Len()
}

// Close releases the dataset store.
func (c *Context) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
