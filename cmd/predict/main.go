package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"heartrisk/app"
	"heartrisk/config"
	"heartrisk/logging"
	"heartrisk/patient"
	"heartrisk/report"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	modelPath := flag.String("model_path", "", "model artifact, overrides the config")
	datasetPath := flag.String("dataset", "", "reference dataset CSV, overrides the config")
	charts := flag.Bool("charts", false, "print the class balance and feature importance charts")
	width := flag.Int("width", 40, "chart bar width in columns")

	// One flag per form field; unset fields keep their defaults.
	inputs := make(map[string]*string)
	for _, field := range patient.Fields(patient.DefaultOptions()) {
		inputs[field.Name] = flag.String(field.Name, "", fmt.Sprintf("%s [%g, %g]", field.Label, field.Min, field.Max))
	}
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if *datasetPath != "" {
		cfg.Dataset.Path = *datasetPath
	}
	if !*charts {
		cfg.Dataset.Path = ""
	}
	cfg.Log.Console = false

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	rc, err := app.Load(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}
	defer rc.Close()

	set := make(map[string]string)
	flag.Visit(func(f *flag.Flag) {
		if value, ok := inputs[f.Name]; ok {
			set[f.Name] = *value
		}
	})
	record, err := rc.Collector.Collect(set)
	if err != nil {
		log.Fatalf("bad input: %v", err)
	}

	prediction, err := rc.Presenter.Predict(ctx, record)
	if err != nil {
		log.Fatalf("prediction failed: %v", err)
	}
	if err := rc.Presenter.RenderText(os.Stdout, record, &prediction); err != nil {
		log.Fatal(err)
	}

	if !*charts || rc.Dataset == nil {
		return
	}
	balance, err := rc.Dataset.ClassBalance(ctx)
	if err != nil {
		log.Fatalf("class balance: %v", err)
	}
	importance, err := report.ImportanceChart(rc.Model, rc.Dataset.FeatureColumns())
	if err != nil {
		log.Fatalf("feature importance: %v", err)
	}
	for _, chart := range []report.Chart{report.BalanceChart(balance), importance} {
		fmt.Println()
		if err := report.RenderChartText(os.Stdout, chart, *width); err != nil {
			log.Fatal(err)
		}
	}
}
