package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"heartrisk/app"
	"heartrisk/config"
	qhttp "heartrisk/http"
	"heartrisk/logging"
	"heartrisk/monitoring"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// Look for config in root even if run from cmd/
	path := *configPath
	if path == "" {
		path = "config.yaml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join("..", "config.yaml")
		}
	}

	cfg, err := loadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ApplyEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		log.Fatalf("Failed to apply environment: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runContext, err := app.Load(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to load run context", zap.Error(err))
	}
	holder := app.NewHolder(runContext, logger)
	defer holder.Close()

	if cfg.Watch {
		go func() {
			if err := holder.Watch(ctx); err != nil {
				logger.Error("file watch stopped", zap.Error(err))
			}
		}()
	}

	serverConfig := qhttp.DefaultServerConfig()
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.Timeout = cfg.HTTP.Timeout
	if len(cfg.HTTP.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	}

	metrics := monitoring.NewMetricsCollector()
	go metrics.Run(ctx, 15*time.Second)

	server := qhttp.NewServer(serverConfig, holder, metrics, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}

// loadConfig falls back to defaults when no config file exists.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(path)
}
