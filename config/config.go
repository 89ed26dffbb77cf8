package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	TriggerAlways = "always"
	TriggerButton = "button"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Model   ModelConfig   `yaml:"model"`
	Dataset DatasetConfig `yaml:"dataset"`
	Form    FormConfig    `yaml:"form"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	// Watch rebuilds the run context when the model or dataset file changes.
	Watch bool `yaml:"watch"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type ModelConfig struct {
	Path string `yaml:"path"`
	// Type is optional; when set the artifact must declare the same type.
	Type string `yaml:"type"`
}

type DatasetConfig struct {
	// Path is the reference CSV. Empty disables the dataset panels.
	Path     string `yaml:"path"`
	DBPath   string `yaml:"db_path"`
	HeadRows int    `yaml:"head_rows"`
}

type FormConfig struct {
	CPKMin  int    `yaml:"cpk_min"`
	Trigger string `yaml:"trigger"`
}

type CacheConfig struct {
	Size int `yaml:"size"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Console    bool   `yaml:"console"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:           8501,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Model: ModelConfig{
			Path: "heart_failure_model.json",
		},
		Dataset: DatasetConfig{
			DBPath:   ":memory:",
			HeadRows: 5,
		},
		Form: FormConfig{
			CPKMin:  0,
			Trigger: TriggerAlways,
		},
		Cache: CacheConfig{Size: 256},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Console:    true,
		},
	}
}

// Load reads a YAML config file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.HTTP.Port == 0 {
		c.HTTP.Port = def.HTTP.Port
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = def.HTTP.Timeout
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = def.HTTP.AllowedOrigins
	}
	if c.Model.Path == "" {
		c.Model.Path = def.Model.Path
	}
	if c.Dataset.DBPath == "" {
		c.Dataset.DBPath = def.Dataset.DBPath
	}
	if c.Dataset.HeadRows == 0 {
		c.Dataset.HeadRows = def.Dataset.HeadRows
	}
	if c.Form.Trigger == "" {
		c.Form.Trigger = def.Form.Trigger
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = def.Cache.Size
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	if c.Form.CPKMin != 0 && c.Form.CPKMin != 20 {
		return fmt.Errorf("form.cpk_min must be 0 or 20, got %d", c.Form.CPKMin)
	}
	if c.Form.Trigger != TriggerAlways && c.Form.Trigger != TriggerButton {
		return fmt.Errorf("form.trigger must be %q or %q, got %q", TriggerAlways, TriggerButton, c.Form.Trigger)
	}
	if c.Dataset.HeadRows < 0 {
		return fmt.Errorf("dataset.head_rows must not be negative")
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative")
	}
	return nil
}
