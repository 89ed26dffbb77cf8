package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvPort        = "HEARTRISK_PORT"
	EnvTimeout     = "HEARTRISK_TIMEOUT"
	EnvModelPath   = "HEARTRISK_MODEL_PATH"
	EnvModelType   = "HEARTRISK_MODEL_TYPE"
	EnvDatasetPath = "HEARTRISK_DATASET_PATH"
	EnvCPKMin      = "HEARTRISK_CPK_MIN"
	EnvTrigger     = "HEARTRISK_TRIGGER"
	EnvLogLevel    = "HEARTRISK_LOG_LEVEL"
	EnvLogFile     = "HEARTRISK_LOG_FILE"
)

// ApplyEnv loads dotenv files, when present, into the process environment
// and then overrides c with any HEARTRISK_* variables. Variables already set
// in the environment win over dotenv values.
func (c *Config) ApplyEnv(dotenv ...string) error {
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	setString(EnvModelPath, &c.Model.Path)
	setString(EnvModelType, &c.Model.Type)
	setString(EnvDatasetPath, &c.Dataset.Path)
	setString(EnvTrigger, &c.Form.Trigger)
	setString(EnvLogLevel, &c.Log.Level)
	setString(EnvLogFile, &c.Log.File)

	if v, ok := os.LookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.HTTP.Port = port
	}
	if v, ok := os.LookupEnv(EnvCPKMin); ok {
		min, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCPKMin, err)
		}
		c.Form.CPKMin = min
	}
	if v, ok := os.LookupEnv(EnvTimeout); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.HTTP.Timeout = timeout
	}
	return c.Validate()
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
