package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9000
  timeout: 5s
model:
  path: models/heart.json
  type: random_forest
dataset:
  path: heart_failure_clinical_records_dataset.csv
form:
  cpk_min: 20
  trigger: button
log:
  level: debug
  file: logs/heartrisk.log
watch: true
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.HTTP.Port)
	assert.Equal(t, 5*time.Second, config.HTTP.Timeout)
	assert.Equal(t, []string{"*"}, config.HTTP.AllowedOrigins)
	assert.Equal(t, "models/heart.json", config.Model.Path)
	assert.Equal(t, "random_forest", config.Model.Type)
	assert.Equal(t, "heart_failure_clinical_records_dataset.csv", config.Dataset.Path)
	assert.Equal(t, ":memory:", config.Dataset.DBPath)
	assert.Equal(t, 5, config.Dataset.HeadRows)
	assert.Equal(t, 20, config.Form.CPKMin)
	assert.Equal(t, TriggerButton, config.Form.Trigger)
	assert.Equal(t, 256, config.Cache.Size)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "logs/heartrisk.log", config.Log.File)
	assert.True(t, config.Watch)
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)

	def := Default()
	def.Log.Level = "warn"
	assert.Equal(t, def, *config)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "form:\n  cpk_min: 5\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "form:\n  trigger: sometimes\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "http:\n  port: 70000\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "http: [\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBlankFile(t *testing.T) {
	config, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), *config)
}
