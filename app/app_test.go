package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartrisk/config"
	"heartrisk/ml"
	"heartrisk/patient"
)

const referenceCSV = `age,anaemia,creatinine_phosphokinase,diabetes,ejection_fraction,high_blood_pressure,platelets,serum_creatinine,serum_sodium,sex,smoking,time,DEATH_EVENT
75,0,582,0,20,1,265000,1.9,130,1,0,4,1
55,0,7861,0,38,0,263358.03,1.1,136,1,0,6,1
45,0,2413,0,38,0,140000,1.4,140,1,1,280,0
`

func stumpArtifact(leftDeath float64) ml.Artifact {
	return ml.Artifact{
		ModelType:    ml.TypeDecisionTree,
		FeatureNames: patient.Columns(),
		Classes:      []int{0, 1},
		Trees: []ml.TreeArtifact{{Nodes: []ml.TreeNode{
			{FeatureIdx: 4, Threshold: 30, LeftChild: 1, RightChild: 2, Value: []float64{100 - leftDeath + 80, leftDeath + 20}},
			{FeatureIdx: -1, Value: []float64{100 - leftDeath, leftDeath}, IsLeaf: true},
			{FeatureIdx: -1, Value: []float64{80, 20}, IsLeaf: true},
		}}},
	}
}

func testConfig(t *testing.T, withDataset bool) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Model.Path = filepath.Join(dir, "heart_failure_model.json")
	require.NoError(t, ml.SaveArtifact(cfg.Model.Path, stumpArtifact(90)))
	if withDataset {
		cfg.Dataset.Path = filepath.Join(dir, "heart_failure_clinical_records_dataset.csv")
		require.NoError(t, os.WriteFile(cfg.Dataset.Path, []byte(referenceCSV), 0o600))
	}
	return cfg
}

func TestLoadWithoutDataset(t *testing.T) {
	c, err := Load(context.Background(), testConfig(t, false), nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Dataset)
	assert.Equal(t, 0, c.DatasetRows())
	assert.Equal(t, ml.TypeDecisionTree, c.Model.Type())

	prediction, err := c.Presenter.Predict(context.Background(), c.Collector.Defaults())
	require.NoError(t, err)
	assert.Equal(t, 0, prediction.Label)
	assert.Equal(t, "20.00%", prediction.Percent)
}

func TestLoadWithDataset(t *testing.T) {
	c, err := Load(context.Background(), testConfig(t, true), nil)
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Dataset)
	assert.Equal(t, 3, c.DatasetRows())

	balance, err := c.Dataset.ClassBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, balance.Total)
}

func TestLoadFailures(t *testing.T) {
	cfg := testConfig(t, false)
	cfg.Model.Path = filepath.Join(t.TempDir(), "missing.json")
	_, err := Load(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg = testConfig(t, false)
	artifact := stumpArtifact(90)
	artifact.FeatureNames = append(patient.Columns()[1:], "weight")
	require.NoError(t, ml.SaveArtifact(cfg.Model.Path, artifact))
	_, err = Load(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ml.ErrSchemaMismatch)

	cfg = testConfig(t, true)
	require.NoError(t, os.WriteFile(cfg.Dataset.Path, []byte("age,DEATH_EVENT\n1,0\n"), 0o600))
	_, err = Load(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t, false)
	cfg.Form.CPKMin = 7
	_, err = Load(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestHolderReload(t *testing.T) {
	cfg := testConfig(t, true)
	c, err := Load(context.Background(), cfg, nil)
	require.NoError(t, err)

	h := NewHolder(c, nil)
	h.closeDelay = time.Millisecond
	defer h.Close()

	record := c.Collector.Defaults()
	record.EjectionFraction = 20
	before, err := h.Current().Presenter.Predict(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "90.00%", before.Percent)

	require.NoError(t, ml.SaveArtifact(cfg.Model.Path, stumpArtifact(40)))
	require.NoError(t, h.Reload(context.Background()))
	assert.NotSame(t, c, h.Current())

	after, err := h.Current().Presenter.Predict(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "40.00%", after.Percent)
	assert.Equal(t, 0, after.Label)

	current := h.Current()
	require.NoError(t, os.WriteFile(cfg.Model.Path, []byte("{"), 0o600))
	assert.Error(t, h.Reload(context.Background()))
	assert.Same(t, current, h.Current())
}

func TestHolderWatch(t *testing.T) {
	cfg := testConfig(t, false)
	c, err := Load(context.Background(), cfg, nil)
	require.NoError(t, err)

	h := NewHolder(c, nil)
	h.debounce = 20 * time.Millisecond
	h.closeDelay = time.Millisecond
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()

	// Give the watcher time to register before touching the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, ml.SaveArtifact(cfg.Model.Path, stumpArtifact(40)))

	assert.Eventually(t, func() bool {
		return h.Current() != c
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
