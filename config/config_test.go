package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/grader/config"
	"github.com/sw965/grader/dataset"
	"github.com/sw965/grader/trainer"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, trainer.DefaultEpochs, cfg.Epochs)
	assert.Equal(t, trainer.DefaultInnerEpochs, cfg.InnerEpochs)
	assert.Equal(t, trainer.DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, dataset.DefaultDir, cfg.DataDir)
	assert.Equal(t, float32(config.DefaultLearningRate), cfg.LearningRate)
	assert.Greater(t, cfg.Parallelism, 0)
}

func TestParseOverridesDefaults(t *testing.T) {
	yml := `
model: two-layer
learning_rate: 0.1
epochs: 10
batch_size: 100
no_download: true
`
	cfg, err := config.Parse(strings.NewReader(yml))
	require.NoError(t, err)
	assert.Equal(t, "two-layer", cfg.Model)
	assert.Equal(t, float32(0.1), cfg.LearningRate)
	assert.Equal(t, 10, cfg.Epochs)
	assert.Equal(t, trainer.DefaultInnerEpochs, cfg.InnerEpochs)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.True(t, cfg.NoDownload)
	assert.False(t, cfg.Dataset().Download)
	require.NoError(t, cfg.Validate())
}

func TestParseUnknownKey(t *testing.T) {
	_, err := config.Parse(strings.NewReader("epocs: 3\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: m\ninner_epochs: 5\n"), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Trainer().InnerEpochs)

	require.NoError(t, os.WriteFile(path, []byte("inner_epochs: 5\n"), 0644))
	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "model must be set")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.ApplyOverrides(config.Overrides{
		Model:       "m",
		Epochs:      2,
		InnerEpochs: 3,
		BatchSize:   4,
		DataDir:     "/tmp/mnist",
		NoDownload:  true,
	})
	assert.Equal(t, "m", cfg.Model)
	assert.Equal(t, trainer.Config{Epochs: 2, InnerEpochs: 3, BatchSize: 4, Parallelism: cfg.Parallelism}, cfg.Trainer())
	assert.Equal(t, "/tmp/mnist", cfg.Dataset().Dir)
	assert.True(t, cfg.NoDownload)
	assert.Equal(t, float32(config.DefaultLearningRate), cfg.LearningRate)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Model = "m"
	require.NoError(t, cfg.Validate())

	cfg.LearningRate = 0
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Model = "m"
	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate())

	var nilCfg *config.Config
	assert.Error(t, nilCfg.Validate())
}

func TestValidateDoesNotModify(t *testing.T) {
	cfg := config.Default()
	cfg.Model = "m"
	cfg.Parallelism = 0
	cfg.DataDir = ""
	before := *cfg

	assert.ErrorContains(t, cfg.Validate(), "parallelism")
	assert.Equal(t, before, *cfg)

	cfg.Parallelism = 2
	before = *cfg
	assert.ErrorContains(t, cfg.Validate(), "data_dir")
	assert.Equal(t, before, *cfg)

	cfg.DataDir = dataset.DefaultDir
	before = *cfg
	require.NoError(t, cfg.Validate())
	assert.Equal(t, before, *cfg)
}

func TestParseExplicitZeroParallelism(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("model: m\nparallelism: 0\n"))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	// コマンドラインの指定で直せる
	cfg.ApplyOverrides(config.Overrides{Parallelism: 4})
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Trainer().Parallelism)
}
