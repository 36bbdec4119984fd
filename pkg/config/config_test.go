package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/linreg/linear"
	"github.com/YuminosukeSato/linreg/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500, cfg.Training.MaxEpochs)
	assert.Equal(t, 1e-5, cfg.Training.MinChange)
	assert.Equal(t, 0.2, cfg.Training.ValidationFraction)
	assert.True(t, cfg.Training.RandomizeOrder)
	assert.True(t, cfg.Training.EnableScaling)
	assert.Equal(t, linear.DefaultModelPath, cfg.Output.ModelPath)
	assert.Equal(t, linear.DefaultTrainingConfig(), cfg.Training.ToLinear())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linreg.yaml")
	content := `
training:
  max_epochs: 2000
  step_policy: Fixed
  max_duration: 30s
logging:
  level: debug
  format: console
output:
  loss_plot: loss.png
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Training.MaxEpochs)
	assert.Equal(t, 30*time.Second, cfg.Training.MaxDuration)
	assert.Equal(t, linear.StepFixed, cfg.Training.ToLinear().StepPolicy)
	assert.Equal(t, 0.1, cfg.Training.LearningRate, "unspecified keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "loss.png", cfg.Output.LossPlot)
	assert.Equal(t, linear.DefaultModelPath, cfg.Output.ModelPath)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil, "empty.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	var formatErr *errors.FormatError
	_, err := Parse([]byte("training: [1, 2"), "broken.yaml")
	require.ErrorAs(t, err, &formatErr)

	_, err = Parse([]byte("training:\n  epochs: 10\n"), "unknown.yaml")
	require.ErrorAs(t, err, &formatErr, "unknown keys are rejected")

	invalid := map[string]string{
		"zero epochs":  "training:\n  max_epochs: 0\n",
		"fraction":     "training:\n  validation_fraction: 1.5\n",
		"policy":       "training:\n  step_policy: momentum\n",
		"log level":    "logging:\n  level: loud\n",
		"log format":   "logging:\n  format: xml\n",
		"empty output": "output:\n  model_path: \"\"\n",
	}
	for name, doc := range invalid {
		t.Run(name, func(t *testing.T) {
			var cfgErr *errors.InvalidConfigError
			_, err := Parse([]byte(doc), name)
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	var ioErr *errors.IOError
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorAs(t, err, &ioErr)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Training.BatchSize = 32
	cfg.Training.MaxDuration = time.Minute

	data, err := cfg.Marshal()
	require.NoError(t, err)
	back, err := Parse(data, "roundtrip.yaml")
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
