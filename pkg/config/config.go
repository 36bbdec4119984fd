// Package config loads the YAML configuration of linreg-tool.
//
// A configuration file only needs the keys it overrides; everything else
// keeps the values of Default:
//
//	training:
//	  max_epochs: 2000
//	  learning_rate: 0.05
//	  step_policy: fixed
//	logging:
//	  level: debug
package config

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/linreg/linear"
	"github.com/YuminosukeSato/linreg/pkg/errors"
	"github.com/YuminosukeSato/linreg/pkg/log"
)

// Config is the top-level configuration.
type Config struct {
	// Training mirrors linear.TrainingConfig.
	Training TrainingConfig `yaml:"training"`

	// Logging selects level and output format.
	Logging LoggingConfig `yaml:"logging"`

	// Output controls where artifacts are written.
	Output OutputConfig `yaml:"output"`
}

// TrainingConfig contains the hyperparameters of a training run.
type TrainingConfig struct {
	MaxEpochs          int           `yaml:"max_epochs"`
	MinChange          float64       `yaml:"min_change"`
	LearningRate       float64       `yaml:"learning_rate"`
	StepPolicy         string        `yaml:"step_policy"`
	BatchSize          int           `yaml:"batch_size"`
	ValidationFraction float64       `yaml:"validation_fraction"`
	RandomizeOrder     bool          `yaml:"randomize_order"`
	EnableScaling      bool          `yaml:"enable_scaling"`
	Seed               uint64        `yaml:"seed"`
	MaxDuration        time.Duration `yaml:"max_duration"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OutputConfig contains artifact paths. An empty LossPlot disables the plot.
type OutputConfig struct {
	ModelPath string `yaml:"model_path"`
	LossPlot  string `yaml:"loss_plot"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	tc := linear.DefaultTrainingConfig()
	return Config{
		Training: TrainingConfig{
			MaxEpochs:          tc.MaxEpochs,
			MinChange:          tc.MinChange,
			LearningRate:       tc.LearningRate,
			StepPolicy:         string(tc.StepPolicy),
			BatchSize:          tc.BatchSize,
			ValidationFraction: tc.ValidationFraction,
			RandomizeOrder:     tc.RandomizeOrder,
			EnableScaling:      tc.EnableScaling,
			Seed:               tc.Seed,
			MaxDuration:        tc.MaxDuration,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: log.FormatJSON,
		},
		Output: OutputConfig{
			ModelPath: linear.DefaultModelPath,
		},
	}
}

// Load reads path and overlays it on Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.NewIOError("config.Load", path, err)
	}
	return Parse(data, path)
}

// Parse decodes YAML data overlaid on Default and validates the result;
// name is used in error messages only.
func Parse(data []byte, name string) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.WrapFormatError("config.Parse", name, 0, "invalid YAML configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate returns an InvalidConfigError for the first bad setting.
func (c Config) Validate() error {
	if err := c.Training.ToLinear().Validate(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case log.FormatJSON, log.FormatConsole, log.FormatCloud:
	default:
		return errors.NewInvalidConfigError("logging.format", "must be json, console or cloud", c.Logging.Format)
	}
	if c.Output.ModelPath == "" {
		return errors.NewInvalidConfigError("output.model_path", "must not be empty", c.Output.ModelPath)
	}
	return nil
}

// ToLinear converts the section into the trainer's configuration.
func (t TrainingConfig) ToLinear() linear.TrainingConfig {
	return linear.TrainingConfig{
		MaxEpochs:          t.MaxEpochs,
		MinChange:          t.MinChange,
		LearningRate:       t.LearningRate,
		StepPolicy:         linear.StepPolicy(strings.ToLower(t.StepPolicy)),
		BatchSize:          t.BatchSize,
		ValidationFraction: t.ValidationFraction,
		RandomizeOrder:     t.RandomizeOrder,
		EnableScaling:      t.EnableScaling,
		Seed:               t.Seed,
		MaxDuration:        t.MaxDuration,
	}
}
