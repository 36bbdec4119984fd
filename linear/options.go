package linear

import (
	"math"
	"time"

	"github.com/YuminosukeSato/linreg/dataset"
	"github.com/YuminosukeSato/linreg/pkg/errors"
	"github.com/YuminosukeSato/linreg/pkg/log"
)

// StepPolicy selects how the learning rate evolves between epochs.
type StepPolicy string

const (
	// StepFixed keeps the learning rate constant.
	StepFixed StepPolicy = "fixed"
	// StepAdaptive rolls back an epoch whose training loss rose and halves the
	// rate, and grows the rate by 5% after every improving epoch.
	StepAdaptive StepPolicy = "adaptive"
)

const (
	adaptiveDecrease = 0.5
	adaptiveIncrease = 1.05
)

// TrainingConfig holds the hyperparameters of a training run.
type TrainingConfig struct {
	MaxEpochs          int
	MinChange          float64
	LearningRate       float64
	StepPolicy         StepPolicy
	BatchSize          int // 0 means full batch
	ValidationFraction float64
	RandomizeOrder     bool
	EnableScaling      bool
	Seed               uint64
	MaxDuration        time.Duration // 0 means no wall-clock cap
}

// DefaultTrainingConfig returns the settings used by linreg-tool when nothing
// is overridden.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		MaxEpochs:          500,
		MinChange:          1e-5,
		LearningRate:       0.1,
		StepPolicy:         StepAdaptive,
		ValidationFraction: 0.2,
		RandomizeOrder:     true,
		EnableScaling:      true,
		Seed:               dataset.DefaultSeed,
	}
}

// Validate returns an InvalidConfigError describing the first bad field.
func (c TrainingConfig) Validate() error {
	switch {
	case c.MaxEpochs <= 0:
		return errors.NewInvalidConfigError("max_epochs", "must be positive", c.MaxEpochs)
	case math.IsNaN(c.MinChange) || c.MinChange < 0:
		return errors.NewInvalidConfigError("min_change", "must be non-negative", c.MinChange)
	case !errors.IsFinite(c.LearningRate) || c.LearningRate <= 0:
		return errors.NewInvalidConfigError("learning_rate", "must be a positive finite number", c.LearningRate)
	case c.StepPolicy != StepFixed && c.StepPolicy != StepAdaptive:
		return errors.NewInvalidConfigError("step_policy", "must be fixed or adaptive", c.StepPolicy)
	case c.BatchSize < 0:
		return errors.NewInvalidConfigError("batch_size", "must be non-negative", c.BatchSize)
	case math.IsNaN(c.ValidationFraction) || c.ValidationFraction < 0 || c.ValidationFraction >= 1:
		return errors.NewInvalidConfigError("validation_fraction", "must be in [0, 1)", c.ValidationFraction)
	case c.MaxDuration < 0:
		return errors.NewInvalidConfigError("max_duration", "must be non-negative", c.MaxDuration)
	}
	return nil
}

// Option is a function that configures a Trainer.
type Option func(*Trainer)

// WithConfig replaces the whole training configuration.
func WithConfig(cfg TrainingConfig) Option {
	return func(t *Trainer) {
		t.cfg = cfg
	}
}

// WithMaxEpochs sets the epoch budget.
func WithMaxEpochs(n int) Option {
	return func(t *Trainer) {
		t.cfg.MaxEpochs = n
	}
}

// WithMinChange sets the convergence threshold on the loss delta.
func WithMinChange(v float64) Option {
	return func(t *Trainer) {
		t.cfg.MinChange = v
	}
}

// WithLearningRate sets the initial step size.
func WithLearningRate(lr float64) Option {
	return func(t *Trainer) {
		t.cfg.LearningRate = lr
	}
}

// WithStepPolicy selects fixed or adaptive step sizes.
func WithStepPolicy(p StepPolicy) Option {
	return func(t *Trainer) {
		t.cfg.StepPolicy = p
	}
}

// WithBatchSize sets the mini-batch size; 0 uses the full training subset.
func WithBatchSize(n int) Option {
	return func(t *Trainer) {
		t.cfg.BatchSize = n
	}
}

// WithValidationFraction sets the share of samples held out for early stopping.
func WithValidationFraction(f float64) Option {
	return func(t *Trainer) {
		t.cfg.ValidationFraction = f
	}
}

// WithRandomizeOrder toggles shuffling before the split and every epoch.
func WithRandomizeOrder(on bool) Option {
	return func(t *Trainer) {
		t.cfg.RandomizeOrder = on
	}
}

// WithScaling toggles min/max scaling of inputs and targets.
func WithScaling(on bool) Option {
	return func(t *Trainer) {
		t.cfg.EnableScaling = on
	}
}

// WithSeed sets the seed of the trainer's random source.
func WithSeed(seed uint64) Option {
	return func(t *Trainer) {
		t.cfg.Seed = seed
	}
}

// WithMaxDuration caps the wall-clock time of a run, checked between epochs.
func WithMaxDuration(d time.Duration) Option {
	return func(t *Trainer) {
		t.cfg.MaxDuration = d
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(l log.Logger) Option {
	return func(t *Trainer) {
		if l != nil {
			t.logger = l
		}
	}
}
