// Standard attribute keys for training, inference and persistence logs.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so that log pipelines can filter on them.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the type of model, e.g. "LinearRegression".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"

	// StateKey records a trainer lifecycle state.
	StateKey = "ml.state"
)

// Data shape.
const (
	SamplesKey           = "data.samples"
	FeaturesKey          = "data.features"
	TargetsKey           = "data.targets"
	TrainingSamplesKey   = "data.training_samples"
	ValidationSamplesKey = "data.validation_samples"
	BatchSizeKey         = "data.batch_size"
	PathKey              = "data.path"
)

// Performance and training progress.
const (
	DurationMsKey     = "perf.duration_ms"
	LossKey           = "metrics.loss"
	ValidationLossKey = "metrics.validation_loss"
	R2ScoreKey        = "metrics.r2_score"
	RMSEKey           = "metrics.rmse"
	MAEKey            = "metrics.mae"
	EpochKey          = "training.epoch"
	MaxEpochsKey      = "training.max_epochs"
	LearningRateKey   = "hyperparams.learning_rate"
	RandomSeedKey     = "config.random_seed"
	ScalingEnabledKey = "config.scaling_enabled"
	ConfigVersionKey  = "config.version"
	PredsKey          = "preds.count"
)

// ErrorTypeKey categorizes the error attached to a log record.
const ErrorTypeKey = "error.type"

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationLoad    = "load"
	OperationSave    = "save"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
