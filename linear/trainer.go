package linear

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/linreg/core/model"
	"github.com/YuminosukeSato/linreg/dataset"
	"github.com/YuminosukeSato/linreg/metrics"
	"github.com/YuminosukeSato/linreg/pkg/errors"
	"github.com/YuminosukeSato/linreg/pkg/log"
	"github.com/YuminosukeSato/linreg/preprocessing"
)

// EpochStats records one epoch of the optimization loop.
type EpochStats struct {
	Epoch          int
	TrainingLoss   float64
	ValidationLoss float64 // zero when no validation subset is used
	LearningRate   float64 // rate used for this epoch's update
	RolledBack     bool    // the update raised the training loss and was undone
}

// TrainingResult is the outcome of a successful Trainer.Run.
//
// Losses are mean squared errors measured in the space the model was
// optimized in, i.e. on scaled values when scaling is enabled.
type TrainingResult struct {
	Model             *LinearRegression
	Epochs            int
	TrainingLoss      float64
	ValidationLoss    float64
	HasValidation     bool
	State             model.TrainingState // StateConverged or StateMaxEpochsReached
	History           []EpochStats
	TrainingTime      time.Duration
	TrainingSamples   int
	ValidationSamples int
}

// Trainer fits a LinearRegression with batch or mini-batch gradient descent
// on the per-target mean squared error.
//
// A Trainer owns its random source and working buffers, so distinct trainers
// can run in parallel. A single Trainer must not run concurrently with itself;
// State may be called from any goroutine.
type Trainer struct {
	cfg    TrainingConfig
	logger log.Logger
	state  *model.StateManager
}

// NewTrainer creates a trainer starting from DefaultTrainingConfig.
func NewTrainer(opts ...Option) *Trainer {
	t := &Trainer{
		cfg:    DefaultTrainingConfig(),
		logger: log.GetLogger().With(log.ComponentKey, "linear", log.ModelNameKey, ModelType),
		state:  model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Config returns the configuration used by Run.
func (t *Trainer) Config() TrainingConfig {
	return t.cfg
}

// State returns the lifecycle state of the current or last run.
func (t *Trainer) State() model.TrainingState {
	return t.state.State()
}

// StateHistory returns the states visited by the current or last run.
func (t *Trainer) StateHistory() []model.TrainingState {
	return t.state.History()
}

// Run trains a model on ds. The dataset is not modified.
//
// Cancellation of ctx and the MaxDuration cap are honoured between epochs
// only, so weights are never observed half-updated. On any failure no model
// is returned and the trainer ends in StateAborted.
func (t *Trainer) Run(ctx context.Context, ds *dataset.DataSet) (res *TrainingResult, err error) {
	t.state.Reset()
	defer func() {
		if err != nil {
			t.state.Abort()
			t.logger.Error("Training aborted", err, log.StateKey, t.state.State().String())
		}
	}()
	defer errors.Recover(&err, "Trainer.Run")

	start := time.Now()
	if err := t.state.Transition(model.StateValidating); err != nil {
		return nil, err
	}
	r, err := t.prepare(ds)
	if err != nil {
		return nil, err
	}

	t.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, ds.NumSamples(),
		log.FeaturesKey, ds.NumInputDimensions(),
		log.TargetsKey, ds.NumTargetDimensions(),
		log.TrainingSamplesKey, r.numTrain(),
		log.ValidationSamplesKey, r.numValidation(),
		log.BatchSizeKey, r.batch,
		log.MaxEpochsKey, t.cfg.MaxEpochs,
		log.LearningRateKey, t.cfg.LearningRate,
		log.ScalingEnabledKey, t.cfg.EnableScaling,
		log.RandomSeedKey, t.cfg.Seed,
	)

	if err := t.state.Transition(model.StateIterating); err != nil {
		return nil, err
	}
	res, err = t.iterate(ctx, r, start)
	if err != nil {
		return nil, err
	}

	res.Model, err = NewLinearRegression(r.w, r.b, r.params)
	if err != nil {
		return nil, err
	}
	if err := t.state.Transition(model.StateFinalized); err != nil {
		return nil, err
	}
	res.TrainingTime = time.Since(start)

	t.logger.Info("Training finished",
		log.OperationKey, log.OperationFit,
		log.StateKey, res.State.String(),
		log.EpochKey, res.Epochs,
		log.LossKey, res.TrainingLoss,
		log.ValidationLossKey, res.ValidationLoss,
		log.DurationMsKey, res.TrainingTime.Milliseconds(),
	)
	return res, nil
}

// run holds the working data of one Trainer.Run.
type run struct {
	x, y   *mat.Dense // training subset, scaled when enabled
	vx, vy *mat.Dense // validation subset, nil when none
	params *preprocessing.ScalingParameters
	rng    *rand.Rand

	w *mat.Dense    // T×N
	b *mat.VecDense // T

	batch         int
	xb, yb, eb    *mat.Dense // batch buffers
	ones          *mat.VecDense
	gradW         *mat.Dense
	gradB         *mat.VecDense
	predT, predV  *mat.Dense
	savedW        *mat.Dense
	savedB        *mat.VecDense
	trainingOrder []int
}

func (r *run) numTrain() int {
	n, _ := r.x.Dims()
	return n
}

func (r *run) numValidation() int {
	if r.vx == nil {
		return 0
	}
	n, _ := r.vx.Dims()
	return n
}

// prepare validates the inputs, splits the dataset and fits the scaler.
func (t *Trainer) prepare(ds *dataset.DataSet) (*run, error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, errors.NewValueError("Trainer.Run", "nil dataset")
	}
	numIn, numOut := ds.NumInputDimensions(), ds.NumTargetDimensions()
	if numIn == 0 {
		return nil, errors.NewInvalidConfigError("num_input_dimensions", "must be at least 1", numIn)
	}
	if numOut == 0 {
		return nil, errors.NewInvalidConfigError("num_target_dimensions", "must be at least 1", numOut)
	}
	if n := ds.NumSamples(); n < 2 {
		return nil, errors.NewInsufficientDataError("Trainer.Run", 2, n)
	}

	r := &run{rng: dataset.NewRNG(t.cfg.Seed)}
	train, valid, err := ds.Split(t.cfg.ValidationFraction, t.cfg.RandomizeOrder, r.rng)
	if err != nil {
		return nil, err
	}
	// 分割後に学習用サンプルが2未満なら勾配もスケーリングも意味を持たない
	if n := train.NumSamples(); n < 2 {
		return nil, errors.NewInsufficientDataError("Trainer.Run", 2, n)
	}

	r.x, r.y = train.InputMatrix(), train.TargetMatrix()
	if valid.NumSamples() > 0 {
		r.vx, r.vy = valid.InputMatrix(), valid.TargetMatrix()
	}

	if t.cfg.EnableScaling {
		scaler := preprocessing.NewMinMaxScaler()
		if err := scaler.Fit(train); err != nil {
			return nil, err
		}
		if err := r.scale(scaler); err != nil {
			return nil, err
		}
		r.params = scaler.Params()
	}

	r.allocate(numIn, numOut, t.cfg.BatchSize)
	return r, nil
}

func (r *run) scale(s *preprocessing.MinMaxScaler) (err error) {
	if r.x, err = s.ScaleMatrix(r.x, preprocessing.Input); err != nil {
		return err
	}
	if r.y, err = s.ScaleMatrix(r.y, preprocessing.Target); err != nil {
		return err
	}
	if r.vx == nil {
		return nil
	}
	if r.vx, err = s.ScaleMatrix(r.vx, preprocessing.Input); err != nil {
		return err
	}
	r.vy, err = s.ScaleMatrix(r.vy, preprocessing.Target)
	return err
}

// allocate creates zero-initialized parameters and the per-run buffers.
func (r *run) allocate(numIn, numOut, batchSize int) {
	n := r.numTrain()
	r.batch = batchSize
	if r.batch == 0 || r.batch > n {
		r.batch = n
	}

	r.w = mat.NewDense(numOut, numIn, nil)
	r.b = mat.NewVecDense(numOut, nil)
	r.savedW = mat.NewDense(numOut, numIn, nil)
	r.savedB = mat.NewVecDense(numOut, nil)
	r.gradW = mat.NewDense(numOut, numIn, nil)
	r.gradB = mat.NewVecDense(numOut, nil)

	r.xb = mat.NewDense(r.batch, numIn, nil)
	r.yb = mat.NewDense(r.batch, numOut, nil)
	r.eb = mat.NewDense(r.batch, numOut, nil)
	ones := make([]float64, r.batch)
	floats.AddConst(1, ones)
	r.ones = mat.NewVecDense(r.batch, ones)

	r.predT = mat.NewDense(n, numOut, nil)
	if r.vx != nil {
		r.predV = mat.NewDense(r.numValidation(), numOut, nil)
	}

	r.trainingOrder = make([]int, n)
	for i := range r.trainingOrder {
		r.trainingOrder[i] = i
	}
}

// step applies one gradient-descent update on the given training rows:
// dW = 2/m · Eᵀ·X, db = 2/m · ΣE with E = X·Wᵀ + b − Y.
func (r *run) step(rows []int, lr float64) {
	m := len(rows)
	_, numIn := r.x.Dims()
	_, numOut := r.y.Dims()
	xb := r.xb.Slice(0, m, 0, numIn).(*mat.Dense)
	yb := r.yb.Slice(0, m, 0, numOut).(*mat.Dense)
	eb := r.eb.Slice(0, m, 0, numOut).(*mat.Dense)

	for k, i := range rows {
		xb.SetRow(k, r.x.RawRowView(i))
		yb.SetRow(k, r.y.RawRowView(i))
	}

	eb.Mul(xb, r.w.T())
	bias := r.b.RawVector().Data
	for k := 0; k < m; k++ {
		floats.Add(eb.RawRowView(k), bias)
	}
	eb.Sub(eb, yb)

	coef := -lr * 2 / float64(m)
	r.gradW.Mul(eb.T(), xb)
	r.gradW.Scale(coef, r.gradW)
	r.w.Add(r.w, r.gradW)

	r.gradB.MulVec(eb.T(), r.ones.SliceVec(0, m))
	r.b.AddScaledVec(r.b, coef, r.gradB)
}

// loss returns the mean squared error of the current parameters on (x, y).
func (r *run) loss(x, y, pred *mat.Dense) (float64, error) {
	pred.Mul(x, r.w.T())
	bias := r.b.RawVector().Data
	n, _ := pred.Dims()
	for i := 0; i < n; i++ {
		floats.Add(pred.RawRowView(i), bias)
	}
	return metrics.MeanSquaredError(y, pred)
}

func (r *run) snapshot() {
	r.savedW.Copy(r.w)
	r.savedB.CopyVec(r.b)
}

func (r *run) restore() {
	r.w.Copy(r.savedW)
	r.b.CopyVec(r.savedB)
}

// checkBoundary is evaluated before every epoch.
func (t *Trainer) checkBoundary(ctx context.Context, start time.Time) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	if t.cfg.MaxDuration > 0 && time.Since(start) > t.cfg.MaxDuration {
		return errors.NewModelError("Trainer.Run", "training deadline exceeded", errors.ErrDeadlineExceeded)
	}
	return nil
}

// iterate runs the epoch loop and leaves the trainer in StateConverged or
// StateMaxEpochsReached.
func (t *Trainer) iterate(ctx context.Context, r *run, start time.Time) (*TrainingResult, error) {
	cfg := t.cfg
	adaptive := cfg.StepPolicy == StepAdaptive
	debug := t.logger.Enabled(ctx, log.LevelDebug)

	res := &TrainingResult{
		HasValidation:     r.vx != nil,
		TrainingSamples:   r.numTrain(),
		ValidationSamples: r.numValidation(),
		History:           make([]EpochStats, 0, min(cfg.MaxEpochs, 4096)),
	}

	lr := cfg.LearningRate
	prevTrain, err := r.loss(r.x, r.y, r.predT)
	if err != nil {
		return nil, err
	}
	prevMonitored := math.Inf(1)
	lastValidation := 0.0
	converged := false

	for epoch := 1; epoch <= cfg.MaxEpochs; epoch++ {
		if err := t.checkBoundary(ctx, start); err != nil {
			return nil, err
		}

		if adaptive {
			r.snapshot()
		}
		if cfg.RandomizeOrder {
			r.rng.Shuffle(len(r.trainingOrder), func(i, j int) {
				r.trainingOrder[i], r.trainingOrder[j] = r.trainingOrder[j], r.trainingOrder[i]
			})
		}
		for s := 0; s < len(r.trainingOrder); s += r.batch {
			r.step(r.trainingOrder[s:min(s+r.batch, len(r.trainingOrder))], lr)
		}

		trainLoss, err := r.loss(r.x, r.y, r.predT)
		if err != nil {
			return nil, err
		}
		if err := errors.CheckScalar("training_loss", trainLoss, epoch); err != nil {
			return nil, err
		}

		stats := EpochStats{Epoch: epoch, TrainingLoss: trainLoss, LearningRate: lr}
		res.Epochs = epoch

		if adaptive && trainLoss > prevTrain {
			r.restore()
			lr *= adaptiveDecrease
			stats.RolledBack = true
			stats.TrainingLoss = prevTrain
			stats.ValidationLoss = lastValidation
			res.History = append(res.History, stats)
			t.logEpoch(debug, stats)
			continue
		}
		if adaptive {
			lr *= adaptiveIncrease
		}
		prevTrain = trainLoss

		monitored := trainLoss
		if r.vx != nil {
			validationLoss, err := r.loss(r.vx, r.vy, r.predV)
			if err != nil {
				return nil, err
			}
			if err := errors.CheckScalar("validation_loss", validationLoss, epoch); err != nil {
				return nil, err
			}
			stats.ValidationLoss = validationLoss
			lastValidation = validationLoss
			monitored = validationLoss
		}
		res.History = append(res.History, stats)
		t.logEpoch(debug, stats)

		if math.Abs(prevMonitored-monitored) < cfg.MinChange {
			converged = true
			break
		}
		prevMonitored = monitored
	}

	if err := errors.CheckNumericalStability("weights", r.w.RawMatrix().Data, res.Epochs); err != nil {
		return nil, err
	}
	if err := errors.CheckNumericalStability("bias", r.b.RawVector().Data, res.Epochs); err != nil {
		return nil, err
	}

	res.TrainingLoss = prevTrain
	res.ValidationLoss = lastValidation

	if converged {
		res.State = model.StateConverged
	} else {
		res.State = model.StateMaxEpochsReached
		errors.Warn(errors.NewConvergenceWarning(ModelType, cfg.MaxEpochs,
			fmt.Sprintf("loss change did not fall below %g", cfg.MinChange)))
	}
	if err := t.state.Transition(res.State); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *Trainer) logEpoch(enabled bool, s EpochStats) {
	if !enabled {
		return
	}
	t.logger.Debug("Epoch completed",
		log.PhaseKey, log.PhaseTraining,
		log.EpochKey, s.Epoch,
		log.LossKey, s.TrainingLoss,
		log.ValidationLossKey, s.ValidationLoss,
		log.LearningRateKey, s.LearningRate,
		"training.rolled_back", s.RolledBack,
	)
}
