package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/linreg/dataset"
	"github.com/YuminosukeSato/linreg/linear"
	"github.com/YuminosukeSato/linreg/metrics"
	"github.com/YuminosukeSato/linreg/pkg/errors"
	"github.com/YuminosukeSato/linreg/pkg/log"
	"github.com/YuminosukeSato/linreg/report"
)

type trainFlags struct {
	file               string
	numInputs          int
	numTargets         int
	modelPath          string
	lossPlot           string
	maxEpochs          int
	minChange          float64
	learningRate       float64
	stepPolicy         string
	batchSize          int
	validationFraction float64
	seed               uint64
	maxDuration        time.Duration
	noScaling          bool
	noRandomize        bool
}

func newTrainCmd(a *app) *cobra.Command {
	f := &trainFlags{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model from a CSV or structured data file",
		Long: `Loads labelled samples, fits a linear regression model with gradient
descent and saves it.

CSV files have no header; each row holds the input values followed by the
target values, so -n and -t are required for them. Files in the structured
regression format carry their own dimensions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.train(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.file, "file", "f", "", "training data file (.csv, structured, optionally .gz)")
	fl.IntVarP(&f.numInputs, "num-inputs", "n", 0, "number of input columns (CSV only)")
	fl.IntVarP(&f.numTargets, "num-targets", "t", 0, "number of target columns (CSV only)")
	fl.StringVar(&f.modelPath, "model", linear.DefaultModelPath, "where to save the trained model")
	fl.StringVar(&f.lossPlot, "loss-plot", "", "write a loss curve image (png, svg, pdf)")
	fl.IntVar(&f.maxEpochs, "max-epochs", 0, "maximum number of epochs")
	fl.Float64Var(&f.minChange, "min-change", 0, "stop when the monitored loss changes less than this")
	fl.Float64Var(&f.learningRate, "learning-rate", 0, "initial learning rate")
	fl.StringVar(&f.stepPolicy, "step-policy", "", "learning rate policy (fixed|adaptive)")
	fl.IntVar(&f.batchSize, "batch-size", 0, "mini-batch size, 0 for full batch")
	fl.Float64Var(&f.validationFraction, "validation-fraction", 0, "fraction of samples held out for validation")
	fl.Uint64Var(&f.seed, "seed", 0, "random seed for shuffling and splitting")
	fl.DurationVar(&f.maxDuration, "max-duration", 0, "wall-clock limit for training, 0 for none")
	fl.BoolVar(&f.noScaling, "no-scaling", false, "train on raw values instead of [0,1] scaled ones")
	fl.BoolVar(&f.noRandomize, "no-randomize", false, "keep sample order when splitting and batching")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// applyTo overrides cfg with every flag given on the command line.
func (f *trainFlags) applyTo(cmd *cobra.Command, a *app) {
	fl := cmd.Flags()
	tc := &a.cfg.Training
	if fl.Changed("max-epochs") {
		tc.MaxEpochs = f.maxEpochs
	}
	if fl.Changed("min-change") {
		tc.MinChange = f.minChange
	}
	if fl.Changed("learning-rate") {
		tc.LearningRate = f.learningRate
	}
	if fl.Changed("step-policy") {
		tc.StepPolicy = f.stepPolicy
	}
	if fl.Changed("batch-size") {
		tc.BatchSize = f.batchSize
	}
	if fl.Changed("validation-fraction") {
		tc.ValidationFraction = f.validationFraction
	}
	if fl.Changed("seed") {
		tc.Seed = f.seed
	}
	if fl.Changed("max-duration") {
		tc.MaxDuration = f.maxDuration
	}
	if fl.Changed("no-scaling") {
		tc.EnableScaling = !f.noScaling
	}
	if fl.Changed("no-randomize") {
		tc.RandomizeOrder = !f.noRandomize
	}
	if fl.Changed("model") {
		a.cfg.Output.ModelPath = f.modelPath
	}
	if fl.Changed("loss-plot") {
		a.cfg.Output.LossPlot = f.lossPlot
	}
}

func (a *app) train(cmd *cobra.Command, f *trainFlags) error {
	f.applyTo(cmd, a)
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	ds := dataset.New()
	// 片方だけの指定は未宣言と同じ扱いで、CSVでは MissingDimensionsError になる
	if cmd.Flags().Changed("num-inputs") && cmd.Flags().Changed("num-targets") {
		if err := ds.SetDimensions(f.numInputs, f.numTargets); err != nil {
			return err
		}
	}
	if err := ds.Load(f.file); err != nil {
		return err
	}
	a.logger.Info("Dataset loaded",
		log.PathKey, f.file,
		log.SamplesKey, ds.NumSamples(),
		log.FeaturesKey, ds.NumInputDimensions(),
		log.TargetsKey, ds.NumTargetDimensions(),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	trainer := linear.NewTrainer(linear.WithConfig(a.cfg.Training.ToLinear()))
	res, err := trainer.Run(ctx, ds)
	if err != nil {
		return err
	}

	if err := a.evaluate(ctx, res.Model, ds); err != nil {
		return err
	}

	if err := linear.SaveModel(res.Model, a.cfg.Output.ModelPath); err != nil {
		return err
	}
	if a.cfg.Output.LossPlot != "" {
		if err := report.SaveLossCurve(res, a.cfg.Output.LossPlot); err != nil {
			return errors.Wrap(err, "writing loss curve")
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Trained on %d samples (%d inputs, %d targets) in %s\n",
		ds.NumSamples(), ds.NumInputDimensions(), ds.NumTargetDimensions(), res.TrainingTime.Round(time.Millisecond))
	fmt.Fprintf(out, "State: %s after %d epochs, training loss %g", res.State, res.Epochs, res.TrainingLoss)
	if res.HasValidation {
		fmt.Fprintf(out, ", validation loss %g", res.ValidationLoss)
	}
	fmt.Fprintf(out, "\nModel saved to %s\n", a.cfg.Output.ModelPath)
	return nil
}

// evaluate logs the fit of m on the full dataset in original units.
func (a *app) evaluate(ctx context.Context, m *linear.LinearRegression, ds *dataset.DataSet) error {
	y := ds.TargetMatrix()
	pred, err := m.PredictBatchContext(ctx, ds.InputMatrix())
	if err != nil {
		return err
	}
	rmse, err := metrics.RootMeanSquaredError(y, pred)
	if err != nil {
		return err
	}
	mae, err := metrics.MeanAbsoluteError(y, pred)
	if err != nil {
		return err
	}
	fields := []any{log.SamplesKey, ds.NumSamples(), log.RMSEKey, rmse, log.MAEKey, mae}
	// 分散のない目標値ではR²が定義されない
	if r2, err := metrics.R2ScoreMatrix(y, pred); err == nil {
		fields = append(fields, log.R2ScoreKey, r2)
	}
	a.logger.Info("Model evaluated", fields...)
	return nil
}
