// Package linreg trains and applies multivariate linear regression models
// with gradient descent.
//
// A model maps an N-dimensional input vector x to a T-dimensional target
// vector y = W·x + b. Training minimizes the mean squared error with batch
// or mini-batch gradient descent, optionally on min-max scaled data, and
// stops when the monitored loss stops changing or the epoch limit is hit.
//
// # Quick Start
//
//	ds := dataset.New()
//	if err := ds.SetDimensions(1, 1); err != nil {
//	    log.Fatal(err)
//	}
//	if err := ds.Load("data.csv"); err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := linear.NewTrainer(linear.WithMaxEpochs(1000)).Run(ctx, ds)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := linear.SaveModel(res.Model, linear.DefaultModelPath); err != nil {
//	    log.Fatal(err)
//	}
//
//	y, err := res.Model.Predict([]float64{6})
//
// # Packages
//
//   - dataset: labelled samples, CSV and structured file loading, splitting
//   - preprocessing: min-max scaling to [0, 1]
//   - linear: the model, its trainer and persistence
//   - core/model: training state machine and the checksummed model record
//   - core/parallel: row-parallel batch processing
//   - metrics: MSE, RMSE, MAE, R²
//   - report: loss curve plots
//   - pkg/config: YAML configuration of the command line tool
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// The linreg-tool command under cmd/ wraps training, prediction and model
// inspection.
package linreg
