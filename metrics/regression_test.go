package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/linreg/pkg/errors"
)

func TestMeanSquaredError(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     mat.Matrix
		yPred     mat.Matrix
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     mat.NewDense(3, 1, []float64{1, 2, 3}),
			yPred:     mat.NewDense(3, 1, []float64{1, 2, 3}),
			want:      0.0,
			tolerance: 1e-12,
		},
		{
			name:      "single column",
			yTrue:     mat.NewDense(4, 1, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewDense(4, 1, []float64{1.5, 2.5, 2.5, 3.5}),
			want:      0.25,
			tolerance: 1e-12,
		},
		{
			name: "two targets averaged over every entry",
			yTrue: mat.NewDense(2, 2, []float64{
				1, 10,
				2, 20,
			}),
			yPred: mat.NewDense(2, 2, []float64{
				1, 12,
				2, 18,
			}),
			want:      2.0, // (0 + 4 + 0 + 4) / 4
			tolerance: 1e-12,
		},
		{
			name:    "row mismatch",
			yTrue:   mat.NewDense(3, 1, []float64{1, 2, 3}),
			yPred:   mat.NewDense(2, 1, []float64{1, 2}),
			wantErr: true,
		},
		{
			name:    "column mismatch",
			yTrue:   mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			yPred:   mat.NewDense(2, 1, []float64{1, 2}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MeanSquaredError(tt.yTrue, tt.yPred)

			if (err != nil) != tt.wantErr {
				t.Errorf("MeanSquaredError() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("MeanSquaredError() = %v, want %v (tolerance: %v)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestMeanSquaredErrorDimensionErrorType(t *testing.T) {
	_, err := MeanSquaredError(mat.NewDense(2, 2, nil), mat.NewDense(2, 3, nil))

	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected *DimensionError, got %v", err)
	}
	if dimErr.Axis != 2 {
		t.Errorf("Axis = %d, want 2 (targets)", dimErr.Axis)
	}
}

func TestRootMeanSquaredErrorAndMAE(t *testing.T) {
	yTrue := mat.NewDense(3, 1, []float64{10.0, 20.0, 30.0})
	yPred := mat.NewDense(3, 1, []float64{12.0, 18.0, 33.0})

	rmse, err := RootMeanSquaredError(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Sqrt(17.0 / 3.0); math.Abs(rmse-want) > 1e-12 {
		t.Errorf("RMSE = %v, want %v", rmse, want)
	}

	mae, err := MeanAbsoluteError(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if want := 7.0 / 3.0; math.Abs(mae-want) > 1e-12 {
		t.Errorf("MAE = %v, want %v", mae, want)
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect",
			yTrue: mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			yPred: mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			want:  1.0,
		},
		{
			name:  "mean predictor",
			yTrue: mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			yPred: mat.NewVecDense(4, []float64{2.5, 2.5, 2.5, 2.5}),
			want:  0.0,
		},
		{
			name:    "no variance",
			yTrue:   mat.NewVecDense(3, []float64{5, 5, 5}),
			yPred:   mat.NewVecDense(3, []float64{5, 5, 5}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("R2Score() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestR2ScoreMatrixSkipsConstantTargets(t *testing.T) {
	yTrue := mat.NewDense(4, 2, []float64{
		1, 7,
		2, 7,
		3, 7,
		4, 7,
	})
	yPred := mat.NewDense(4, 2, []float64{
		1, 7,
		2, 7,
		3, 7,
		4, 7,
	})

	got, err := R2ScoreMatrix(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1.0) > 1e-12 {
		t.Errorf("R2ScoreMatrix() = %v, want 1", got)
	}

	if _, err := R2ScoreMatrix(mat.NewDense(2, 1, []float64{3, 3}), mat.NewDense(2, 1, []float64{3, 3})); err == nil {
		t.Error("expected error when no column has variance")
	}
}
