package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/linreg/dataset"
	"github.com/YuminosukeSato/linreg/pkg/errors"
)

func newDataSet(t *testing.T, rows [][2][]float64) *dataset.DataSet {
	t.Helper()
	ds := dataset.New()
	for _, r := range rows {
		if err := ds.AddSample(r[0], r[1]); err != nil {
			t.Fatalf("AddSample: %v", err)
		}
	}
	return ds
}

func approxEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestMinMaxScalerFit(t *testing.T) {
	ds := newDataSet(t, [][2][]float64{
		{{1, 7}, {10}},
		{{3, 7}, {30}},
		{{2, 7}, {20}},
	})

	s := NewMinMaxScaler()
	if err := s.Fit(ds); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	p := s.Params()
	if !approxEqual(p.InputMin, []float64{1, 7}, 0) || !approxEqual(p.InputMax, []float64{3, 7}, 0) {
		t.Errorf("input range = %v..%v", p.InputMin, p.InputMax)
	}
	if !approxEqual(p.TargetMin, []float64{10}, 0) || !approxEqual(p.TargetMax, []float64{30}, 0) {
		t.Errorf("target range = %v..%v", p.TargetMin, p.TargetMax)
	}

	// Params はコピーを返す
	p.InputMin[0] = -100
	if s.Params().InputMin[0] != 1 {
		t.Error("Params must return a copy")
	}
}

func TestMinMaxScalerScale(t *testing.T) {
	ds := newDataSet(t, [][2][]float64{
		{{1, 7}, {10}},
		{{3, 7}, {30}},
	})
	s := NewMinMaxScaler()
	if err := s.Fit(ds); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   []float64
		kind Kind
		want []float64
	}{
		{"lower bound", []float64{1, 7}, Input, []float64{0, 0}},
		{"upper bound", []float64{3, 7}, Input, []float64{1, 0}},
		{"midpoint", []float64{2, 7}, Input, []float64{0.5, 0}},
		{"out of range", []float64{5, 100}, Input, []float64{2, 0}},
		{"target", []float64{25}, Target, []float64{0.75}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Scale(tt.in, tt.kind)
			if err != nil {
				t.Fatalf("Scale: %v", err)
			}
			if !approxEqual(got, tt.want, 1e-12) {
				t.Errorf("Scale(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMinMaxScalerRoundTrip(t *testing.T) {
	ds := newDataSet(t, [][2][]float64{
		{{-4, 0.001}, {1e6, -3}},
		{{9, 0.002}, {2e6, 5}},
	})
	s := NewMinMaxScaler()
	if err := s.Fit(ds); err != nil {
		t.Fatal(err)
	}

	for _, v := range [][]float64{{-4, 0.001}, {0, 0.0015}, {9, 0.002}, {20, -1}} {
		scaled, err := s.Scale(v, Input)
		if err != nil {
			t.Fatal(err)
		}
		back, err := s.Unscale(scaled, Input)
		if err != nil {
			t.Fatal(err)
		}
		if !approxEqual(back, v, 1e-9) {
			t.Errorf("Unscale(Scale(%v)) = %v", v, back)
		}
	}
}

func TestMinMaxScalerDegenerate(t *testing.T) {
	ds := newDataSet(t, [][2][]float64{
		{{5}, {2}},
		{{5}, {2}},
	})
	s := NewMinMaxScaler()
	if err := s.Fit(ds); err != nil {
		t.Fatal(err)
	}

	scaled, _ := s.Scale([]float64{123}, Input)
	if scaled[0] != 0 {
		t.Errorf("degenerate scale = %v, want 0", scaled[0])
	}
	back, _ := s.Unscale([]float64{0.7}, Target)
	if back[0] != 2 {
		t.Errorf("degenerate unscale = %v, want 2", back[0])
	}
	if math.IsNaN(scaled[0]) || math.IsInf(scaled[0], 0) {
		t.Error("degenerate dimension produced non-finite value")
	}
}

func TestMinMaxScalerErrors(t *testing.T) {
	s := NewMinMaxScaler()

	_, err := s.Scale([]float64{1}, Input)
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	if err := s.Fit(dataset.New()); err == nil {
		t.Error("expected error fitting empty dataset")
	}

	ds := newDataSet(t, [][2][]float64{{{1, 2}, {3}}})
	if err := s.Fit(ds); err != nil {
		t.Fatal(err)
	}
	_, err = s.Scale([]float64{1}, Input)
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
	if dimErr.Expected != 2 || dimErr.Got != 1 {
		t.Errorf("DimensionError = %+v", dimErr)
	}
	if _, err := s.Unscale([]float64{1, 2}, Target); !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError for target, got %v", err)
	}
}

func TestMinMaxScalerExternalRanges(t *testing.T) {
	ds := newDataSet(t, [][2][]float64{
		{{1}, {1}},
		{{2}, {2}},
	})
	if err := ds.SetExternalRanges([]dataset.Range{{Min: 0, Max: 10}}, []dataset.Range{{Min: -2, Max: 2}}); err != nil {
		t.Fatal(err)
	}
	s := NewMinMaxScaler()
	if err := s.Fit(ds); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Scale([]float64{5}, Input)
	if got[0] != 0.5 {
		t.Errorf("Scale with external range = %v, want 0.5", got[0])
	}
	got, _ = s.Scale([]float64{1}, Target)
	if got[0] != 0.75 {
		t.Errorf("target scale with external range = %v, want 0.75", got[0])
	}
}

func TestMinMaxScalerMatrix(t *testing.T) {
	s, err := NewMinMaxScalerFromParams(&ScalingParameters{
		InputMin:  []float64{0, 10},
		InputMax:  []float64{2, 20},
		TargetMin: []float64{0},
		TargetMax: []float64{1},
	})
	if err != nil {
		t.Fatal(err)
	}

	x := mat.NewDense(2, 2, []float64{1, 10, 2, 15})
	scaled, err := s.ScaleMatrix(x, Input)
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(2, 2, []float64{0.5, 0, 1, 0.5})
	if !mat.EqualApprox(scaled, want, 1e-12) {
		t.Errorf("ScaleMatrix = %v", mat.Formatted(scaled))
	}

	back, err := s.UnscaleMatrix(scaled, Input)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(back, x, 1e-12) {
		t.Errorf("UnscaleMatrix = %v", mat.Formatted(back))
	}

	if _, err := s.ScaleMatrix(mat.NewDense(1, 3, nil), Input); err == nil {
		t.Error("expected dimension error")
	}
}

func TestNewMinMaxScalerFromParamsValidation(t *testing.T) {
	tests := []struct {
		name   string
		params *ScalingParameters
	}{
		{"nil", nil},
		{"length mismatch", &ScalingParameters{InputMin: []float64{0}, InputMax: []float64{1, 2}, TargetMin: []float64{0}, TargetMax: []float64{1}}},
		{"min above max", &ScalingParameters{InputMin: []float64{3}, InputMax: []float64{1}, TargetMin: []float64{0}, TargetMax: []float64{1}}},
		{"nan", &ScalingParameters{InputMin: []float64{0}, InputMax: []float64{1}, TargetMin: []float64{math.NaN()}, TargetMax: []float64{1}}},
		{"empty targets", &ScalingParameters{InputMin: []float64{0}, InputMax: []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinMaxScalerFromParams(tt.params)
			var valueErr *errors.ValueError
			if !errors.As(err, &valueErr) {
				t.Errorf("expected ValueError, got %v", err)
			}
		})
	}
}
