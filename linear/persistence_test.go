package linear

import (
	"bytes"
	"context"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/linreg/pkg/errors"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, scaling := range []bool{true, false} {
		rng := rand.New(rand.NewPCG(11, 12))
		ds := randomDataSet(t, rng, 60, 4, 3)
		res, err := quietTrainer(WithScaling(scaling), WithMaxEpochs(200)).Run(context.Background(), ds)
		if err != nil {
			t.Fatal(err)
		}

		path := filepath.Join(t.TempDir(), DefaultModelPath)
		if err := SaveModel(res.Model, path); err != nil {
			t.Fatalf("SaveModel: %v", err)
		}
		loaded, err := LoadModel(path)
		if err != nil {
			t.Fatalf("LoadModel: %v", err)
		}

		if loaded.ScalingEnabled() != scaling {
			t.Errorf("ScalingEnabled = %t, want %t", loaded.ScalingEnabled(), scaling)
		}
		if loaded.NumInputs() != 4 || loaded.NumTargets() != 3 {
			t.Errorf("loaded shape %dx%d", loaded.NumTargets(), loaded.NumInputs())
		}

		input := make([]float64, 4)
		for i := 0; i < 100; i++ {
			for j := range input {
				input[j] = rng.Float64()*40 - 20
			}
			want, _ := res.Model.Predict(input)
			got, err := loaded.Predict(input)
			if err != nil {
				t.Fatal(err)
			}
			for k := range want {
				if math.Abs(got[k]-want[k]) > 1e-12 {
					t.Fatalf("scaling=%t input %v: got %v, want %v", scaling, input, got, want)
				}
			}
		}
	}
}

func TestSaveModelToWriterIsBitExact(t *testing.T) {
	m := testModel(t, nil)
	var buf bytes.Buffer
	if err := SaveModelToWriter(m, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"format": "linreg-model"`) {
		t.Errorf("model file is not self-describing:\n%s", buf.String())
	}

	loaded, err := LoadModelFromReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	want := m.ToRecord()
	got := loaded.ToRecord()
	for i := range want.Weights {
		if want.Weights[i] != got.Weights[i] {
			t.Errorf("weight %d: %v != %v", i, got.Weights[i], want.Weights[i])
		}
	}
	for i := range want.Bias {
		if want.Bias[i] != got.Bias[i] {
			t.Errorf("bias %d: %v != %v", i, got.Bias[i], want.Bias[i])
		}
	}
}

func TestLoadModelErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadModel(filepath.Join(dir, "missing.json"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected IOError, got %v", err)
	}

	tests := map[string]string{
		"garbage":       "not a model",
		"foreign":       `{"format": "other", "format_version": 1}`,
		"wrong version": `{"format": "linreg-model", "format_version": 99}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := LoadModel(path)
			var formatErr *errors.FormatError
			if !errors.As(err, &formatErr) {
				t.Errorf("expected FormatError, got %v", err)
			}
		})
	}

	t.Run("tampered", func(t *testing.T) {
		var buf bytes.Buffer
		if err := SaveModelToWriter(testModel(t, nil), &buf); err != nil {
			t.Fatal(err)
		}
		tampered := strings.Replace(buf.String(), `"scaling_enabled": false`, `"scaling_enabled": true`, 1)
		_, err := LoadModelFromReader(strings.NewReader(tampered))
		var formatErr *errors.FormatError
		if !errors.As(err, &formatErr) {
			t.Errorf("expected FormatError, got %v", err)
		}
	})
}

func TestSaveModelErrors(t *testing.T) {
	err := SaveModel(testModel(t, nil), filepath.Join(t.TempDir(), "missing", "dir", "model.json"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected IOError, got %v", err)
	}
	if err := SaveModel(nil, "unused.json"); err == nil {
		t.Error("expected error for nil model")
	}
}
