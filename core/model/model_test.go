package model

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/linreg/pkg/errors"
	"github.com/YuminosukeSato/linreg/preprocessing"
)

func TestStateManagerLifecycle(t *testing.T) {
	sm := NewStateManager()
	if sm.State() != StateInitialized {
		t.Fatalf("initial state = %v", sm.State())
	}

	for _, next := range []TrainingState{StateValidating, StateIterating, StateConverged, StateFinalized} {
		if err := sm.Transition(next); err != nil {
			t.Fatalf("Transition(%v): %v", next, err)
		}
	}
	if !sm.State().IsTerminal() {
		t.Error("Finalized should be terminal")
	}

	want := []TrainingState{StateInitialized, StateValidating, StateIterating, StateConverged, StateFinalized}
	got := sm.History()
	if len(got) != len(want) {
		t.Fatalf("History() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("History()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	sm.Reset()
	if sm.State() != StateInitialized || len(sm.History()) != 1 {
		t.Errorf("Reset did not restore initial state: %v", sm.History())
	}
}

func TestStateManagerIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []TrainingState
		bad  TrainingState
	}{
		{"skip validation", nil, StateIterating},
		{"finalize before loop", []TrainingState{StateValidating}, StateFinalized},
		{"leave aborted", []TrainingState{StateValidating, StateAborted}, StateIterating},
		{"converge twice", []TrainingState{StateValidating, StateIterating, StateConverged}, StateMaxEpochsReached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateManager()
			for _, s := range tt.path {
				if err := sm.Transition(s); err != nil {
					t.Fatal(err)
				}
			}
			before := sm.State()
			err := sm.Transition(tt.bad)
			var valueErr *errors.ValueError
			if !errors.As(err, &valueErr) {
				t.Fatalf("expected ValueError, got %v", err)
			}
			if sm.State() != before {
				t.Errorf("state changed on illegal transition: %v", sm.State())
			}
		})
	}
}

func TestStateManagerAbort(t *testing.T) {
	sm := NewStateManager()
	if sm.Abort() {
		t.Error("Abort from Initialized should be rejected")
	}
	_ = sm.Transition(StateValidating)
	_ = sm.Transition(StateIterating)
	if !sm.Abort() || sm.State() != StateAborted {
		t.Errorf("Abort from Iterating failed, state %v", sm.State())
	}
}

func TestTrainingStateString(t *testing.T) {
	if StateMaxEpochsReached.String() != "MaxEpochsReached" {
		t.Errorf("String() = %q", StateMaxEpochsReached.String())
	}
	if TrainingState(99).String() != "TrainingState(99)" {
		t.Errorf("String() = %q", TrainingState(99).String())
	}
}

func sampleRecord() *ModelRecord {
	return &ModelRecord{
		ModelType:      "LinearRegression",
		NumInputs:      2,
		NumTargets:     2,
		ScalingEnabled: true,
		Scaling: &preprocessing.ScalingParameters{
			InputMin:  []float64{0, -1},
			InputMax:  []float64{1, 1},
			TargetMin: []float64{0.1, 5},
			TargetMax: []float64{0.3, 5},
		},
		Weights: []float64{0.1, 1.0 / 3, -2.5e-17, 7},
		Bias:    []float64{0.2, -0.4},
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rec := sampleRecord()
	var buf bytes.Buffer
	if err := EncodeRecord(rec, &buf); err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	if rec.Checksum != "" {
		t.Error("EncodeRecord must not modify its argument")
	}

	got, err := DecodeRecord(&buf, "buffer")
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if got.Format != FormatName || got.FormatVersion != FormatVersion {
		t.Errorf("header = %q v%d", got.Format, got.FormatVersion)
	}
	for i, w := range rec.Weights {
		if got.Weights[i] != w {
			t.Errorf("weight %d = %v, want %v (bit-exact)", i, got.Weights[i], w)
		}
	}
	if got.Scaling.TargetMax[0] != 0.3 {
		t.Errorf("scaling not restored: %+v", got.Scaling)
	}
}

func TestRecordFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := SaveRecord(sampleRecord(), path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRecord(path); err != nil {
		t.Fatal(err)
	}

	_, err := LoadRecord(filepath.Join(t.TempDir(), "missing.json"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected IOError, got %v", err)
	}

	err = SaveRecord(sampleRecord(), filepath.Join(t.TempDir(), "no", "such", "dir", "m.json"))
	if !errors.As(err, &ioErr) {
		t.Errorf("expected IOError on create failure, got %v", err)
	}
}

func encoded(t *testing.T) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeRecord(sampleRecord(), &buf); err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDecodeRecordRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		raw    string
	}{
		{name: "not json", raw: "this is not a model"},
		{name: "foreign format", mutate: func(m map[string]any) { m["format"] = "something-else" }},
		{name: "future version", mutate: func(m map[string]any) { m["format_version"] = 2 }},
		{name: "tampered weights", mutate: func(m map[string]any) { m["weights"].([]any)[0] = 0.5 }},
		{name: "missing checksum", mutate: func(m map[string]any) { delete(m, "checksum") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(tt.raw)
			if tt.mutate != nil {
				m := encoded(t)
				tt.mutate(m)
				var err error
				if data, err = json.Marshal(m); err != nil {
					t.Fatal(err)
				}
			}
			_, err := DecodeRecord(bytes.NewReader(data), "model.json")
			var formatErr *errors.FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("expected FormatError, got %v", err)
			}
		})
	}
}

func TestDecodeRecordShapeMismatch(t *testing.T) {
	// 形状の不一致は正しいチェックサムでも拒否する
	rec := sampleRecord()
	rec.Weights = rec.Weights[:3]
	rec.Format, rec.FormatVersion = FormatName, FormatVersion
	sum, err := ComputeChecksum(rec)
	if err != nil {
		t.Fatal(err)
	}
	rec.Checksum = sum
	data, _ := json.Marshal(rec)

	_, err = DecodeRecord(bytes.NewReader(data), "model.json")
	var formatErr *errors.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if !strings.Contains(err.Error(), "weights") {
		t.Errorf("error should mention weights: %v", err)
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *ModelRecord)
	}{
		{"no type", func(r *ModelRecord) { r.ModelType = "" }},
		{"zero inputs", func(r *ModelRecord) { r.NumInputs = 0 }},
		{"bias length", func(r *ModelRecord) { r.Bias = r.Bias[:1] }},
		{"missing scaling", func(r *ModelRecord) { r.Scaling = nil }},
		{"scaling without flag", func(r *ModelRecord) { r.ScalingEnabled = false }},
		{"scaling dims", func(r *ModelRecord) {
			r.Scaling.InputMin = []float64{0}
			r.Scaling.InputMax = []float64{1}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sampleRecord()
			tt.mutate(rec)
			if err := rec.Validate(); err == nil {
				t.Error("expected validation error")
			}
			if err := EncodeRecord(rec, &bytes.Buffer{}); err == nil {
				t.Error("EncodeRecord should refuse an invalid record")
			}
		})
	}
	if err := sampleRecord().Validate(); err != nil {
		t.Errorf("valid record rejected: %v", err)
	}
}

func TestSaveRecordWriteFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Skip("cannot change directory permissions")
	}
	defer os.Chmod(dir, 0o700)
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	err := SaveRecord(sampleRecord(), filepath.Join(dir, "model.json"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected IOError, got %v", err)
	}
}
