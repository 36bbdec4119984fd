package model

import (
	"encoding/json"
	"fmt"

	"github.com/YuminosukeSato/linreg/pkg/errors"
	"github.com/YuminosukeSato/linreg/preprocessing"
)

const (
	// FormatName は自己記述型モデルファイルの識別子
	FormatName = "linreg-model"
	// FormatVersion は現在のモデルファイルのバージョン
	FormatVersion = 1
)

// ModelRecord はモデルの重みを表す構造体（シリアライゼーション用）
type ModelRecord struct {
	// Format は常に FormatName
	Format string `json:"format"`

	// FormatVersion は互換性チェック用のバージョン
	FormatVersion int `json:"format_version"`

	// ModelType はモデルの種類（LinearRegression）
	ModelType string `json:"model_type"`

	NumInputs  int `json:"num_inputs"`
	NumTargets int `json:"num_targets"`

	// ScalingEnabled が true の場合 Scaling は必須
	ScalingEnabled bool                             `json:"scaling_enabled"`
	Scaling        *preprocessing.ScalingParameters `json:"scaling,omitempty"`

	// Weights は T×N の重み行列（行優先）
	Weights []float64 `json:"weights"`

	// Bias は長さ T のバイアス
	Bias []float64 `json:"bias"`

	// Checksum は Checksum を空にしてエンコードしたレコードの xxhash64（16進）
	Checksum string `json:"checksum"`
}

// ToJSON はModelRecordをJSON形式にシリアライズ
func (r *ModelRecord) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON はJSON形式からModelRecordをデシリアライズ
func (r *ModelRecord) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}

// Validate はModelRecordの形状の整合性を検証
func (r *ModelRecord) Validate() error {
	if r.ModelType == "" {
		return errors.NewValueError("ModelRecord.Validate", "model_type is required")
	}
	if r.NumInputs < 1 || r.NumTargets < 1 {
		return errors.NewValueError("ModelRecord.Validate",
			fmt.Sprintf("dimensions must be positive (num_inputs=%d, num_targets=%d)", r.NumInputs, r.NumTargets))
	}
	if len(r.Weights) != r.NumInputs*r.NumTargets {
		return errors.NewValueError("ModelRecord.Validate",
			fmt.Sprintf("weights has %d values, want %d", len(r.Weights), r.NumInputs*r.NumTargets))
	}
	if len(r.Bias) != r.NumTargets {
		return errors.NewValueError("ModelRecord.Validate",
			fmt.Sprintf("bias has %d values, want %d", len(r.Bias), r.NumTargets))
	}

	if !r.ScalingEnabled {
		if r.Scaling != nil {
			return errors.NewValueError("ModelRecord.Validate", "scaling parameters present but scaling is disabled")
		}
		return nil
	}
	if r.Scaling == nil {
		return errors.NewValueError("ModelRecord.Validate", "scaling enabled but parameters are missing")
	}
	if err := r.Scaling.Validate(); err != nil {
		return err
	}
	if len(r.Scaling.InputMin) != r.NumInputs || len(r.Scaling.TargetMin) != r.NumTargets {
		return errors.NewValueError("ModelRecord.Validate", "scaling parameters do not match model dimensions")
	}
	return nil
}

// Clone はModelRecordのディープコピーを作成
func (r *ModelRecord) Clone() *ModelRecord {
	clone := *r
	clone.Weights = append([]float64(nil), r.Weights...)
	clone.Bias = append([]float64(nil), r.Bias...)
	clone.Scaling = r.Scaling.Clone()
	return &clone
}
