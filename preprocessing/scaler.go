// Package preprocessing は入力・目標ベクトルの min/max スケーリングを提供する
package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/linreg/dataset"
	"github.com/YuminosukeSato/linreg/pkg/errors"
)

// Kind はスケーリング対象のベクトルの種類
type Kind int

const (
	// Input は入力ベクトル（N次元）
	Input Kind = iota
	// Target は目標ベクトル（T次元）
	Target
)

func (k Kind) String() string {
	if k == Target {
		return "target"
	}
	return "input"
}

// ScalingParameters は次元ごとの最小値・最大値
//
// 不変条件: len(InputMin) == len(InputMax) == N,
// len(TargetMin) == len(TargetMax) == T, かつ各次元で min <= max。
type ScalingParameters struct {
	InputMin  []float64 `json:"input_min"`
	InputMax  []float64 `json:"input_max"`
	TargetMin []float64 `json:"target_min"`
	TargetMax []float64 `json:"target_max"`
}

// Clone はディープコピーを返す
func (p *ScalingParameters) Clone() *ScalingParameters {
	if p == nil {
		return nil
	}
	return &ScalingParameters{
		InputMin:  append([]float64(nil), p.InputMin...),
		InputMax:  append([]float64(nil), p.InputMax...),
		TargetMin: append([]float64(nil), p.TargetMin...),
		TargetMax: append([]float64(nil), p.TargetMax...),
	}
}

// Validate は不変条件を検査する
func (p *ScalingParameters) Validate() error {
	if len(p.InputMin) != len(p.InputMax) || len(p.InputMin) == 0 {
		return errors.NewValueError("ScalingParameters.Validate",
			fmt.Sprintf("input min/max lengths differ or are empty (%d, %d)", len(p.InputMin), len(p.InputMax)))
	}
	if len(p.TargetMin) != len(p.TargetMax) || len(p.TargetMin) == 0 {
		return errors.NewValueError("ScalingParameters.Validate",
			fmt.Sprintf("target min/max lengths differ or are empty (%d, %d)", len(p.TargetMin), len(p.TargetMax)))
	}
	if err := checkOrdered("input", p.InputMin, p.InputMax); err != nil {
		return err
	}
	return checkOrdered("target", p.TargetMin, p.TargetMax)
}

func checkOrdered(kind string, lo, hi []float64) error {
	for i := range lo {
		if !errors.IsFinite(lo[i]) || !errors.IsFinite(hi[i]) || lo[i] > hi[i] {
			return errors.NewValueError("ScalingParameters.Validate",
				fmt.Sprintf("%s dimension %d has invalid range [%g, %g]", kind, i, lo[i], hi[i]))
		}
	}
	return nil
}

// MinMaxScaler は各次元を [0,1] に線形変換する
//
// 最小値と最大値が一致する次元（退化次元）は 0 にスケールされ、
// 逆変換では最小値に戻る。
type MinMaxScaler struct {
	params *ScalingParameters
}

// NewMinMaxScaler は未学習のスケーラーを作成する
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// NewMinMaxScalerFromParams は保存済みパラメータから学習済みスケーラーを復元する
func NewMinMaxScalerFromParams(p *ScalingParameters) (*MinMaxScaler, error) {
	if p == nil {
		return nil, errors.NewValueError("NewMinMaxScalerFromParams", "nil scaling parameters")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &MinMaxScaler{params: p.Clone()}, nil
}

// Fit はデータセットから次元ごとの最小値・最大値を計算する
//
// データセットが外部範囲を宣言している場合はそれを採用する。
func (m *MinMaxScaler) Fit(ds *dataset.DataSet) error {
	if ds == nil || ds.NumSamples() == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	if inputs, targets := ds.ExternalRanges(); inputs != nil {
		p := &ScalingParameters{}
		p.InputMin, p.InputMax = splitRanges(inputs)
		p.TargetMin, p.TargetMax = splitRanges(targets)
		if err := p.Validate(); err != nil {
			return err
		}
		m.params = p
		return nil
	}

	p := &ScalingParameters{}
	p.InputMin, p.InputMax = columnRanges(ds.InputMatrix())
	p.TargetMin, p.TargetMax = columnRanges(ds.TargetMatrix())
	if err := p.Validate(); err != nil {
		return err
	}
	m.params = p
	return nil
}

func splitRanges(ranges []dataset.Range) (lo, hi []float64) {
	lo = make([]float64, len(ranges))
	hi = make([]float64, len(ranges))
	for i, r := range ranges {
		lo[i], hi[i] = r.Min, r.Max
	}
	return lo, hi
}

func columnRanges(x *mat.Dense) (lo, hi []float64) {
	r, c := x.Dims()
	lo = make([]float64, c)
	hi = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		lo[j] = floats.Min(col)
		hi[j] = floats.Max(col)
	}
	return lo, hi
}

// IsFitted は Fit 済みかどうかを返す
func (m *MinMaxScaler) IsFitted() bool {
	return m.params != nil
}

// Params はパラメータのコピーを返す。未学習の場合は nil。
func (m *MinMaxScaler) Params() *ScalingParameters {
	return m.params.Clone()
}

func (m *MinMaxScaler) bounds(kind Kind) (lo, hi []float64) {
	if kind == Target {
		return m.params.TargetMin, m.params.TargetMax
	}
	return m.params.InputMin, m.params.InputMax
}

func axisOf(kind Kind) int {
	if kind == Target {
		return 2
	}
	return 1
}

// Scale は v を [0,1] 空間に写した新しいスライスを返す
func (m *MinMaxScaler) Scale(v []float64, kind Kind) ([]float64, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "Scale")
	}
	lo, hi := m.bounds(kind)
	if len(v) != len(lo) {
		return nil, errors.NewDimensionError("MinMaxScaler.Scale", len(lo), len(v), axisOf(kind))
	}
	out := make([]float64, len(v))
	scaleInto(out, v, lo, hi)
	return out, nil
}

// Unscale は Scale の逆変換
func (m *MinMaxScaler) Unscale(v []float64, kind Kind) ([]float64, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "Unscale")
	}
	lo, hi := m.bounds(kind)
	if len(v) != len(lo) {
		return nil, errors.NewDimensionError("MinMaxScaler.Unscale", len(lo), len(v), axisOf(kind))
	}
	out := make([]float64, len(v))
	unscaleInto(out, v, lo, hi)
	return out, nil
}

func scaleInto(dst, v, lo, hi []float64) {
	for i, x := range v {
		span := hi[i] - lo[i]
		if span == 0 {
			dst[i] = 0
			continue
		}
		dst[i] = (x - lo[i]) / span
	}
}

func unscaleInto(dst, v, lo, hi []float64) {
	for i, x := range v {
		dst[i] = x*(hi[i]-lo[i]) + lo[i]
	}
}

// ScaleMatrix は各行に Scale を適用した新しい行列を返す
func (m *MinMaxScaler) ScaleMatrix(x mat.Matrix, kind Kind) (*mat.Dense, error) {
	return m.applyRows(x, kind, "ScaleMatrix", scaleInto)
}

// UnscaleMatrix は各行に Unscale を適用した新しい行列を返す
func (m *MinMaxScaler) UnscaleMatrix(x mat.Matrix, kind Kind) (*mat.Dense, error) {
	return m.applyRows(x, kind, "UnscaleMatrix", unscaleInto)
}

func (m *MinMaxScaler) applyRows(x mat.Matrix, kind Kind, method string, fn func(dst, v, lo, hi []float64)) (*mat.Dense, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", method)
	}
	lo, hi := m.bounds(kind)
	r, c := x.Dims()
	if c != len(lo) {
		return nil, errors.NewDimensionError("MinMaxScaler."+method, len(lo), c, axisOf(kind))
	}
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, x)
		fn(out.RawRowView(i), row, lo, hi)
	}
	return out, nil
}

// String はスケーラーの文字列表現を返す
func (m *MinMaxScaler) String() string {
	if !m.IsFitted() {
		return "MinMaxScaler(fitted=false)"
	}
	return fmt.Sprintf("MinMaxScaler(n_inputs=%d, n_targets=%d)", len(m.params.InputMin), len(m.params.TargetMin))
}
