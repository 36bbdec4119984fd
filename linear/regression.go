package linear

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/linreg/core/parallel"
	"github.com/YuminosukeSato/linreg/dataset"
	"github.com/YuminosukeSato/linreg/metrics"
	"github.com/YuminosukeSato/linreg/pkg/errors"
	"github.com/YuminosukeSato/linreg/preprocessing"
)

// ModelType は保存ファイルに記録されるモデル名
const ModelType = "LinearRegression"

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const batchParallelThreshold = 1000

// LinearRegression は学習済みの多出力線形回帰モデル
//
// 重みはスケーリング後の空間で作用し、スケーリングが有効な場合は
// 入力をスケールしてから y = W·x + b を計算し、目標空間に戻す。
// 生成後は不変で、複数のゴルーチンから同時に Predict できる。
type LinearRegression struct {
	weights *mat.Dense    // T×N
	bias    *mat.VecDense // T
	scaler  *preprocessing.MinMaxScaler
}

// NewLinearRegression は重み・バイアス・スケーリングパラメータからモデルを作成する
//
// params が nil の場合はスケーリング無効。引数はコピーされる。
func NewLinearRegression(weights mat.Matrix, bias mat.Vector, params *preprocessing.ScalingParameters) (*LinearRegression, error) {
	if weights == nil || bias == nil {
		return nil, errors.NewValueError("NewLinearRegression", "weights and bias are required")
	}
	t, n := weights.Dims()
	if t == 0 || n == 0 {
		return nil, errors.NewModelError("NewLinearRegression", "empty weights", errors.ErrEmptyData)
	}
	if bias.Len() != t {
		return nil, errors.NewDimensionError("NewLinearRegression", t, bias.Len(), 2)
	}

	m := &LinearRegression{
		weights: mat.DenseCopyOf(weights),
		bias:    mat.VecDenseCopyOf(bias),
	}
	if params != nil {
		if len(params.InputMin) != n {
			return nil, errors.NewDimensionError("NewLinearRegression", n, len(params.InputMin), 1)
		}
		if len(params.TargetMin) != t {
			return nil, errors.NewDimensionError("NewLinearRegression", t, len(params.TargetMin), 2)
		}
		scaler, err := preprocessing.NewMinMaxScalerFromParams(params)
		if err != nil {
			return nil, err
		}
		m.scaler = scaler
	}
	return m, nil
}

// NumInputs は入力次元数N
func (m *LinearRegression) NumInputs() int {
	_, n := m.weights.Dims()
	return n
}

// NumTargets は目標次元数T
func (m *LinearRegression) NumTargets() int {
	t, _ := m.weights.Dims()
	return t
}

// Predict は入力データに対する予測を行う
func (m *LinearRegression) Predict(input []float64) ([]float64, error) {
	n := m.NumInputs()
	if len(input) != n {
		return nil, errors.NewDimensionError("LinearRegression.Predict", n, len(input), 1)
	}
	out := make([]float64, m.NumTargets())
	if err := m.predictInto(out, input); err != nil {
		return nil, err
	}
	return out, nil
}

// predictInto は長さ N の input に対する予測を dst（長さ T）に書き込む
func (m *LinearRegression) predictInto(dst, input []float64) error {
	x := input
	if m.scaler != nil {
		var err error
		if x, err = m.scaler.Scale(input, preprocessing.Input); err != nil {
			return err
		}
	}

	y := mat.NewVecDense(len(dst), dst)
	y.MulVec(m.weights, mat.NewVecDense(len(x), x))
	y.AddVec(y, m.bias)

	if m.scaler != nil {
		unscaled, err := m.scaler.Unscale(dst, preprocessing.Target)
		if err != nil {
			return err
		}
		copy(dst, unscaled)
	}
	return nil
}

// PredictBatch は n×N の行列の各行を予測し、n×T の行列を返す
func (m *LinearRegression) PredictBatch(X mat.Matrix) (*mat.Dense, error) {
	return m.PredictBatchContext(context.Background(), X)
}

// PredictBatchContext は PredictBatch のキャンセル可能版
//
// 行数が閾値を超える場合は行範囲ごとにゴルーチンへ分割する。
func (m *LinearRegression) PredictBatchContext(ctx context.Context, X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, errors.NewModelError("LinearRegression.PredictBatch", "empty data", errors.ErrEmptyData)
	}
	if c != m.NumInputs() {
		return nil, errors.NewDimensionError("LinearRegression.PredictBatch", m.NumInputs(), c, 1)
	}

	out := mat.NewDense(r, m.NumTargets(), nil)
	err := parallel.ParallelizeWithThreshold(ctx, r, batchParallelThreshold, func(ctx context.Context, start, end int) error {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			// 各チャンクは互いに素な行だけに書き込む
			if err := m.predictInto(out.RawRowView(i), row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Score はデータセットに対する決定係数（R²、目標次元の平均）を計算する
func (m *LinearRegression) Score(ds *dataset.DataSet) (float64, error) {
	if ds == nil || ds.NumSamples() == 0 {
		return 0, errors.NewModelError("LinearRegression.Score", "empty data", errors.ErrEmptyData)
	}
	if ds.NumTargetDimensions() != m.NumTargets() {
		return 0, errors.NewDimensionError("LinearRegression.Score", m.NumTargets(), ds.NumTargetDimensions(), 2)
	}
	yPred, err := m.PredictBatch(ds.InputMatrix())
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(ds.TargetMatrix(), yPred)
}

// Weights は学習された重み行列（T×N）のコピーを返す
func (m *LinearRegression) Weights() *mat.Dense {
	return mat.DenseCopyOf(m.weights)
}

// Bias は学習されたバイアスのコピーを返す
func (m *LinearRegression) Bias() []float64 {
	return append([]float64(nil), m.bias.RawVector().Data...)
}

// ScalingEnabled はスケーリングが有効かどうかを返す
func (m *LinearRegression) ScalingEnabled() bool {
	return m.scaler != nil
}

// ScalingParams はスケーリングパラメータのコピーを返す。無効な場合は nil。
func (m *LinearRegression) ScalingParams() *preprocessing.ScalingParameters {
	if m.scaler == nil {
		return nil
	}
	return m.scaler.Params()
}

// String はモデルの文字列表現を返す
func (m *LinearRegression) String() string {
	return fmt.Sprintf("LinearRegression(n_inputs=%d, n_targets=%d, scaling=%t)",
		m.NumInputs(), m.NumTargets(), m.ScalingEnabled())
}
