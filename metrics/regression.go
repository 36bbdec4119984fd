package metrics

import (
	"math"

	"github.com/YuminosukeSato/linreg/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// checkSameShape は2つの行列が空でなく同じ形であることを確認する
func checkSameShape(op string, yTrue, yPred mat.Matrix) (int, int, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, 0, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return 0, 0, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if cTrue != cPred {
		return 0, 0, errors.NewDimensionError(op, cTrue, cPred, 2)
	}
	return rTrue, cTrue, nil
}

// MeanSquaredError は全サンプル・全出力次元にわたる平均二乗誤差を計算する
//
// MSE = (1/(n·T)) * ΣΣ(yTrue - yPred)²
func MeanSquaredError(yTrue, yPred mat.Matrix) (float64, error) {
	r, c, err := checkSameShape("MeanSquaredError", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			diff := yTrue.At(i, j) - yPred.At(i, j)
			sum += diff * diff
		}
	}
	return sum / float64(r*c), nil
}

// RootMeanSquaredError は平方根平均二乗誤差を計算する
func RootMeanSquaredError(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := MeanSquaredError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MeanAbsoluteError は平均絶対誤差を計算する
func MeanAbsoluteError(yTrue, yPred mat.Matrix) (float64, error) {
	r, c, err := checkSameShape("MeanAbsoluteError", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sum += math.Abs(yTrue.At(i, j) - yPred.At(i, j))
		}
	}
	return sum / float64(r*c), nil
}

// R2Score は1出力の決定係数（R²）を計算する
func R2Score(yTrue, yPred mat.Vector) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("R2Score", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("R2Score", n, yPred.Len(), 0)
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := 0; i < n; i++ {
		yTrueVal := yTrue.AtVec(i)
		yPredVal := yPred.AtVec(i)

		tss += (yTrueVal - yMean) * (yTrueVal - yMean)
		rss += (yTrueVal - yPredVal) * (yTrueVal - yPredVal)
	}

	// 全変動が0の場合（すべてのyTrueが同じ値）
	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}

	return 1 - rss/tss, nil
}

// R2ScoreMatrix は各出力次元のR²の平均を返す
// 分散のない出力次元は平均から除外し、すべて除外された場合はエラーを返す
func R2ScoreMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	_, c, err := checkSameShape("R2ScoreMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	trueDense := mat.DenseCopyOf(yTrue)
	predDense := mat.DenseCopyOf(yPred)

	var sum float64
	scored := 0
	for j := 0; j < c; j++ {
		score, err := R2Score(trueDense.ColView(j), predDense.ColView(j))
		if err != nil {
			continue
		}
		sum += score
		scored++
	}
	if scored == 0 {
		return 0, errors.Newf("R2ScoreMatrix: no target column has variance")
	}
	return sum / float64(scored), nil
}
