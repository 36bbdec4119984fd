// Package core は学習済みモデルが満たす最小限のインターフェースを定義する
package core

import "gonum.org/v1/gonum/mat"

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は1つの入力ベクトル（長さN）に対する予測（長さT）を返す
	Predict(input []float64) ([]float64, error)

	// NumInputs は入力次元数N
	NumInputs() int

	// NumTargets は目標次元数T
	NumTargets() int
}

// BatchPredictor は行列単位で予測できるモデルのインターフェース
type BatchPredictor interface {
	Predictor

	// PredictBatch は n×N の行列に対して n×T の予測を返す
	PredictBatch(X mat.Matrix) (*mat.Dense, error)
}
