package linear

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/linreg/core/model"
	"github.com/YuminosukeSato/linreg/pkg/errors"
	"github.com/YuminosukeSato/linreg/pkg/log"
)

// DefaultModelPath はモデルの保存先が指定されなかった場合のファイル名
const DefaultModelPath = "linear-regression-model.json"

// ToRecord はモデルを保存用のレコードに変換する
func (m *LinearRegression) ToRecord() *model.ModelRecord {
	t, n := m.weights.Dims()
	rec := &model.ModelRecord{
		ModelType:      ModelType,
		NumInputs:      n,
		NumTargets:     t,
		ScalingEnabled: m.ScalingEnabled(),
		Scaling:        m.ScalingParams(),
		Weights:        make([]float64, 0, t*n),
		Bias:           m.Bias(),
	}
	for i := 0; i < t; i++ {
		rec.Weights = append(rec.Weights, m.weights.RawRowView(i)...)
	}
	return rec
}

// FromRecord はレコードからモデルを復元する
func FromRecord(rec *model.ModelRecord) (*LinearRegression, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.ModelType != ModelType {
		return nil, errors.NewValueError("FromRecord", fmt.Sprintf("unsupported model type %q", rec.ModelType))
	}
	weights := mat.NewDense(rec.NumTargets, rec.NumInputs, append([]float64(nil), rec.Weights...))
	bias := mat.NewVecDense(rec.NumTargets, append([]float64(nil), rec.Bias...))
	if !rec.ScalingEnabled {
		return NewLinearRegression(weights, bias, nil)
	}
	return NewLinearRegression(weights, bias, rec.Scaling)
}

// SaveModel はモデルをファイルに保存する
//
// 使用例:
//
//	res, err := linear.NewTrainer().Run(ctx, ds)
//	// ...
//	err = linear.SaveModel(res.Model, linear.DefaultModelPath)
func SaveModel(m *LinearRegression, path string) error {
	if m == nil {
		return errors.NewValueError("SaveModel", "nil model")
	}
	if err := model.SaveRecord(m.ToRecord(), path); err != nil {
		return err
	}
	log.Named("linear").Debug("Model saved",
		log.OperationKey, log.OperationSave,
		log.PathKey, path,
		log.FeaturesKey, m.NumInputs(),
		log.TargetsKey, m.NumTargets(),
	)
	return nil
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(m *LinearRegression, w io.Writer) error {
	if m == nil {
		return errors.NewValueError("SaveModelToWriter", "nil model")
	}
	return model.EncodeRecord(m.ToRecord(), w)
}

// LoadModel はファイルからモデルを読み込む
func LoadModel(path string) (*LinearRegression, error) {
	rec, err := model.LoadRecord(path)
	if err != nil {
		return nil, err
	}
	m, err := FromRecord(rec)
	if err != nil {
		return nil, errors.WrapFormatError("LoadModel", path, 0, "cannot rebuild model", err)
	}
	log.Named("linear").Debug("Model loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.FeaturesKey, m.NumInputs(),
		log.TargetsKey, m.NumTargets(),
	)
	return m, nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(r io.Reader) (*LinearRegression, error) {
	rec, err := model.DecodeRecord(r, "<reader>")
	if err != nil {
		return nil, err
	}
	m, err := FromRecord(rec)
	if err != nil {
		return nil, errors.WrapFormatError("LoadModelFromReader", "<reader>", 0, "cannot rebuild model", err)
	}
	return m, nil
}
