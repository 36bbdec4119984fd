// Package dataset holds labeled regression samples: fixed-length input
// vectors paired with fixed-length target vectors.
//
// A DataSet is filled by Load (CSV or the structured regression data format)
// or by AddSample, and is treated as read-only once handed to a trainer.
// Split returns independent copies, so partitioning never mutates the
// caller's data.
package dataset

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/linreg/pkg/errors"
)

// DefaultSeed は乱数生成器が渡されなかった場合に使うシード値
const DefaultSeed uint64 = 42

// NewRNG はシードから決定的なPCG乱数生成器を作成する
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Sample は1つの観測 (入力ベクトル, 目標ベクトル)
type Sample struct {
	Input  []float64
	Target []float64
}

func (s Sample) clone() Sample {
	return Sample{
		Input:  append([]float64(nil), s.Input...),
		Target: append([]float64(nil), s.Target...),
	}
}

// Range は1次元の [Min, Max] 範囲
type Range struct {
	Min float64
	Max float64
}

// DataSet はすべてのサンプルで次元が共通なサンプル列
type DataSet struct {
	name       string
	infoText   string
	numInputs  int
	numTargets int
	samples    []Sample

	// 構造化フォーマットで宣言された外部スケーリング範囲（任意）
	inputRanges  []Range
	targetRanges []Range
}

// New は空のDataSetを作成する
func New() *DataSet {
	return &DataSet{}
}

// SetDimensions は入力次元数Nと目標次元数Tを宣言する
//
// 既に異なる次元のサンプルが存在する場合はDimensionErrorを返す。
func (d *DataSet) SetDimensions(numInputs, numTargets int) error {
	if numInputs < 1 {
		return errors.NewInvalidConfigError("num_input_dimensions", "must be at least 1", numInputs)
	}
	if numTargets < 1 {
		return errors.NewInvalidConfigError("num_target_dimensions", "must be at least 1", numTargets)
	}
	if len(d.samples) > 0 {
		if d.numInputs != numInputs {
			return errors.NewDimensionError("DataSet.SetDimensions", d.numInputs, numInputs, 1)
		}
		if d.numTargets != numTargets {
			return errors.NewDimensionError("DataSet.SetDimensions", d.numTargets, numTargets, 2)
		}
	}
	if d.numInputs != numInputs || d.numTargets != numTargets {
		d.inputRanges, d.targetRanges = nil, nil
	}
	d.numInputs = numInputs
	d.numTargets = numTargets
	return nil
}

// AddSample はサンプルを追加する。スライスはコピーされる。
//
// 次元が未宣言の場合は最初のサンプルが次元を決める。
func (d *DataSet) AddSample(input, target []float64) error {
	if d.numInputs == 0 && d.numTargets == 0 {
		if err := d.SetDimensions(len(input), len(target)); err != nil {
			return err
		}
	}
	if len(input) != d.numInputs {
		return errors.NewDimensionError("DataSet.AddSample", d.numInputs, len(input), 1)
	}
	if len(target) != d.numTargets {
		return errors.NewDimensionError("DataSet.AddSample", d.numTargets, len(target), 2)
	}
	d.samples = append(d.samples, Sample{Input: input, Target: target}.clone())
	return nil
}

// NumSamples returns the number of samples.
func (d *DataSet) NumSamples() int { return len(d.samples) }

// NumInputDimensions returns N.
func (d *DataSet) NumInputDimensions() int { return d.numInputs }

// NumTargetDimensions returns T.
func (d *DataSet) NumTargetDimensions() int { return d.numTargets }

// Name returns the dataset name recorded in the structured format.
func (d *DataSet) Name() string { return d.name }

// SetName sets the dataset name.
func (d *DataSet) SetName(name string) { d.name = name }

// InfoText returns the free-form description recorded in the structured format.
func (d *DataSet) InfoText() string { return d.infoText }

// SetInfoText sets the free-form description.
func (d *DataSet) SetInfoText(text string) { d.infoText = text }

// Sample returns a copy of the i-th sample.
func (d *DataSet) Sample(i int) Sample {
	return d.samples[i].clone()
}

// Samples returns a deep copy of all samples.
func (d *DataSet) Samples() []Sample {
	out := make([]Sample, len(d.samples))
	for i, s := range d.samples {
		out[i] = s.clone()
	}
	return out
}

// ExternalRanges returns the declared input and target ranges, or nil, nil
// when the dataset does not carry them.
func (d *DataSet) ExternalRanges() (inputs, targets []Range) {
	if len(d.inputRanges) == 0 {
		return nil, nil
	}
	return append([]Range(nil), d.inputRanges...), append([]Range(nil), d.targetRanges...)
}

// SetExternalRanges declares fixed scaling ranges, one per input and target
// dimension. Passing nil, nil removes them.
func (d *DataSet) SetExternalRanges(inputs, targets []Range) error {
	if inputs == nil && targets == nil {
		d.inputRanges, d.targetRanges = nil, nil
		return nil
	}
	if len(inputs) != d.numInputs {
		return errors.NewDimensionError("DataSet.SetExternalRanges", d.numInputs, len(inputs), 1)
	}
	if len(targets) != d.numTargets {
		return errors.NewDimensionError("DataSet.SetExternalRanges", d.numTargets, len(targets), 2)
	}
	for _, r := range append(append([]Range(nil), inputs...), targets...) {
		if !(r.Min <= r.Max) {
			return errors.NewInvalidConfigError("external_ranges", "min must not exceed max", r)
		}
	}
	d.inputRanges = append([]Range(nil), inputs...)
	d.targetRanges = append([]Range(nil), targets...)
	return nil
}

// Clone returns a deep copy of the dataset.
func (d *DataSet) Clone() *DataSet {
	c := d.emptyLike()
	c.samples = d.Samples()
	return c
}

// emptyLike returns a dataset with the same metadata and no samples.
func (d *DataSet) emptyLike() *DataSet {
	return &DataSet{
		name:         d.name,
		infoText:     d.infoText,
		numInputs:    d.numInputs,
		numTargets:   d.numTargets,
		inputRanges:  append([]Range(nil), d.inputRanges...),
		targetRanges: append([]Range(nil), d.targetRanges...),
	}
}

// dimensionsOnly returns an empty dataset that keeps the declared
// dimensions and nothing else.
func (d *DataSet) dimensionsOnly() *DataSet {
	return &DataSet{numInputs: d.numInputs, numTargets: d.numTargets}
}

// InputMatrix は入力を n×N の行列として返す（コピー）。空の場合はnil。
func (d *DataSet) InputMatrix() *mat.Dense {
	if len(d.samples) == 0 || d.numInputs == 0 {
		return nil
	}
	m := mat.NewDense(len(d.samples), d.numInputs, nil)
	for i, s := range d.samples {
		m.SetRow(i, s.Input)
	}
	return m
}

// TargetMatrix は目標を n×T の行列として返す（コピー）。空の場合はnil。
func (d *DataSet) TargetMatrix() *mat.Dense {
	if len(d.samples) == 0 || d.numTargets == 0 {
		return nil
	}
	m := mat.NewDense(len(d.samples), d.numTargets, nil)
	for i, s := range d.samples {
		m.SetRow(i, s.Target)
	}
	return m
}

// Split partitions the samples into a training and a validation set without
// replacement. fraction is the share assigned to validation: the validation
// size is floor(n*fraction) clamped to [1, n-1] when fraction > 0, so the
// training set always keeps at least one sample.
//
// When randomize is true the samples are shuffled with rng first; a nil rng
// uses a generator seeded with DefaultSeed. The receiver is not modified.
func (d *DataSet) Split(fraction float64, randomize bool, rng *rand.Rand) (train, validation *DataSet, err error) {
	if math.IsNaN(fraction) || fraction < 0 || fraction >= 1 {
		return nil, nil, errors.NewInvalidConfigError("validation_fraction", "must be in [0, 1)", fraction)
	}
	n := len(d.samples)
	if fraction > 0 && n < 2 {
		return nil, nil, errors.NewInsufficientDataError("DataSet.Split", 2, n)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if randomize {
		if rng == nil {
			rng = NewRNG(DefaultSeed)
		}
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	numValidation := 0
	if fraction > 0 {
		numValidation = int(math.Floor(float64(n) * fraction))
		numValidation = max(1, min(numValidation, n-1))
	}

	train = d.emptyLike()
	validation = d.emptyLike()
	numTrain := n - numValidation
	train.samples = make([]Sample, 0, numTrain)
	validation.samples = make([]Sample, 0, numValidation)
	for i, idx := range order {
		if i < numTrain {
			train.samples = append(train.samples, d.samples[idx].clone())
		} else {
			validation.samples = append(validation.samples, d.samples[idx].clone())
		}
	}
	return train, validation, nil
}
