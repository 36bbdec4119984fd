package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/linreg/pkg/errors"
)

// StructuredHeader is the first line of a structured regression data file.
const StructuredHeader = "GRT_LABELLED_REGRESSION_DATA_FILE_V1.0"

const (
	keyDatasetName       = "DatasetName"
	keyInfoText          = "InfoText"
	keyNumInputs         = "NumInputDimensions"
	keyNumTargets        = "NumTargetDimensions"
	keyTotalExamples     = "TotalNumTrainingExamples"
	keyUseExternalRanges = "UseExternalRanges"
	keyExternalInputs    = "ExternalInputRanges"
	keyExternalTargets   = "ExternalTargetRanges"
	keyRegressionData    = "RegressionData"

	notSet = "NOT_SET"

	maxLineBytes = 16 << 20
)

// Load reads samples from path, replacing the current contents on success.
//
// Files whose first non-blank line is StructuredHeader are parsed as the
// structured format and their declared dimensions override SetDimensions.
// Everything else is parsed as CSV (N input columns followed by T target
// columns), which requires SetDimensions to have been called first.
// Paths ending in ".gz" are decompressed transparently.
//
// On failure the dataset is left unchanged.
func (d *DataSet) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewIOError("DataSet.Load", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return errors.WrapFormatError("DataSet.Load", path, 0, "invalid gzip stream", err)
		}
		defer gz.Close()
		r = gz
	}
	return d.LoadFromReader(r, path)
}

// LoadFromReader is Load for an already opened stream; name is used in
// error messages only.
func (d *DataSet) LoadFromReader(r io.Reader, name string) error {
	lr := newLineReader(r, name)

	first, ok := lr.next()
	if !ok {
		if err := lr.err(); err != nil {
			return err
		}
		// 空ファイル: 宣言済み次元だけを残して空にする
		if d.numInputs == 0 || d.numTargets == 0 {
			return errors.NewMissingDimensionsError(name)
		}
		*d = *d.dimensionsOnly()
		return nil
	}

	var (
		loaded *DataSet
		err    error
	)
	if strings.HasPrefix(first, "GRT_LABELLED_REGRESSION_DATA_FILE") {
		if first != StructuredHeader {
			return errors.NewFormatError("DataSet.Load", name, lr.line, fmt.Sprintf("unsupported file version %q", first))
		}
		loaded, err = parseStructured(lr)
	} else {
		if d.numInputs == 0 || d.numTargets == 0 {
			return errors.NewMissingDimensionsError(name)
		}
		loaded, err = parseCSV(lr, first, d.dimensionsOnly())
	}
	if err != nil {
		return err
	}
	*d = *loaded
	return nil
}

// LoadInputs reads a CSV file of input vectors only (numInputs columns per
// row) into an n×numInputs matrix. ".gz" files are decompressed.
func LoadInputs(path string, numInputs int) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("dataset.LoadInputs", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.WrapFormatError("dataset.LoadInputs", path, 0, "invalid gzip stream", err)
		}
		defer gz.Close()
		r = gz
	}
	return ReadInputs(r, path, numInputs)
}

// ReadInputs is LoadInputs for an already opened stream.
func ReadInputs(r io.Reader, name string, numInputs int) (*mat.Dense, error) {
	if numInputs < 1 {
		return nil, errors.NewInvalidConfigError("num_input_dimensions", "must be at least 1", numInputs)
	}
	lr := newLineReader(r, name)
	var data []float64
	rows := 0
	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		tokens := strings.Split(line, ",")
		if len(tokens) != numInputs {
			cause := errors.NewDimensionError("dataset.ReadInputs", numInputs, len(tokens), 1)
			return nil, errors.WrapFormatError("dataset.ReadInputs", name, lr.line, "wrong column count", cause)
		}
		values, err := lr.parseValues(tokens)
		if err != nil {
			return nil, err
		}
		data = append(data, values...)
		rows++
	}
	if err := lr.err(); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, errors.NewModelError("dataset.ReadInputs", "no input rows in "+name, errors.ErrEmptyData)
	}
	return mat.NewDense(rows, numInputs, data), nil
}

// lineReader yields trimmed non-blank lines and tracks 1-based line numbers.
type lineReader struct {
	sc   *bufio.Scanner
	name string
	line int
}

func newLineReader(r io.Reader, name string) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lineReader{sc: sc, name: name}
}

func (lr *lineReader) next() (string, bool) {
	for lr.sc.Scan() {
		lr.line++
		text := strings.TrimSpace(lr.sc.Text())
		if text != "" {
			return text, true
		}
	}
	return "", false
}

func (lr *lineReader) err() error {
	if err := lr.sc.Err(); err != nil {
		return errors.NewIOError("DataSet.Load", lr.name, err)
	}
	return nil
}

func (lr *lineReader) formatError(reason string) error {
	return errors.NewFormatError("DataSet.Load", lr.name, lr.line, reason)
}

// parseValues converts tokens into finite float64 values.
func (lr *lineReader) parseValues(tokens []string) ([]float64, error) {
	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, lr.formatError(fmt.Sprintf("non-numeric token %q in column %d", tok, i+1))
		}
		if !errors.IsFinite(v) {
			return nil, lr.formatError(fmt.Sprintf("non-finite value %q in column %d", tok, i+1))
		}
		values[i] = v
	}
	return values, nil
}

func parseCSV(lr *lineReader, first string, into *DataSet) (*DataSet, error) {
	width := into.numInputs + into.numTargets
	line, ok := first, true
	for ok {
		tokens := strings.Split(line, ",")
		if len(tokens) != width {
			cause := errors.NewDimensionError("DataSet.Load", width, len(tokens), 1)
			return nil, errors.WrapFormatError("DataSet.Load", lr.name, lr.line, "wrong column count", cause)
		}
		values, err := lr.parseValues(tokens)
		if err != nil {
			return nil, err
		}
		into.samples = append(into.samples, Sample{
			Input:  values[:into.numInputs:into.numInputs],
			Target: values[into.numInputs:],
		})
		line, ok = lr.next()
	}
	if err := lr.err(); err != nil {
		return nil, err
	}
	return into, nil
}

func parseStructured(lr *lineReader) (*DataSet, error) {
	out := New()
	header := map[string]string{}

	// ヘッダー部: "Key: Value" を RegressionData: まで読む
	for {
		line, ok := lr.next()
		if !ok {
			if err := lr.err(); err != nil {
				return nil, err
			}
			return nil, lr.formatError("missing " + keyRegressionData + " section")
		}
		key, value, _ := strings.Cut(line, ":")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch key {
		case keyRegressionData:
			return parseStructuredBody(lr, out, header)
		case keyExternalInputs, keyExternalTargets:
			if err := requireDims(lr, out, header); err != nil {
				return nil, err
			}
			count := out.numInputs
			if key == keyExternalTargets {
				count = out.numTargets
			}
			ranges, err := parseRanges(lr, count)
			if err != nil {
				return nil, err
			}
			if key == keyExternalInputs {
				out.inputRanges = ranges
			} else {
				out.targetRanges = ranges
			}
		default:
			header[key] = value
		}
	}
}

// requireDims applies NumInputDimensions / NumTargetDimensions from the
// header the first time they are needed.
func requireDims(lr *lineReader, out *DataSet, header map[string]string) error {
	if out.numInputs > 0 {
		return nil
	}
	n, err := headerInt(lr, header, keyNumInputs)
	if err != nil {
		return err
	}
	t, err := headerInt(lr, header, keyNumTargets)
	if err != nil {
		return err
	}
	if err := out.SetDimensions(n, t); err != nil {
		return errors.WrapFormatError("DataSet.Load", lr.name, lr.line, "invalid dimensions", err)
	}
	return nil
}

func headerInt(lr *lineReader, header map[string]string, key string) (int, error) {
	raw, ok := header[key]
	if !ok {
		return 0, lr.formatError("missing header field " + key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, lr.formatError(fmt.Sprintf("header field %s is not an integer: %q", key, raw))
	}
	return v, nil
}

func parseRanges(lr *lineReader, count int) ([]Range, error) {
	ranges := make([]Range, count)
	for i := range ranges {
		line, ok := lr.next()
		if !ok {
			return nil, lr.formatError("truncated external range block")
		}
		values, err := lr.parseValues(strings.Fields(line))
		if err != nil {
			return nil, err
		}
		if len(values) != 2 || values[0] > values[1] {
			return nil, lr.formatError("external range must be \"min max\" with min <= max")
		}
		ranges[i] = Range{Min: values[0], Max: values[1]}
	}
	return ranges, nil
}

func parseStructuredBody(lr *lineReader, out *DataSet, header map[string]string) (*DataSet, error) {
	if err := requireDims(lr, out, header); err != nil {
		return nil, err
	}
	total, err := headerInt(lr, header, keyTotalExamples)
	if err != nil {
		return nil, err
	}
	if total < 0 {
		return nil, lr.formatError("negative " + keyTotalExamples)
	}
	if header[keyUseExternalRanges] == "1" && (len(out.inputRanges) != out.numInputs || len(out.targetRanges) != out.numTargets) {
		return nil, lr.formatError("external ranges enabled but not fully declared")
	}
	if header[keyUseExternalRanges] != "1" {
		out.inputRanges, out.targetRanges = nil, nil
	}
	if name := header[keyDatasetName]; name != notSet {
		out.name = name
	}
	out.infoText = header[keyInfoText]

	width := out.numInputs + out.numTargets
	out.samples = make([]Sample, 0, total)
	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		tokens := strings.Fields(line)
		if len(tokens) != width {
			cause := errors.NewDimensionError("DataSet.Load", width, len(tokens), 1)
			return nil, errors.WrapFormatError("DataSet.Load", lr.name, lr.line, "wrong column count", cause)
		}
		values, err := lr.parseValues(tokens)
		if err != nil {
			return nil, err
		}
		out.samples = append(out.samples, Sample{
			Input:  values[:out.numInputs:out.numInputs],
			Target: values[out.numInputs:],
		})
	}
	if err := lr.err(); err != nil {
		return nil, err
	}
	if len(out.samples) != total {
		return nil, errors.NewFormatError("DataSet.Load", lr.name, 0,
			fmt.Sprintf("header declares %d samples, found %d", total, len(out.samples)))
	}
	return out, nil
}

// Save writes the dataset in the structured format.
func (d *DataSet) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewIOError("DataSet.Save", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewIOError("DataSet.Save", path, cerr)
		}
	}()

	if err := d.SaveToWriter(f); err != nil {
		return errors.NewIOError("DataSet.Save", path, err)
	}
	return nil
}

// SaveToWriter writes the dataset in the structured format to w.
func (d *DataSet) SaveToWriter(w io.Writer) error {
	bw := bufio.NewWriter(w)

	name := d.name
	if name == "" {
		name = notSet
	}
	useRanges := 0
	if len(d.inputRanges) > 0 {
		useRanges = 1
	}

	fmt.Fprintln(bw, StructuredHeader)
	fmt.Fprintf(bw, "%s: %s\n", keyDatasetName, name)
	fmt.Fprintf(bw, "%s: %s\n", keyInfoText, strings.ReplaceAll(d.infoText, "\n", " "))
	fmt.Fprintf(bw, "%s: %d\n", keyNumInputs, d.numInputs)
	fmt.Fprintf(bw, "%s: %d\n", keyNumTargets, d.numTargets)
	fmt.Fprintf(bw, "%s: %d\n", keyTotalExamples, len(d.samples))
	fmt.Fprintf(bw, "%s: %d\n", keyUseExternalRanges, useRanges)
	if useRanges == 1 {
		writeRanges(bw, keyExternalInputs, d.inputRanges)
		writeRanges(bw, keyExternalTargets, d.targetRanges)
	}
	fmt.Fprintf(bw, "%s:\n", keyRegressionData)

	for _, s := range d.samples {
		for i, v := range s.Input {
			if i > 0 {
				bw.WriteByte('\t')
			}
			bw.WriteString(formatFloat(v))
		}
		for _, v := range s.Target {
			bw.WriteByte('\t')
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func writeRanges(w *bufio.Writer, key string, ranges []Range) {
	fmt.Fprintf(w, "%s:\n", key)
	for _, r := range ranges {
		fmt.Fprintf(w, "%s\t%s\n", formatFloat(r.Min), formatFloat(r.Max))
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
