// Package report renders diagnostics of a training run.
package report

import (
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/linreg/linear"
	"github.com/YuminosukeSato/linreg/pkg/errors"
)

// Default canvas size of a loss curve.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

var (
	trainingColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	validationColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// LossCurve plots the training loss, and the validation loss when the run
// used a validation subset, against the epoch number. The Y axis is
// logarithmic unless some loss is exactly zero.
func LossCurve(res *linear.TrainingResult) (*plot.Plot, error) {
	if res == nil || len(res.History) == 0 {
		return nil, errors.NewValueError("report.LossCurve", "training history is empty")
	}

	training := make(plotter.XYs, len(res.History))
	validation := make(plotter.XYs, len(res.History))
	positive := true
	for i, s := range res.History {
		training[i].X, training[i].Y = float64(s.Epoch), s.TrainingLoss
		validation[i].X, validation[i].Y = float64(s.Epoch), s.ValidationLoss
		if s.TrainingLoss <= 0 || (res.HasValidation && s.ValidationLoss <= 0) {
			positive = false
		}
	}

	p := plot.New()
	p.Title.Text = "Loss per epoch"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Mean squared error"
	if positive {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Add(plotter.NewGrid())

	if err := addLine(p, "training", training, trainingColor); err != nil {
		return nil, err
	}
	if res.HasValidation {
		if err := addLine(p, "validation", validation, validationColor); err != nil {
			return nil, err
		}
	}
	p.Legend.Top = true
	return p, nil
}

func addLine(p *plot.Plot, name string, xys plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrapf(err, "report: %s loss", name)
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

// SaveLossCurve writes the loss curve to path. The image format follows the
// file extension (png, svg, pdf, jpg, ...).
func SaveLossCurve(res *linear.TrainingResult, path string) error {
	p, err := LossCurve(res)
	if err != nil {
		return err
	}
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return errors.NewIOError("report.SaveLossCurve", path, err)
	}
	return nil
}

// WriteLossCurve renders the loss curve in the given format ("png", "svg",
// ...) to w.
func WriteLossCurve(res *linear.TrainingResult, w io.Writer, format string) error {
	p, err := LossCurve(res)
	if err != nil {
		return err
	}
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, format)
	if err != nil {
		return errors.NewValueError("report.WriteLossCurve", err.Error())
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.NewIOError("report.WriteLossCurve", "", err)
	}
	return nil
}

// FormatFromPath returns the image format implied by a file name.
func FormatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
