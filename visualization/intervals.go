// Package visualization renders diagnostic plots for conformal prediction
// runs. Plots are an optional pipeline stage; nothing here affects the
// calibration itself.
package visualization

import (
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/conformal/pkg/errors"
)

// IntervalPlot saves a PNG showing the prediction interval band over the
// test split: rows sorted by point prediction, the band between lower and
// upper, the prediction line, and the true labels as a scatter.
func IntervalPlot(yTrue, yPred, lower, upper []float64, path string) error {
	n := len(yPred)
	if n == 0 {
		return errors.NewValueError("visualization.IntervalPlot", "empty input")
	}
	for name, s := range map[string][]float64{"yTrue": yTrue, "lower": lower, "upper": upper} {
		if len(s) != n {
			return errors.NewDimensionError("visualization.IntervalPlot: "+name, n, len(s), 0)
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return yPred[order[a]] < yPred[order[b]] })

	predLine := make(plotter.XYs, n)
	lowerLine := make(plotter.XYs, n)
	upperLine := make(plotter.XYs, n)
	truePts := make(plotter.XYs, n)
	for rank, idx := range order {
		x := float64(rank)
		predLine[rank] = plotter.XY{X: x, Y: yPred[idx]}
		lowerLine[rank] = plotter.XY{X: x, Y: lower[idx]}
		upperLine[rank] = plotter.XY{X: x, Y: upper[idx]}
		truePts[rank] = plotter.XY{X: x, Y: yTrue[idx]}
	}

	p := plot.New()
	p.Title.Text = "Split conformal prediction intervals"
	p.X.Label.Text = "test rows (sorted by prediction)"
	p.Y.Label.Text = "target"

	band := make(plotter.XYs, 0, 2*n)
	band = append(band, lowerLine...)
	for i := n - 1; i >= 0; i-- {
		band = append(band, upperLine[i])
	}
	poly, err := plotter.NewPolygon(band)
	if err != nil {
		return errors.Wrap(err, "building interval band")
	}
	poly.Color = color.RGBA{R: 160, G: 200, B: 255, A: 120}
	poly.LineStyle.Width = 0
	p.Add(poly)

	pl, err := plotter.NewLine(predLine)
	if err != nil {
		return errors.Wrap(err, "building prediction line")
	}
	pl.Color = color.RGBA{B: 200, A: 255}
	p.Add(pl)
	p.Legend.Add("prediction", pl)

	sc, err := plotter.NewScatter(truePts)
	if err != nil {
		return errors.Wrap(err, "building true-value scatter")
	}
	sc.GlyphStyle.Radius = vg.Points(1.5)
	sc.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
	p.Add(sc)
	p.Legend.Add("true value", sc)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot to %s", path)
	}
	return nil
}
