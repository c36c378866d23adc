// Package diag renders optional diagnostic plots for verbose
// reconstruction runs. It repurposes gonum.org/v1/gonum/plot — the
// teacher (soypat/sdf) uses that library only inside its own
// regression-image tests (render/form3_test.go); here it plots the
// per-depth CG residual convergence curve. No command or package of
// this module calls it.
package diag

import (
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ResidualSample is one CG residual sample at a given depth and iteration.
type ResidualSample struct {
	Depth     int
	Iteration int
	Residual  float64
}

// PlotResiduals writes a PNG line plot of residual-vs-iteration, one
// line per depth, to path. Neither --verbose nor any other flag invokes it.
func PlotResiduals(path string, samples []ResidualSample) error {
	p := plot.New()
	p.Title.Text = "CG residual convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "log10(residual)"
	p.Y.Scale = plot.LogScale{}

	byDepth := map[int]plotter.XYs{}
	for _, s := range samples {
		byDepth[s.Depth] = append(byDepth[s.Depth], plotter.XY{X: float64(s.Iteration), Y: s.Residual})
	}
	for depth, pts := range byDepth {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = plotter.DefaultLineStyle.Color
		p.Add(line)
		p.Legend.Add(depthLabel(depth), line)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func depthLabel(d int) string {
	return "depth " + strconv.Itoa(d)
}
