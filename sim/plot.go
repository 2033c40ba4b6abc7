package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewTrajectoryPlot creates new plane plot of the simulation from the three data sources:
// truth:    true positions
// measured: detections mapped into the plane
// filtered: smoothed positions
// Every row of the supplied matrices is a single point.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * either of the supplied data matrices is nil
// * either of the supplied data matrices does not have at least 2 columns
// * gonum plot fails to be created
func NewTrajectoryPlot(truth, measured, filtered *mat.Dense) (*plot.Plot, error) {
	if truth == nil || measured == nil || filtered == nil {
		return nil, fmt.Errorf("invalid data supplied")
	}

	_, ct := truth.Dims()
	_, cm := measured.Dims()
	_, cf := filtered.Dims()

	if ct < 2 || cm < 2 || cf < 2 {
		return nil, fmt.Errorf("invalid data dimensions")
	}

	p := plot.New()

	p.Title.Text = "Trajectory"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	measScatter, err := plotter.NewScatter(makePoints(measured))
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %v", err)
	}
	measScatter.GlyphStyle.Color = color.RGBA{G: 200, A: 128}
	measScatter.Shape = draw.CrossGlyph{}
	measScatter.GlyphStyle.Radius = vg.Points(2)

	p.Add(measScatter)
	p.Legend.Add("measured", measScatter)

	truthLine, err := plotter.NewLine(makePoints(truth))
	if err != nil {
		return nil, fmt.Errorf("failed to create line: %v", err)
	}
	truthLine.LineStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	truthLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(truthLine)
	p.Legend.Add("truth", truthLine)

	filterLine, err := plotter.NewLine(makePoints(filtered))
	if err != nil {
		return nil, fmt.Errorf("failed to create line: %v", err)
	}
	filterLine.LineStyle.Color = color.RGBA{B: 200, A: 255}
	filterLine.LineStyle.Width = vg.Points(1.5)

	p.Add(filterLine)
	p.Legend.Add("filtered", filterLine)

	return p, nil
}

// Series is a named time series
type Series struct {
	Name   string
	Values []float64
}

var palette = []color.Color{
	color.RGBA{B: 200, A: 255},
	color.RGBA{R: 255, B: 128, A: 255},
	color.RGBA{G: 160, A: 255},
	color.RGBA{R: 169, G: 169, B: 169, A: 255},
}

// NewSeriesPlot creates new plot of series sampled at times.
// It returns error if no series is given or any series length differs from times.
func NewSeriesPlot(title, label string, times []float64, series ...Series) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no series supplied")
	}

	p := plot.New()

	p.Title.Text = title
	p.X.Label.Text = "t [s]"
	p.Y.Label.Text = label

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	for i, s := range series {
		if len(s.Values) != len(times) {
			return nil, fmt.Errorf("invalid series %q length: %d != %d", s.Name, len(s.Values), len(times))
		}

		pts := make(plotter.XYs, len(times))
		for j := range times {
			pts[j].X = times[j]
			pts[j].Y = s.Values[j]
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create line: %v", err)
		}
		line.LineStyle.Color = palette[i%len(palette)]

		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	return p, nil
}

func makePoints(m *mat.Dense) plotter.XYs {
	r, _ := m.Dims()
	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, 1)
	}

	return pts
}
