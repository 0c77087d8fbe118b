package plot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/TimFelixBeyer/NeuralODE/internal/dataset"
	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

// Training states are dense along their orbits; one in a hundred is
// plenty for the cloud.
const scatterStride = 100

// SaveDatasetScatter writes a phase-space scatter of the training
// state cloud against the validation series.
func SaveDatasetScatter(path string, set *dataset.Set) error {
	if len(set.TrainX) == 0 {
		return fmt.Errorf("plot: empty dataset")
	}

	p := plot.New()
	p.X.Label.Text = "x"
	p.Y.Label.Text = "x_dt"

	train, err := statesScatter(set.TrainX, scatterStride, color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xc0})
	if err != nil {
		return err
	}
	val, err := statesScatter(set.ValX, 1, color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff})
	if err != nil {
		return err
	}

	p.Add(train, val)
	p.Legend.Add("Training", train)
	p.Legend.Add("Testing", val)
	p.Legend.Top = true
	p.Legend.Left = true

	return writePNG(path, [][]*plot.Plot{{p}}, 6*vg.Inch, 6*vg.Inch)
}

func statesScatter(series [][]dynamics.State, stride int, c color.RGBA) (*plotter.Scatter, error) {
	var pts plotter.XYs
	i := 0
	for _, s := range series {
		for _, st := range s {
			if i%stride == 0 {
				pts = append(pts, plotter.XY{X: st[0], Y: st[1]})
			}
			i++
		}
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(1.2)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	return sc, nil
}
