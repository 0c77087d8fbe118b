package plot

import (
	"bufio"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/eval"
)

// Vector-field panels sample a 61x61 grid over [-6,6]^2; the quiver
// panel thins it to every third point so the arrows stay readable.
const (
	gridSteps    = 61
	gridMin      = -6.0
	gridMax      = 6.0
	quiverStride = 3

	absErrorClip = 3.0
	relErrorClip = 1.0
)

var (
	truthColor = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	modelColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
)

// EvalData bundles everything the six-panel evaluation figure shows.
// Trajectories must share Times; the extrapolation regime fills the
// trajectory panel, both regimes appear in the phase portrait, and the
// interpolation prediction feeds the energy panel.
type EvalData struct {
	Times                  []float64
	PredExtrap, PredInterp *dynamics.Trajectory
	TrueExtrap, TrueInterp *dynamics.Trajectory
	Candidate, Reference   dynamics.Field
	Stiffness, Mass        float64
}

// SaveEvalFigure writes the 2x3 evaluation figure: trajectory overlay,
// phase portrait, learned vector field, absolute and relative field
// error maps, and the energy of the interpolation prediction.
func SaveEvalFigure(path string, d EvalData) error {
	if len(d.Times) == 0 {
		return fmt.Errorf("plot: empty eval data")
	}
	for _, tr := range []*dynamics.Trajectory{d.PredExtrap, d.PredInterp, d.TrueExtrap, d.TrueInterp} {
		if tr == nil || tr.Len() != len(d.Times) {
			return fmt.Errorf("plot: trajectories must share the time grid")
		}
	}

	traj, err := trajPanel(d)
	if err != nil {
		return err
	}
	phase, err := phasePanel(d)
	if err != nil {
		return err
	}

	g := newFieldGrid(d.Candidate, d.Reference)
	energy, err := energyPanel(d)
	if err != nil {
		return err
	}

	panels := [][]*plot.Plot{
		{traj, phase, vecFieldPanel(g)},
		{heatPanel("Abs. error of xdot", g.absErr, absErrorClip), heatPanel("Rel. error of xdot", g.relErr, relErrorClip), energy},
	}
	return writePNG(path, panels, 12*vg.Inch, 8*vg.Inch)
}

func trajPanel(d EvalData) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Trajectories"
	p.X.Label.Text = "t"
	p.Y.Label.Text = "x,v"

	truthPos, err := xyLine(d.Times, d.TrueExtrap.Component(0), truthColor, false)
	if err != nil {
		return nil, err
	}
	truthVel, err := xyLine(d.Times, d.TrueExtrap.Component(1), truthColor, false)
	if err != nil {
		return nil, err
	}
	predPos, err := xyLine(d.Times, d.PredExtrap.Component(0), modelColor, true)
	if err != nil {
		return nil, err
	}
	predVel, err := xyLine(d.Times, d.PredExtrap.Component(1), modelColor, true)
	if err != nil {
		return nil, err
	}
	p.Add(truthPos, truthVel, predPos, predVel)
	p.Legend.Add("truth", truthPos)
	p.Legend.Add("model", predPos)
	p.Legend.Top = true

	p.X.Min, p.X.Max = d.Times[0], d.Times[len(d.Times)-1]
	p.Y.Min, p.Y.Max = gridMin, gridMax
	return p, nil
}

func phasePanel(d EvalData) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Phase Portrait"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "x_dt"

	pairs := []struct {
		tr *dynamics.Trajectory
		c  color.RGBA
	}{
		{d.TrueExtrap, truthColor},
		{d.PredExtrap, modelColor},
		{d.TrueInterp, truthColor},
		{d.PredInterp, modelColor},
	}
	for _, pair := range pairs {
		ln, err := xyLine(pair.tr.Component(0), pair.tr.Component(1), pair.c, true)
		if err != nil {
			return nil, err
		}
		p.Add(ln)
	}

	p.X.Min, p.X.Max = gridMin, gridMax
	p.Y.Min, p.Y.Max = gridMin, gridMax
	return p, nil
}

func vecFieldPanel(g *fieldGrid) *plot.Plot {
	p := plot.New()
	p.Title.Text = "Learned Vector Field"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "x_dt"

	f := plotter.NewField(g.quiver())
	f.LineStyle.Width = vg.Points(0.6)
	p.Add(f)

	p.X.Min, p.X.Max = gridMin, gridMax
	p.Y.Min, p.Y.Max = gridMin, gridMax
	return p
}

func heatPanel(title string, z [][]float64, clipMax float64) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "x_dt"

	hm := plotter.NewHeatMap(errGrid{axis: gridAxis(), z: z}, palette.Heat(100, 1))
	hm.Min, hm.Max = 0, clipMax
	p.Add(hm)

	p.X.Min, p.X.Max = gridMin, gridMax
	p.Y.Min, p.Y.Max = gridMin, gridMax
	return p
}

func energyPanel(d EvalData) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Total Energy"
	p.X.Label.Text = "t"

	n := d.PredInterp.Len()
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = float64(i) / 100.1
		ys[i] = eval.TotalEnergy(d.PredInterp.States[i], d.Stiffness, d.Mass)
	}

	ln, err := xyLine(xs, ys, modelColor, false)
	if err != nil {
		return nil, err
	}
	p.Add(ln)
	return p, nil
}

func xyLine(xs, ys []float64, c color.RGBA, dashed bool) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	ln, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	ln.Color = c
	if dashed {
		ln.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	}
	return ln, nil
}

func writePNG(path string, panels [][]*plot.Plot, w, h vg.Length) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	img := vgimg.NewWith(vgimg.UseWH(w, h))
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows: len(panels),
		Cols: len(panels[0]),
		PadX: vg.Millimeter * 2,
		PadY: vg.Millimeter * 2,
	}
	canvases := plot.Align(panels, tiles, dc)
	for i := range panels {
		for j, p := range panels[i] {
			if p != nil {
				p.Draw(canvases[i][j])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// fieldGrid caches one sweep of both fields over the sample grid.
// Rows index x_dt, columns index x, like the trajectory states.
type fieldGrid struct {
	axis   []float64
	unit   [][]dynamics.State
	absErr [][]float64
	relErr [][]float64
}

func gridAxis() []float64 {
	axis := make([]float64, gridSteps)
	step := (gridMax - gridMin) / float64(gridSteps-1)
	for i := range axis {
		axis[i] = gridMin + float64(i)*step
	}
	return axis
}

func newFieldGrid(candidate, reference dynamics.Field) *fieldGrid {
	axis := gridAxis()

	states := make([]dynamics.State, 0, gridSteps*gridSteps)
	for _, v := range axis {
		for _, x := range axis {
			states = append(states, dynamics.State{x, v})
		}
	}

	derivs := dynamics.EvalBatch(candidate, 0, states)
	refs := dynamics.EvalBatch(reference, 0, states)

	g := &fieldGrid{
		axis:   axis,
		unit:   make([][]dynamics.State, gridSteps),
		absErr: make([][]float64, gridSteps),
		relErr: make([][]float64, gridSteps),
	}
	for r := 0; r < gridSteps; r++ {
		g.unit[r] = make([]dynamics.State, gridSteps)
		g.absErr[r] = make([]float64, gridSteps)
		g.relErr[r] = make([]float64, gridSteps)
		for c := 0; c < gridSteps; c++ {
			d := derivs[r*gridSteps+c]
			ref := refs[r*gridSteps+c]

			mag := math.Hypot(d[0], d[1])
			if mag > 0 {
				g.unit[r][c] = dynamics.State{d[0] / mag, d[1] / mag}
			} else {
				g.unit[r][c] = dynamics.State{0, 0}
			}

			abs := clip(math.Hypot(d[0]-ref[0], d[1]-ref[1]), 0, absErrorClip)
			magRef := 1e-8 + math.Hypot(ref[0], ref[1])
			g.absErr[r][c] = abs
			g.relErr[r][c] = clip(abs/magRef, 0, relErrorClip)
		}
	}
	return g
}

func (g *fieldGrid) quiver() unitField {
	var axis []float64
	var rows [][]dynamics.State
	for r := 0; r < gridSteps; r += quiverStride {
		axis = append(axis, g.axis[r])
		var row []dynamics.State
		for c := 0; c < gridSteps; c += quiverStride {
			row = append(row, g.unit[r][c])
		}
		rows = append(rows, row)
	}
	return unitField{axis: axis, vs: rows}
}

type unitField struct {
	axis []float64
	vs   [][]dynamics.State
}

func (f unitField) Dims() (c, r int) { return len(f.axis), len(f.axis) }
func (f unitField) X(c int) float64  { return f.axis[c] }
func (f unitField) Y(r int) float64  { return f.axis[r] }
func (f unitField) Vector(c, r int) plotter.XY {
	return plotter.XY{X: f.vs[r][c][0], Y: f.vs[r][c][1]}
}

type errGrid struct {
	axis []float64
	z    [][]float64
}

func (g errGrid) Dims() (c, r int)   { return len(g.axis), len(g.axis) }
func (g errGrid) Z(c, r int) float64 { return g.z[r][c] }
func (g errGrid) X(c int) float64    { return g.axis[c] }
func (g errGrid) Y(r int) float64    { return g.axis[r] }

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
