package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800 // Empty braille char
		}
	}
	return c
}

// Set lights the pixel at (x, y) in sub-pixel coordinates. The canvas
// resolution in sub-pixels is (Width*2) x (Height*4).
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	subX := x % 2
	subY := y % 4

	c.Grid[row][col] |= rune(pixelMap[subY][subX])
}

// Clear resets the canvas
func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// PhasePortrait renders the orbit traced by xs against ys, connecting
// consecutive samples. Axes are drawn when zero falls inside the padded
// data range. The slices are truncated to the shorter one.
func PhasePortrait(xs, ys []float64, width, height int) string {
	return render(xs, ys, width, height, true)
}

// Scatter renders the same view as [PhasePortrait] without connecting
// samples, for point clouds rather than orbits.
func Scatter(xs, ys []float64, width, height int) string {
	return render(xs, ys, width, height, false)
}

// PhaseCanvas exposes the canvas behind [PhasePortrait] so callers can
// re-render the same view into other formats.
func PhaseCanvas(xs, ys []float64, width, height int) *Canvas {
	return renderCanvas(xs, ys, width, height, true)
}

func render(xs, ys []float64, width, height int, connect bool) string {
	c := renderCanvas(xs, ys, width, height, connect)
	if c == nil {
		return ""
	}
	return c.String()
}

func renderCanvas(xs, ys []float64, width, height int, connect bool) *Canvas {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n == 0 || width <= 0 || height <= 0 {
		return nil
	}
	xMin, xMax := bounds(xs[:n])
	yMin, yMax := bounds(ys[:n])

	c := NewCanvas(width, height)
	pw, ph := 2*width, 4*height
	toPixel := func(x, y float64) (int, int) {
		px := int(math.Round((x - xMin) / (xMax - xMin) * float64(pw-1)))
		py := int(math.Round((yMax - y) / (yMax - yMin) * float64(ph-1)))
		return px, py
	}

	if xMin < 0 && xMax > 0 {
		ax, _ := toPixel(0, yMin)
		for py := 0; py < ph; py++ {
			c.Set(ax, py)
		}
	}
	if yMin < 0 && yMax > 0 {
		_, ay := toPixel(xMin, 0)
		for px := 0; px < pw; px++ {
			c.Set(px, ay)
		}
	}

	px0, py0 := toPixel(xs[0], ys[0])
	c.Set(px0, py0)
	for i := 1; i < n; i++ {
		px1, py1 := toPixel(xs[i], ys[i])
		if connect {
			c.DrawLine(px0, py0, px1, py1)
		} else {
			c.Set(px1, py1)
		}
		px0, py0 = px1, py1
	}
	return c
}

// bounds pads the data range by 10% so orbits do not hug the frame.
// Degenerate ranges are widened to keep the pixel mapping finite.
func bounds(vs []float64) (float64, float64) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	pad := 0.1 * (hi - lo)
	if pad == 0 {
		pad = 0.5
	}
	return lo - pad, hi + pad
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
