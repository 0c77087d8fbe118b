package viz

import (
	"math"
	"strings"
	"testing"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 2)

	c.Set(0, 0)
	if c.Grid[0][0] != 0x2801 {
		t.Errorf("expected 0x2801, got %#x", c.Grid[0][0])
	}

	c.Set(3, 7)
	if c.Grid[1][1] != 0x2880 {
		t.Errorf("expected 0x2880, got %#x", c.Grid[1][1])
	}

	// Out-of-range pixels must be ignored.
	c.Set(-1, 0)
	c.Set(0, 100)
	c.Set(100, 0)
}

func TestCanvasDrawLineHorizontal(t *testing.T) {
	c := NewCanvas(4, 1)
	c.DrawLine(0, 0, 7, 0)
	for i := 0; i < 4; i++ {
		if c.Grid[0][i] != 0x2809 {
			t.Errorf("cell %d: expected 0x2809, got %#x", i, c.Grid[0][i])
		}
	}
}

func TestCanvasClear(t *testing.T) {
	c := NewCanvas(3, 3)
	c.DrawLine(0, 0, 5, 11)
	c.Clear()
	for y := range c.Grid {
		for x := range c.Grid[y] {
			if c.Grid[y][x] != 0x2800 {
				t.Fatalf("cell (%d,%d): expected blank, got %#x", x, y, c.Grid[y][x])
			}
		}
	}
}

func TestCanvasString(t *testing.T) {
	c := NewCanvas(3, 2)
	s := c.String()
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if n := len([]rune(line)); n != 3 {
			t.Errorf("expected 3 runes per line, got %d", n)
		}
	}
}

func TestPhasePortraitCircle(t *testing.T) {
	n := 64
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n-1)
		xs[i] = math.Cos(theta)
		ys[i] = math.Sin(theta)
	}

	got := PhasePortrait(xs, ys, 10, 5)
	blank := NewCanvas(10, 5).String()
	if got == blank {
		t.Fatal("expected a non-blank portrait")
	}
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
}

func TestPhasePortraitDegenerate(t *testing.T) {
	if got := PhasePortrait(nil, nil, 10, 5); got != "" {
		t.Errorf("expected empty portrait for no data, got %q", got)
	}
	if got := PhasePortrait([]float64{1}, []float64{1}, 0, 5); got != "" {
		t.Errorf("expected empty portrait for zero width, got %q", got)
	}

	// Constant series must not divide by zero.
	got := PhasePortrait([]float64{1, 1, 1}, []float64{2, 2, 2}, 10, 5)
	blank := NewCanvas(10, 5).String()
	if got == blank {
		t.Error("expected the constant orbit to set at least one pixel")
	}
}

func TestScatterLeavesGaps(t *testing.T) {
	// Two distant points: a scatter sets two pixels, a portrait draws
	// the whole connecting line.
	xs := []float64{1, 2}
	ys := []float64{1, 2}

	scatter := Scatter(xs, ys, 10, 5)
	portrait := PhasePortrait(xs, ys, 10, 5)
	if scatter == portrait {
		t.Error("expected scatter to set fewer pixels than the connected portrait")
	}

	lit := 0
	for _, r := range scatter {
		if r != '\n' && r != 0x2800 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("expected scatter to set at least one cell")
	}
}

func TestPhasePortraitTruncatesToShorter(t *testing.T) {
	xs := []float64{-1, 0, 1, 2, 3}
	ys := []float64{-1, 0, 1}
	got := PhasePortrait(xs, ys, 8, 4)
	if got == "" {
		t.Fatal("expected a portrait for mismatched series")
	}
}

func TestChart(t *testing.T) {
	got := Chart([]float64{0, 1, 2, 1, 0}, "Energy", 20, 4)
	if got == "" {
		t.Fatal("expected a chart")
	}
	if !strings.Contains(got, "Energy") {
		t.Errorf("expected caption in chart output:\n%s", got)
	}

	if got := Chart([]float64{1}, "Energy", 20, 4); got != "" {
		t.Errorf("expected empty chart for a single sample, got %q", got)
	}
}

func TestChartMany(t *testing.T) {
	series := [][]float64{
		{0, 1, 0, -1, 0},
		{1, 0, -1, 0, 1},
	}
	got := ChartMany(series, "x, x_dt", 20, 4)
	if got == "" {
		t.Fatal("expected an overlay chart")
	}
	if !strings.Contains(got, "x, x_dt") {
		t.Errorf("expected caption in chart output:\n%s", got)
	}

	if got := ChartMany([][]float64{{1, 2}, {1}}, "c", 20, 4); got != "" {
		t.Errorf("expected empty chart when a series is too short, got %q", got)
	}
}
