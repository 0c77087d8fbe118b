package export

import (
	"strings"
	"testing"

	"github.com/TimFelixBeyer/NeuralODE/internal/viz"
)

func TestCanvasSVGSingleDot(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)

	got := CanvasSVG(c, 10)

	if !strings.Contains(got, "<svg") || !strings.Contains(got, "</svg>") {
		t.Fatalf("expected an svg document, got %q", got)
	}
	// Dot 1 sits in the upper-left sub-cell: center at (scale/2, scale/2).
	if !strings.Contains(got, `<circle cx="5.0" cy="5.0" r="4.0"/>`) {
		t.Errorf("expected upper-left dot, got:\n%s", got)
	}
	if n := strings.Count(got, "<circle"); n != 1 {
		t.Errorf("expected 1 dot, got %d", n)
	}
}

func TestCanvasSVGEmpty(t *testing.T) {
	if got := CanvasSVG(nil, 10); got != "" {
		t.Errorf("expected empty string for nil canvas, got %q", got)
	}
	if got := CanvasSVG(viz.NewCanvas(2, 2), 0); got != "" {
		t.Errorf("expected empty string for zero scale, got %q", got)
	}

	got := CanvasSVG(viz.NewCanvas(2, 2), 10)
	if strings.Contains(got, "<circle") {
		t.Errorf("expected no dots on a blank canvas, got:\n%s", got)
	}
}

func TestTrajectorySVGPolyline(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 1, 0}

	got := TrajectorySVG(xs, ys, 100, 50, "#00ff88")

	if !strings.Contains(got, `stroke="#00ff88"`) {
		t.Errorf("expected stroke color in output")
	}
	if n := strings.Count(got, " L"); n != 2 {
		t.Errorf("expected 2 line segments, got %d", n)
	}
}

func TestTrajectorySVGDegenerate(t *testing.T) {
	if got := TrajectorySVG([]float64{1}, []float64{1}, 100, 50, "#fff"); got != "" {
		t.Errorf("expected empty string for a single point, got %q", got)
	}
	if got := TrajectorySVG(nil, nil, 100, 50, "#fff"); got != "" {
		t.Errorf("expected empty string for empty input, got %q", got)
	}
}
