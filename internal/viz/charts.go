package viz

import (
	"github.com/guptarohit/asciigraph"
)

// Chart renders a single series as an ASCII line chart.
func Chart(values []float64, caption string, width, height int) string {
	if len(values) < 2 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// ChartMany overlays several series on one chart. Series are colored
// in declaration order so legends stay stable between frames.
func ChartMany(series [][]float64, caption string, width, height int) string {
	drawable := 0
	for _, s := range series {
		if len(s) >= 2 {
			drawable++
		}
	}
	if drawable != len(series) || drawable == 0 {
		return ""
	}
	colors := []asciigraph.AnsiColor{
		asciigraph.Green,
		asciigraph.Blue,
		asciigraph.Red,
		asciigraph.Yellow,
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors[:min(len(series), len(colors))]...),
	)
}
