package display

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/joshuadavidthomas/zerolimit/internal/history"
)

var chartColors = []asciigraph.AnsiColor{
	asciigraph.Green,
	asciigraph.Blue,
	asciigraph.Yellow,
	asciigraph.Red,
	asciigraph.Fuchsia,
	asciigraph.Aqua,
}

// ChartOptions sizes a history chart.
type ChartOptions struct {
	Width   int
	Height  int
	Caption string
}

// RenderChart plots remaining percentage over time, one line per model.
// Series shorter than the longest are padded with their last value.
func RenderChart(samples []history.Sample, opts ChartOptions) string {
	names, series := groupSeries(samples)
	if len(series) == 0 {
		return dimStyle.Render("No data available")
	}

	width := max(opts.Width, 20)
	height := max(opts.Height, 3)

	longest := 0
	for _, s := range series {
		longest = max(longest, len(s))
	}
	for i, s := range series {
		series[i] = padSeries(s, longest)
	}

	colors := make([]asciigraph.AnsiColor, len(series))
	legend := make([]LegendItem, len(series))
	for i := range series {
		c := chartColors[i%len(chartColors)]
		colors[i] = c
		legend[i] = LegendItem{Label: names[i], Color: lipgloss.Color(strconv.Itoa(int(c)))}
	}

	graph := asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
		asciigraph.Caption(opts.Caption),
		asciigraph.SeriesColors(colors...),
	)
	return graph + "\n\n" + RenderLegend(legend)
}

// groupSeries splits samples by model, sorted by model name. Samples keep
// their input order within a model.
func groupSeries(samples []history.Sample) ([]string, [][]float64) {
	byModel := make(map[string][]float64)
	for _, s := range samples {
		byModel[s.Model] = append(byModel[s.Model], s.Percentage)
	}
	names := make([]string, 0, len(byModel))
	for name := range byModel {
		names = append(names, name)
	}
	slices.Sort(names)

	series := make([][]float64, len(names))
	for i, name := range names {
		series[i] = byModel[name]
	}
	return names, series
}

func padSeries(s []float64, n int) []float64 {
	if len(s) >= n || len(s) == 0 {
		return s
	}
	out := make([]float64, n)
	copy(out, s)
	last := s[len(s)-1]
	for i := len(s); i < n; i++ {
		out[i] = last
	}
	return out
}

// LegendItem is one chart legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		box := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", box, item.Label))
	}
	return strings.Join(parts, "  ")
}
