package display

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"github.com/joshuadavidthomas/zerolimit/internal/usage"
)

// UsageOptions sizes the usage dashboard.
type UsageOptions struct {
	Width   int
	NoColor bool
}

var usageHeaders = []string{"Model", "API", "Requests", "Tokens", "Failed"}

// RenderUsage renders request statistics: a totals panel, the per-model
// table and, with two or more periods, a request trend chart.
func RenderUsage(stats usage.Stats, opts UsageOptions) string {
	if stats.Empty() {
		return dimStyle.Render("No usage recorded. Enable usage-statistics-enabled on the server to collect request statistics.")
	}

	t := stats.Totals
	summary := []string{
		fmt.Sprintf("Requests  %s  %s", titleStyle.Render(usage.FormatCount(t.Requests)),
			dimStyle.Render(fmt.Sprintf("(%s ok, %s failed)", usage.FormatCount(t.Succeeded), usage.FormatCount(t.Failed)))),
		fmt.Sprintf("Tokens    %s  %s", titleStyle.Render(usage.FormatCount(t.Tokens)),
			dimStyle.Render(fmt.Sprintf("(%s cached, %s reasoning)", usage.FormatCount(t.CachedTokens), usage.FormatCount(t.ReasoningTokens)))),
	}
	if len(stats.Sources) > 0 {
		summary = append(summary, "Sources   "+dimStyle.Render(strings.Join(stats.Sources, ", ")))
	}
	blocks := []string{renderTitledPanel(titleStyle.Render("Usage"), strings.Join(summary, "\n"), 0)}

	if len(stats.Models) > 0 {
		blocks = append(blocks, usageModelTable(stats.Models, opts.NoColor))
	}

	switch len(stats.Trends) {
	case 0:
	case 1:
		tr := stats.Trends[0]
		blocks = append(blocks, dimStyle.Render(fmt.Sprintf("%s: %s requests, %s tokens",
			tr.Period, usage.FormatCount(tr.Requests), usage.FormatCount(tr.Tokens))))
	default:
		blocks = append(blocks, usageTrendChart(stats.Trends, stats.Grouping, opts.Width))
	}
	return strings.Join(blocks, "\n\n")
}

func usageModelTable(ms []usage.ModelStat, noColor bool) string {
	rows := make([][]string, len(ms))
	for i, m := range ms {
		rows[i] = []string{m.Name, m.API, usage.FormatCount(m.Requests), usage.FormatCount(m.Tokens), strconv.FormatInt(m.Failed, 10)}
	}

	t := table.New().
		Headers(usageHeaders...).
		Border(lipgloss.HiddenBorder()).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			if col >= 2 {
				s = s.Align(lipgloss.Right)
			}
			switch {
			case noColor:
			case row == table.HeaderRow:
				s = s.Bold(true)
			case col == 1:
				s = s.Foreground(lipgloss.Color("240"))
			case col == 4 && row >= 0 && row < len(ms) && ms[row].Failed > 0:
				s = s.Foreground(lipgloss.Color("1"))
			}
			return s
		})
	return cleanTableOutput(t.Render())
}

func usageTrendChart(trends []usage.Trend, by usage.Grouping, width int) string {
	series := make([]float64, len(trends))
	for i, tr := range trends {
		series[i] = float64(tr.Requests)
	}
	caption := fmt.Sprintf("requests per %s, %s to %s", by, trends[0].Period, trends[len(trends)-1].Period)
	return asciigraph.Plot(series,
		asciigraph.Height(8),
		asciigraph.Width(max(width, 20)),
		asciigraph.LowerBound(0),
		asciigraph.Precision(0),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Green),
	)
}
