package display

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/joshuadavidthomas/zerolimit/internal/models"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
	"github.com/joshuadavidthomas/zerolimit/internal/quota"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	greenStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	redStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// BarWidth is the width of quota bars in section panels.
const BarWidth = 20

func colorStyle(color string) lipgloss.Style {
	switch color {
	case "green":
		return greenStyle
	case "yellow":
		return yellowStyle
	case "red":
		return redStyle
	default:
		return lipgloss.NewStyle()
	}
}

// RemainingColor returns "green", "yellow" or "red" for a remaining
// percentage. Low values are the warning case.
func RemainingColor(pct float64) string {
	switch {
	case pct >= 50:
		return "green"
	case pct >= 20:
		return "yellow"
	}
	return "red"
}

// RenderBar draws pct of width as filled blocks.
func RenderBar(pct float64, width int, color string) string {
	filled := int(math.Round(models.ClampPct(pct) * float64(width) / 100))
	filled = max(0, min(filled, width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return colorStyle(color).Render(bar)
}

// Options controls section rendering.
type Options struct {
	Masker privacy.Masker
}

// RenderSections renders one titled panel per provider section.
func RenderSections(sections []quota.Section, opts Options) string {
	if len(sections) == 0 {
		return dimStyle.Render("No credentials stored on the server.")
	}

	cw := globalColWidths(sections)
	panels := make([]string, 0, len(sections))
	for _, s := range sections {
		panels = append(panels, RenderSection(s, cw, opts))
	}
	return strings.Join(panels, "\n")
}

// RenderSection renders one provider's credentials inside a titled panel.
func RenderSection(s quota.Section, cw ColWidths, opts Options) string {
	blocks := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		blocks = append(blocks, renderFile(f, cw, opts))
	}
	title := titleStyle.Render(s.DisplayName) + dimStyle.Render(fmt.Sprintf(" (%d)", len(s.Files)))
	return renderTitledPanel(title, strings.Join(blocks, "\n\n"), cw.RowWidth())
}

func renderFile(f quota.FileQuota, cw ColWidths, opts Options) string {
	header := titleStyle.Render(opts.Masker.Folder(privacy.FormatName(f.Filename)))
	var meta []string
	if f.Plan != "" {
		meta = append(meta, f.Plan)
	}
	if f.Email != "" {
		meta = append(meta, opts.Masker.Email(f.Email))
	}
	if len(meta) > 0 {
		header += dimStyle.Render("  " + strings.Join(meta, " · "))
	}

	switch {
	case f.Error != "":
		return header + "\n" + redStyle.Render("  "+f.Error)
	case f.Loading && len(f.Models) == 0:
		return header + "\n" + dimStyle.Render("  loading…")
	case len(f.Models) == 0:
		return header + "\n" + dimStyle.Render("  no quota data")
	}
	return header + "\n" + buildModelTable(f.Models, cw)
}

// ColWidths holds shared column widths so every panel lines up.
type ColWidths struct {
	Name  int
	Pct   int
	Value int
	Reset int
}

// RowWidth returns the rendered width of one model row.
func (cw ColWidths) RowWidth() int {
	// indent + name + bar + pct + value + reset, with single-space gaps
	return 2 + cw.Name + 1 + BarWidth + 1 + cw.Pct + 1 + cw.Value + 1 + cw.Reset
}

func globalColWidths(sections []quota.Section) ColWidths {
	var cw ColWidths
	for _, s := range sections {
		for _, f := range s.Files {
			for _, m := range f.Models {
				cw.Name = max(cw.Name, lipgloss.Width(m.Name))
				cw.Pct = max(cw.Pct, len(formatPct(m.Percentage)))
				cw.Value = max(cw.Value, lipgloss.Width(m.DisplayValue))
				cw.Reset = max(cw.Reset, lipgloss.Width(resetLabel(m.ResetTime)))
			}
		}
	}
	return cw
}

func formatPct(p float64) string {
	return fmt.Sprintf("%.0f%%", p)
}

func resetLabel(reset string) string {
	if reset == "" || reset == "-" {
		return ""
	}
	return reset
}

// buildModelTable renders model rows as borderless lipgloss tables, one row
// per table so widths come from cw rather than the row contents.
func buildModelTable(rows []models.QuotaModel, cw ColWidths) string {
	styleFunc := func(_ int, col int) lipgloss.Style {
		switch col {
		case 0:
			return lipgloss.NewStyle().Width(cw.Name + 2)
		case 2:
			return lipgloss.NewStyle().Width(cw.Pct).Align(lipgloss.Right)
		case 3:
			return lipgloss.NewStyle().Width(cw.Value).Foreground(lipgloss.Color("240"))
		case 4:
			return lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		}
		return lipgloss.NewStyle()
	}

	var lines []string
	for _, m := range rows {
		color := RemainingColor(m.Percentage)
		t := table.New().
			Border(lipgloss.HiddenBorder()).
			StyleFunc(styleFunc).
			Row("  "+m.Name, RenderBar(m.Percentage, BarWidth, color),
				colorStyle(color).Render(formatPct(m.Percentage)), m.DisplayValue, resetLabel(m.ResetTime))
		lines = append(lines, cleanTableOutput(t.Render()))
	}
	return strings.Join(lines, "\n")
}

// cleanTableOutput strips the single leading border space and trailing
// whitespace from each line of rendered table output, and removes empty lines.
func cleanTableOutput(rendered string) string {
	lines := strings.Split(rendered, "\n")
	var cleaned []string
	for _, line := range lines {
		// Remove exactly one leading space (the hidden border left edge).
		line = strings.TrimPrefix(line, " ")
		line = strings.TrimRight(line, " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

func renderTitledPanel(title string, body string, minWidth int) string {
	lines := strings.Split(body, "\n")

	bodyWidth := minWidth
	for _, line := range lines {
		bodyWidth = max(bodyWidth, lipgloss.Width(line))
	}

	bodyWidth = max(bodyWidth, lipgloss.Width(title)-1)
	innerWidth := bodyWidth + 2
	top := separatorStyle.Render("╭─") + title + separatorStyle.Render(strings.Repeat("─", max(0, innerWidth-lipgloss.Width(title)-1))+"╮")
	bottom := separatorStyle.Render("╰" + strings.Repeat("─", innerWidth) + "╯")

	rows := make([]string, 0, len(lines)+2)
	rows = append(rows, top)
	for _, line := range lines {
		pad := strings.Repeat(" ", max(0, bodyWidth-lipgloss.Width(line)))
		rows = append(rows, separatorStyle.Render("│")+" "+line+pad+" "+separatorStyle.Render("│"))
	}
	rows = append(rows, bottom)

	return strings.Join(rows, "\n")
}

// RenderError renders a compact error line, with a hint when the management
// key is the likely cause.
func RenderError(msg string) string {
	line := redStyle.Render(msg)
	if isAuthError(msg) {
		line += dimStyle.Render("  (zerolimit config set-server <url> --key <management key>)")
	}
	return line
}

func isAuthError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, s := range []string{"401", "403", "unauthorized", "management key", "forbidden"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
