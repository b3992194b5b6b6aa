package display

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var credentialHeaders = []string{"Name", "Provider", "Email", "Status"}

const statusCol = 3

// credentialTable renders credential rows in a rounded table with a count
// caption. The status column is tinted unless noColor is set.
func credentialTable(rows [][]string, noColor bool) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if noColor {
		headerStyle = cellStyle
		borderStyle = lipgloss.NewStyle()
	}

	t := table.New().
		Headers(credentialHeaders...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if noColor || col != statusCol || row < 0 || row >= len(rows) {
				return cellStyle
			}
			return cellStyle.Foreground(credentialStatusColor(rows[row][statusCol]))
		})

	caption := fmt.Sprintf("%d credentials", len(rows))
	if !noColor {
		caption = dimStyle.Render(caption)
	}
	return t.String() + "\n" + caption
}

func credentialStatusColor(status string) lipgloss.Color {
	switch status {
	case "active":
		return lipgloss.Color("2")
	case "disabled":
		return lipgloss.Color("8")
	}
	return lipgloss.Color("3")
}
