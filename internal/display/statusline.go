package display

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/joshuadavidthomas/zerolimit/internal/models"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
	"github.com/joshuadavidthomas/zerolimit/internal/quota"
)

// StatuslineMode determines the output format for statusline display.
type StatuslineMode string

const (
	StatuslineModePretty StatuslineMode = "pretty"
	StatuslineModeShort  StatuslineMode = "short"
	StatuslineModeJSON   StatuslineMode = "json"
)

// StatuslineOptions configures statusline rendering.
type StatuslineOptions struct {
	Mode    StatuslineMode
	Limit   int
	NoColor bool
	Masker  privacy.Masker
}

// StatuslineEntry is the JSON form of one credential.
type StatuslineEntry struct {
	File     string            `json:"file"`
	Provider string            `json:"provider"`
	Models   []StatuslineModel `json:"models,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// StatuslineModel is the remaining percentage of one model.
type StatuslineModel struct {
	Name      string  `json:"name"`
	Remaining float64 `json:"remaining"`
	ResetTime string  `json:"reset_time,omitempty"`
}

// RenderStatusline writes one condensed row per credential, most exhausted
// models first.
func RenderStatusline(w io.Writer, sections []quota.Section, opts StatuslineOptions) error {
	if opts.Mode == StatuslineModeJSON {
		return renderStatuslineJSON(w, sections, opts)
	}

	type row struct {
		label  string
		models []models.QuotaModel
	}
	var rows []row
	maxCols := 0
	for _, s := range sections {
		for _, f := range s.Files {
			if f.Error != "" || len(f.Models) == 0 {
				continue
			}
			ms := statuslineModels(f.Models, opts.Limit)
			rows = append(rows, row{label: opts.Masker.Folder(privacy.FormatName(f.Filename)), models: ms})
			maxCols = max(maxCols, len(ms))
		}
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "-")
		return err
	}

	showLabel := len(rows) > 1
	showBar := opts.Mode == StatuslineModePretty
	perModel := 2
	if showBar {
		perModel = 3
	}
	labelCols := 0
	if showLabel {
		labelCols = 1
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(_, col int) lipgloss.Style {
			if showLabel && col == 0 {
				return lipgloss.NewStyle().Bold(true)
			}
			switch (col - labelCols) % perModel {
			case 0:
				return lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
			case perModel - 1:
				return lipgloss.NewStyle().Align(lipgloss.Right)
			}
			return lipgloss.NewStyle()
		})

	for _, r := range rows {
		cells := make([]string, labelCols+maxCols*perModel)
		if showLabel {
			cells[0] = r.label
		}
		for i, m := range r.models {
			base := labelCols + i*perModel
			color := RemainingColor(m.Percentage)
			pct := formatPct(m.Percentage)
			if !opts.NoColor || showBar {
				pct = colorStyle(color).Render(pct)
			}
			cells[base] = m.Name
			if showBar {
				cells[base+1] = RenderBar(m.Percentage, 10, color)
			}
			cells[base+perModel-1] = pct
		}
		t.Row(cells...)
	}

	_, err := fmt.Fprintln(w, cleanTableOutput(t.Render()))
	return err
}

func renderStatuslineJSON(w io.Writer, sections []quota.Section, opts StatuslineOptions) error {
	entries := make([]StatuslineEntry, 0)
	for _, s := range sections {
		for _, f := range s.Files {
			if f.Loading {
				continue
			}
			e := StatuslineEntry{
				File:     opts.Masker.Folder(privacy.FormatName(f.Filename)),
				Provider: s.Key,
				Error:    f.Error,
			}
			for _, m := range statuslineModels(f.Models, opts.Limit) {
				e.Models = append(e.Models, StatuslineModel{
					Name:      m.Name,
					Remaining: m.Percentage,
					ResetTime: resetLabel(m.ResetTime),
				})
			}
			entries = append(entries, e)
		}
	}
	return OutputJSON(w, entries)
}

// statuslineModels orders models by remaining percentage, lowest first, and
// keeps at most limit of them (all when limit is 0).
func statuslineModels(ms []models.QuotaModel, limit int) []models.QuotaModel {
	sorted := make([]models.QuotaModel, len(ms))
	copy(sorted, ms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Percentage < sorted[j].Percentage
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
