package cli

import (
	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/display"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
)

var statuslineCmd = &cobra.Command{
	Use:   "statusline",
	Short: "Show condensed quota for status widgets",
	Long: `Display condensed remaining quota suitable for status bars, widgets,
and terminal multiplexers like tmux, i3blocks, sketchybar, or waybar.

Output modes:
  (default)  Visual bars with remaining percentage
  --short    Compact text format
  --json     Machine-readable JSON for scripts

Examples:
  zerolimit statusline                        # Pretty format, all providers
  zerolimit statusline --short                # Short format
  zerolimit statusline -p claude              # Only Claude credentials
  zerolimit statusline -p claude -p codex -n 1  # Lowest model per credential`,
	RunE: runStatusline,
}

var (
	statuslineShort     bool
	statuslineLimit     int
	statuslineProviders []string
)

func init() {
	statuslineCmd.Flags().BoolVarP(&statuslineShort, "short", "s", false, "Compact text format")
	statuslineCmd.Flags().IntVarP(&statuslineLimit, "limit", "n", 0, "Max models to show per credential (0 = all)")
	statuslineCmd.Flags().StringArrayVarP(&statuslineProviders, "provider", "p", nil, "Provider to show (repeatable). Defaults to all.")
}

func runStatusline(cmd *cobra.Command, args []string) error {
	var only []provider.Type
	for _, id := range statuslineProviders {
		p, err := provider.Parse(id)
		if err != nil {
			return err
		}
		only = append(only, p)
	}

	cfg := config.Get()
	sections, err := fetchSections(cmd.Context(), cfg, only, false)
	if err != nil {
		return err
	}

	var mode display.StatuslineMode
	switch {
	case jsonOutput:
		mode = display.StatuslineModeJSON
	case statuslineShort:
		mode = display.StatuslineModeShort
	default:
		mode = display.StatuslineModePretty
	}

	return display.RenderStatusline(outWriter, sections, display.StatuslineOptions{
		Mode:    mode,
		Limit:   statuslineLimit,
		NoColor: noColor,
		Masker:  masker(cfg),
	})
}
