package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/display"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/usage"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show request statistics recorded by the management server",
	Long: "Summarize requests and tokens per API key and model. The server only " +
		"records these when usage-statistics-enabled is on.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		by, _ := cmd.Flags().GetString("by")
		grouping, err := usage.ParseGrouping(by)
		if err != nil {
			return err
		}

		cfg := config.Get()
		resp, err := newManagementClient(cfg).Usage(ctx)
		if err != nil {
			return err
		}
		stats := usage.Summarize(resp, grouping, time.Local).Mask(masker(cfg))
		logging.FromContext(ctx).Debug("fetched usage", "requests", stats.Totals.Requests, "models", len(stats.Models), "periods", len(stats.Trends))

		if structuredOutput() {
			return outputStructured(stats)
		}
		if quiet {
			t := stats.Totals
			out("requests: %d\ntokens: %d\nfailed: %d\n", t.Requests, t.Tokens, t.Failed)
			return nil
		}
		outln(display.RenderUsage(stats, display.UsageOptions{
			Width:   display.TerminalWidth() - 12,
			NoColor: noColor || cfg.Display.NoColor,
		}))
		return nil
	},
}

func init() {
	usageCmd.Flags().String("by", string(usage.ByDay), "Trend period: day or hour")
}
