package cli

import (
	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/display"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the management server's request log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		after, _ := cmd.Flags().GetInt64("after")
		limit, _ := cmd.Flags().GetInt("limit")

		logs, err := newManagementClient(config.Get()).Logs(ctx, after, limit)
		if err != nil {
			return err
		}
		logging.FromContext(ctx).Debug("fetched logs", "lines", logs.LineCount, "latest_timestamp", logs.LatestTimestamp)

		if structuredOutput() {
			return outputStructured(logs)
		}
		outln(display.RenderLogs(logs.Lines))
		return nil
	},
}

func init() {
	logsCmd.Flags().Int64("after", 0, "Only lines newer than this unix timestamp")
	logsCmd.Flags().Int("limit", 0, "Maximum number of lines (0 for the server default)")
}
