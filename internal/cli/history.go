package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/display"
	"github.com/joshuadavidthomas/zerolimit/internal/history"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
)

var historyCmd = &cobra.Command{
	Use:   "history <file>",
	Short: "Chart recorded quota for a credential",
	Long: "Plot the remaining quota recorded by previous quota fetches. " +
		"<file> is the credential name as shown by 'zerolimit files list'.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		model, _ := cmd.Flags().GetString("model")
		since, _ := cmd.Flags().GetDuration("since")
		if since <= 0 {
			return errors.New("--since must be positive")
		}

		cfg := config.Get()
		path := cfg.HistoryPath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no history recorded yet (%s)", path)
		}
		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		file := privacy.FormatName(args[0])
		samples, err := store.Series(ctx, file, model, time.Now().Add(-since))
		if err != nil {
			return err
		}

		if structuredOutput() {
			if samples == nil {
				samples = []history.Sample{}
			}
			return outputStructured(samples)
		}

		if len(samples) == 0 {
			known, err := store.Models(ctx, file)
			if err != nil {
				return err
			}
			if len(known) == 0 {
				return fmt.Errorf("no history for %s", file)
			}
			out("No samples for %s in the last %s\n", file, since)
			return nil
		}

		if quiet {
			latest := make(map[string]history.Sample)
			var order []string
			for _, s := range samples {
				if _, seen := latest[s.Model]; !seen {
					order = append(order, s.Model)
				}
				latest[s.Model] = s
			}
			for _, m := range order {
				out("%s: %.0f%%\n", m, latest[m].Percentage)
			}
			return nil
		}

		label := masker(cfg).Folder(file)
		outln(display.RenderChart(samples, display.ChartOptions{
			Width:   display.TerminalWidth() - 12,
			Height:  12,
			Caption: fmt.Sprintf("%s remaining %% over the last %s", label, since),
		}))
		return nil
	},
}

func init() {
	historyCmd.Flags().StringP("model", "m", "", "Only chart this model")
	historyCmd.Flags().Duration("since", 24*time.Hour, "How far back to chart")
}
