package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/display"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
)

// version is injected at build time via -ldflags.
var version = "dev"

var (
	jsonOutput  bool
	yamlOutput  bool
	noColor     bool
	verbose     bool
	quiet       bool
	showPrivate bool
)

var rootCmd = &cobra.Command{
	Use:   "zerolimit",
	Short: "Track AI provider quota through a CLIProxyAPI management server",
	Long: "zerolimit lists the OAuth credentials stored on a CLIProxyAPI management server, " +
		"reports the remaining quota of each (Antigravity, Codex, Gemini CLI, Kiro, Copilot, Claude) " +
		"and links new accounts.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose && quiet {
			verbose = false
		}
		l := newConfiguredLogger(false)
		ctx := logging.WithLogger(cmd.Context(), l)
		cmd.SetContext(ctx)

		// Load config from disk so malformed files surface a warning.
		cfg, err := config.Init()
		if err != nil {
			l.Warn("config file is malformed, using defaults", "err", err)
		}
		if noColor || cfg.Display.NoColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			return printVersion()
		}
		return runQuota(cmd.Context(), nil)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&yamlOutput, "yaml", false, "Output as YAML")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")
	rootCmd.PersistentFlags().BoolVar(&showPrivate, "show-private", false, "Show emails and account names unmasked")
	rootCmd.Flags().Bool("version", false, "Show version and exit")

	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statuslineCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// ExecuteContext runs the root command with the given context.
// Commands access it via cmd.Context(). Errors are printed to stderr.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, display.RenderError(err.Error()))
	}
	return err
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
