package cli

import (
	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Show the zerolimit version and, with --server, the management server's version.",
	RunE: func(cmd *cobra.Command, args []string) error {
		withServer, _ := cmd.Flags().GetBool("server")
		if !withServer {
			return printVersion()
		}

		client := newManagementClient(config.Get())
		// Any management request reports the server version in its headers.
		if _, err := client.ListAuthFiles(cmd.Context()); err != nil {
			return err
		}
		info := client.ServerInfo()
		if structuredOutput() {
			return outputStructured(map[string]string{
				"version":           version,
				"server_version":    info.Version,
				"server_build_date": info.BuildDate,
			})
		}
		out("zerolimit %s\n", version)
		out("server    %s", orUnknown(info.Version))
		if info.BuildDate != "" {
			out(" (%s)", info.BuildDate)
		}
		outln()
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("server", false, "Also query the management server version")
}

func printVersion() error {
	if structuredOutput() {
		return outputStructured(map[string]string{"version": version})
	}
	out("zerolimit %s\n", version)
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
