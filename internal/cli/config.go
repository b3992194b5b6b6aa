package cli

import (
	"errors"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration settings",
}

// configShow is the structured form of config show. The management key is
// never printed, only whether one is set.
type configShow struct {
	Path   string        `json:"path" yaml:"path"`
	KeySet bool          `json:"management_key_set" yaml:"management_key_set"`
	Config config.Config `json:"config" yaml:"config"`
}

func redacted(cfg config.Config) config.Config {
	if cfg.Server.ManagementKey != "" {
		cfg.Server.ManagementKey = "********"
	}
	return cfg
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		cfgPath := config.ConfigFile()

		if structuredOutput() {
			return outputStructured(configShow{
				Path:   cfgPath,
				KeySet: cfg.Server.ManagementKey != "",
				Config: redacted(cfg),
			})
		}

		if quiet {
			outln(cfgPath)
			return nil
		}

		out("Config: %s\n\n", cfgPath)
		return toml.NewEncoder(outWriter).Encode(redacted(cfg))
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show directory paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if structuredOutput() {
			return outputStructured(map[string]string{
				"config_dir":   config.ConfigDir(),
				"config_file":  config.ConfigFile(),
				"data_dir":     config.DataDir(),
				"history_file": cfg.HistoryPath(),
			})
		}

		if quiet {
			outln(config.ConfigDir())
			return nil
		}

		out("Config dir:    %s\n", config.ConfigDir())
		out("Config file:   %s\n", config.ConfigFile())
		out("Data dir:      %s\n", config.DataDir())
		out("History:       %s\n", cfg.HistoryPath())
		return nil
	},
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server <api-base>",
	Short: "Set the management server address and key",
	Long: "Store the management server address (host:port or URL) and, with --key, " +
		"the management key. The key is kept when --key is omitted.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		if strings.TrimSpace(args[0]) == "" {
			return errors.New("server address cannot be empty")
		}

		cfg, err := config.SetServer(args[0], key)
		if err != nil {
			return err
		}

		if structuredOutput() {
			return outputStructured(actionResult{Success: true, Message: "Server set to " + cfg.Server.APIBase})
		}
		out("✓ Server set to %s\n", cfg.Server.APIBase)
		if cfg.Server.ManagementKey == "" && !quiet {
			outln("  No management key configured; pass --key or set ZEROLIMIT_MANAGEMENT_KEY.")
		}
		return nil
	},
}

func init() {
	configSetServerCmd.Flags().String("key", "", "Management key")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetServerCmd)
}
