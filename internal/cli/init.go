package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/connect"
	"github.com/joshuadavidthomas/zerolimit/internal/prompt"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
)

// initStatus is the structured form of the init command.
type initStatus struct {
	FirstRun    bool     `json:"first_run" yaml:"first_run"`
	APIBase     string   `json:"api_base" yaml:"api_base"`
	KeySet      bool     `json:"key_set" yaml:"key_set"`
	Reachable   bool     `json:"reachable" yaml:"reachable"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
	Credentials int      `json:"credentials" yaml:"credentials"`
	Providers   []string `json:"available_providers" yaml:"available_providers"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Run first-time setup wizard",
	Long: "Point zerolimit at a management server, check that it answers, " +
		"and link provider accounts. With --quick only the connection is checked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		quick, _ := cmd.Flags().GetBool("quick")
		ctx := cmd.Context()

		if structuredOutput() {
			return outputStructured(checkServer(ctx, config.Get()))
		}
		if quick || !isTerminal() {
			return quickSetup(ctx)
		}
		return interactiveWizard(ctx)
	},
}

func init() {
	initCmd.Flags().Bool("quick", false, "Only check the configured server, without prompts")
}

func isFirstRun() bool {
	_, err := os.Stat(config.ConfigFile())
	return os.IsNotExist(err)
}

// checkServer lists the stored credentials to see whether the configured
// server and key work.
func checkServer(ctx context.Context, cfg config.Config) initStatus {
	st := initStatus{
		FirstRun:  isFirstRun(),
		APIBase:   cfg.Server.APIBase,
		KeySet:    cfg.Server.ManagementKey != "",
		Providers: provider.IDs(),
	}
	creds, err := newManagementClient(cfg).ListAuthFiles(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Reachable = true
	st.Credentials = len(creds)
	return st
}

func quickSetup(ctx context.Context) error {
	st := checkServer(ctx, config.Get())
	if !st.Reachable {
		out("✗ Cannot reach %s: %s\n", st.APIBase, st.Error)
		outln("  Configure the server with: zerolimit config set-server <address> --key <key>")
		return nil
	}
	out("✓ Connected to %s (%d credentials)\n", st.APIBase, st.Credentials)
	if st.Credentials == 0 && !quiet {
		outln("  Link an account with: zerolimit auth <provider>")
	}
	return nil
}

func interactiveWizard(ctx context.Context) error {
	if quiet {
		outln("Use 'zerolimit config set-server' and 'zerolimit auth <provider>' to set up")
		return nil
	}

	cfg := config.Get()

	outln()
	outln("  ✨ Welcome to zerolimit!")
	outln()
	outln("  Track quota of the accounts stored on your CLIProxyAPI server.")
	outln()

	apiBase, err := prompt.Default.Input(prompt.InputConfig{
		Title:       "Management server address",
		Placeholder: cfg.Server.APIBase,
		Validate:    prompt.ValidateServerAddress,
	})
	if err != nil {
		return err
	}
	apiBase = strings.TrimSpace(apiBase)
	if apiBase == "" {
		apiBase = cfg.Server.APIBase
	}

	keyTitle := "Management key"
	if cfg.Server.ManagementKey != "" {
		keyTitle += " (leave empty to keep the current one)"
	}
	key, err := prompt.Default.Input(prompt.InputConfig{Title: keyTitle})
	if err != nil {
		return err
	}

	cfg, err = config.SetServer(apiBase, strings.TrimSpace(key))
	if err != nil {
		return err
	}

	st := checkServer(ctx, cfg)
	if !st.Reachable {
		out("\n  ✗ Cannot reach %s: %s\n", st.APIBase, st.Error)
		outln("    Fix the address or key and run: zerolimit init")
		return nil
	}
	out("\n  ✓ Connected to %s (%d credentials)\n\n", st.APIBase, st.Credentials)

	linked := linkedProviders(ctx, cfg)
	options := make([]prompt.SelectOption, 0, len(provider.All))
	for _, p := range provider.All {
		label := p.DisplayName()
		if linked[p] {
			label = "✓ " + label
		}
		options = append(options, prompt.SelectOption{Label: label, Value: p.ID()})
	}

	selected, err := prompt.Default.MultiSelect(prompt.MultiSelectConfig{
		Title:       "Choose providers to link",
		Description: "Space to select, Enter to confirm",
		Options:     options,
	})
	if err != nil {
		return err
	}

	if len(selected) == 0 {
		outln("No providers selected. You can link accounts later:")
		outln("  zerolimit auth <provider>")
		return nil
	}

	m := newMachine(cfg, nil, openBrowser)
	defer m.Close()

	var succeeded, failed []string
	for _, id := range selected {
		p, err := provider.Parse(id)
		if err != nil {
			continue
		}
		outln()
		if err := authProvider(ctx, m, p, connect.StartOptions{}); err != nil {
			out("  ✗ %s: %v\n", p.DisplayName(), err)
			failed = append(failed, id)
		} else {
			succeeded = append(succeeded, id)
		}
	}

	outln()
	if len(succeeded) > 0 {
		out("  ✓ Linked: %s\n", strings.Join(succeeded, ", "))
	}
	if len(failed) > 0 {
		out("  ✗ Failed: %s\n", strings.Join(failed, ", "))
		outln("    Retry with: zerolimit auth <provider>")
	}
	outln()
	outln("  Run 'zerolimit' to see your quota.")
	return nil
}

// linkedProviders reports which providers already have a stored credential.
func linkedProviders(ctx context.Context, cfg config.Config) map[provider.Type]bool {
	linked := make(map[provider.Type]bool)
	creds, err := newManagementClient(cfg).ListAuthFiles(ctx)
	if err != nil {
		return linked
	}
	for _, c := range creds {
		linked[provider.Classify(c)] = true
	}
	return linked
}
