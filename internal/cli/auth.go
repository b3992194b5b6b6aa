package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/connect"
	"github.com/joshuadavidthomas/zerolimit/internal/deviceflow"
	"github.com/joshuadavidthomas/zerolimit/internal/display"
	"github.com/joshuadavidthomas/zerolimit/internal/events"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/notify"
	"github.com/joshuadavidthomas/zerolimit/internal/prompt"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
)

// openBrowser opens auth URLs. Tests replace it.
var openBrowser = deviceflow.OpenBrowser

var authCmd = &cobra.Command{
	Use:   "auth [provider]",
	Short: "Link a provider account through the management server",
	Long: "Start the OAuth flow for a provider, open the browser and wait until the server " +
		"stores the new credential. Pass --callback-url to hand over a redirect URL the " +
		"browser could not deliver.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			p   provider.Type
			err error
		)
		if len(args) == 1 {
			p, err = provider.Parse(args[0])
		} else {
			p, err = selectProvider()
		}
		if err != nil {
			return err
		}

		projectID, _ := cmd.Flags().GetString("project-id")
		callbackURL, _ := cmd.Flags().GetString("callback-url")
		local, _ := cmd.Flags().GetBool("local")

		m := newMachine(config.Get(), nil, openBrowser)
		defer m.Close()

		if callbackURL != "" {
			return submitCallback(cmd.Context(), m, p, callbackURL)
		}
		return authProvider(cmd.Context(), m, p, connect.StartOptions{ProjectID: projectID, Local: local})
	},
}

func init() {
	authCmd.Flags().String("project-id", "", "Google Cloud project id (gemini-cli)")
	authCmd.Flags().String("callback-url", "", "Submit the redirect URL from the browser instead of starting a new flow")
	authCmd.Flags().Bool("local", false, "Run the GitHub device flow locally (copilot)")
}

// newMachine builds the connection machine. bus, when set, receives a reload
// request after every successful link.
func newMachine(cfg config.Config, bus *events.Bus, openURL func(string) error) *connect.Machine {
	mc := connect.Config{
		StatePoll:    cfg.Auth.StatePoll(),
		SnapshotPoll: cfg.Auth.SnapshotPoll(),
		KiroPoll:     cfg.Auth.KiroPoll(),
		Capability: connect.Capability{
			InstalledVersion: cfg.Auth.InstalledVersion,
			ExePath:          cfg.Auth.ExePath,
		},
		OpenURL: openURL,
		Bus:     bus,
	}
	if cfg.Notify.Enabled {
		mc.Notifier = notify.New(nil, cfg.Display.LowThreshold, masker(cfg))
	}
	return connect.New(newManagementClient(cfg), mc)
}

// selectProvider asks which provider to link when none was given.
func selectProvider() (provider.Type, error) {
	if structuredOutput() || !isTerminal() {
		return provider.Unknown, errors.New("specify a provider. Available: " + strings.Join(provider.IDs(), ", "))
	}
	opts := make([]prompt.SelectOption, len(provider.All))
	for i, p := range provider.All {
		opts[i] = prompt.SelectOption{Label: p.DisplayName(), Value: p.ID()}
	}
	id, err := prompt.Default.Select(prompt.SelectConfig{
		Title:   "Which provider do you want to link?",
		Options: opts,
	})
	if err != nil {
		return provider.Unknown, err
	}
	return provider.Parse(id)
}

func authProvider(ctx context.Context, m *connect.Machine, p provider.Type, opts connect.StartOptions) error {
	logger := logging.FromContext(ctx)
	interactive := !structuredOutput() && !quiet

	if p.RequiresProjectID() && opts.ProjectID == "" && interactive && isTerminal() {
		id, err := prompt.Default.Input(prompt.InputConfig{
			Title:       "Google Cloud project id (leave empty to let the server choose)",
			Placeholder: "my-project-123",
			Validate:    prompt.ValidateProjectID,
		})
		if err != nil {
			return err
		}
		opts.ProjectID = strings.TrimSpace(id)
	}

	st, err := m.StartAuth(ctx, p, opts)
	if err != nil {
		if structuredOutput() {
			_ = outputStructured(st)
		}
		return err
	}
	if interactive {
		outln(display.RenderConnection(p, st))
		if p.WebUI() {
			outln()
			out("If the browser cannot reach the callback, run:\n  zerolimit auth %s --callback-url '<redirect url>'\n", p.ID())
		}
	}

	logger.Debug("waiting for authorization", "provider", p.ID(), "attempt", st.Attempt)
	final, err := m.Await(ctx, p)
	if err != nil {
		m.Cancel(p)
		return err
	}
	return reportConnection(p, final)
}

func submitCallback(ctx context.Context, m *connect.Machine, p provider.Type, url string) error {
	if err := m.SubmitCallback(ctx, p, url); err != nil {
		return err
	}
	return reportConnection(p, m.State(p))
}

func reportConnection(p provider.Type, st connect.State) error {
	if structuredOutput() {
		if err := outputStructured(st); err != nil {
			return err
		}
	} else if !quiet {
		outln(display.RenderConnection(p, st))
	}
	if st.Status == connect.StatusError {
		return errors.New(st.Error)
	}
	return nil
}
