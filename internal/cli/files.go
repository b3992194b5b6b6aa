package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/display"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
	"github.com/joshuadavidthomas/zerolimit/internal/prompt"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage credential files stored on the server",
}

// fileEntry is the structured form of one stored credential.
type fileEntry struct {
	Name     string `json:"name" yaml:"name"`
	Provider string `json:"provider" yaml:"provider"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Disabled bool   `json:"disabled" yaml:"disabled"`
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		mask := masker(cfg)

		creds, err := newManagementClient(cfg).ListAuthFiles(cmd.Context())
		if err != nil {
			return err
		}

		if structuredOutput() {
			entries := make([]fileEntry, 0, len(creds))
			for _, c := range creds {
				disabled, _ := c.Field("disabled").(bool)
				entries = append(entries, fileEntry{
					Name:     mask.Folder(c.Name()),
					Provider: provider.Classify(c).ID(),
					Email:    mask.Email(c.Email()),
					Disabled: disabled,
				})
			}
			return outputStructured(entries)
		}

		if quiet {
			for _, c := range creds {
				outln(mask.Folder(c.Name()))
			}
			return nil
		}

		outln(display.RenderFiles(creds, mask, noColor))
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete [name...]",
	Short: "Delete stored credentials",
	Long: "Delete credentials by file name, or every credential with --all. " +
		"With no arguments in a terminal, pick the files to delete interactively.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := logging.FromContext(ctx)
		all, _ := cmd.Flags().GetBool("all")
		yes, _ := cmd.Flags().GetBool("yes")

		if all && len(args) > 0 {
			return errors.New("pass file names or --all, not both")
		}

		cfg := config.Get()
		client := newManagementClient(cfg)

		if all {
			if !yes && !structuredOutput() {
				ok, err := prompt.Default.Confirm(prompt.ConfirmConfig{
					Title:       "Delete every stored credential?",
					Description: "Linked accounts must be re-authenticated afterwards.",
				})
				if err != nil {
					return err
				}
				if !ok {
					outln("Delete cancelled")
					return nil
				}
			}
			if err := client.DeleteAllAuthFiles(ctx); err != nil {
				return err
			}
			logger.Info("deleted all credentials")
			if structuredOutput() {
				return outputStructured(actionResult{Success: true, Message: "All credentials deleted"})
			}
			outln("✓ All credentials deleted")
			return nil
		}

		names := args
		if len(names) == 0 {
			if structuredOutput() || !isTerminal() {
				return errors.New("specify file names to delete, or --all")
			}
			creds, err := client.ListAuthFiles(ctx)
			if err != nil {
				return err
			}
			names, err = selectFiles(creds, masker(cfg))
			if err != nil {
				return err
			}
			if len(names) == 0 {
				outln("Nothing selected")
				return nil
			}
		}

		for _, name := range names {
			if err := client.DeleteAuthFile(ctx, name); err != nil {
				return fmt.Errorf("deleting %s: %w", name, err)
			}
			logger.Debug("deleted credential", "file", name)
			if !structuredOutput() && !quiet {
				out("✓ Deleted %s\n", name)
			}
		}
		if structuredOutput() {
			return outputStructured(actionResult{Success: true, Files: names})
		}
		return nil
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path...>",
	Short: "Upload credential files to the server",
	Long:  "Upload local auth JSON files, for example ones exported from another proxy instance.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := newManagementClient(config.Get())

		var uploaded []string
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if !json.Valid(data) {
				return fmt.Errorf("%s is not valid JSON", path)
			}
			name := filepath.Base(path)
			if err := client.UploadAuthFile(ctx, name, data); err != nil {
				return err
			}
			logging.FromContext(ctx).Debug("uploaded credential", "file", name, "bytes", len(data))
			uploaded = append(uploaded, name)
			if !structuredOutput() && !quiet {
				out("✓ Uploaded %s\n", name)
			}
		}
		if structuredOutput() {
			return outputStructured(actionResult{Success: true, Files: uploaded})
		}
		return nil
	},
}

// selectFiles asks which credentials to delete.
func selectFiles(creds []models.Credential, mask privacy.Masker) ([]string, error) {
	if len(creds) == 0 {
		return nil, nil
	}
	opts := make([]prompt.SelectOption, 0, len(creds))
	for _, c := range creds {
		label := mask.Folder(privacy.FormatName(c.Name()))
		if p := provider.Classify(c); p != provider.Unknown {
			label += " (" + p.DisplayName() + ")"
		}
		opts = append(opts, prompt.SelectOption{Label: label, Value: c.Name()})
	}
	return prompt.Default.MultiSelect(prompt.MultiSelectConfig{
		Title:       "Delete credentials",
		Description: "Space to select, enter to confirm.",
		Options:     opts,
	})
}

func init() {
	filesDeleteCmd.Flags().Bool("all", false, "Delete every stored credential")
	filesDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")

	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesDeleteCmd)
	filesCmd.AddCommand(filesUploadCmd)
}
