package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/display"
	"github.com/joshuadavidthomas/zerolimit/internal/history"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/notify"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
	"github.com/joshuadavidthomas/zerolimit/internal/quota"
	"github.com/joshuadavidthomas/zerolimit/internal/spinner"
)

var quotaCmd = &cobra.Command{
	Use:   "quota [provider]",
	Short: "Show remaining quota for stored credentials",
	Long: "Fetch the remaining quota of every credential stored on the management server, " +
		"or only those of one provider.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var only []provider.Type
		if len(args) == 1 {
			p, err := provider.Parse(args[0])
			if err != nil {
				return err
			}
			only = []provider.Type{p}
		}
		return runQuota(cmd.Context(), only)
	},
}

// quotaOutput is the structured form of the quota command.
type quotaOutput struct {
	Sections  []quota.Section `json:"sections" yaml:"sections"`
	FetchedAt string          `json:"fetched_at" yaml:"fetched_at"`
}

func runQuota(ctx context.Context, only []provider.Type) error {
	cfg := config.Get()
	mask := masker(cfg)

	showSpinner := spinner.ShouldShow(quiet, structuredOutput(), !isTerminal())
	sections, err := fetchSections(ctx, cfg, only, showSpinner)
	if err != nil {
		return err
	}

	if structuredOutput() {
		return outputStructured(quotaOutput{
			Sections:  quota.Mask(sections, mask),
			FetchedAt: time.Now().Format(time.RFC3339),
		})
	}

	if quiet {
		for _, s := range sections {
			for _, f := range s.Files {
				name := mask.Folder(privacy.FormatName(f.Filename))
				for _, m := range f.Models {
					out("%s %s %s: %.0f%%\n", s.Key, name, m.Name, m.Percentage)
				}
			}
		}
		return nil
	}

	outln(display.RenderSections(sections, display.Options{Masker: mask}))
	return nil
}

// fetchSections loads every credential, fetches quota for those of the
// requested providers (all when only is empty) and waits for the results.
// Results are recorded to history and checked for low quota on the way.
func fetchSections(ctx context.Context, cfg config.Config, only []provider.Type, showSpinner bool) ([]quota.Section, error) {
	logger := logging.FromContext(ctx)
	mask := masker(cfg)

	orch := quota.New(newManagementClient(cfg), quota.Config{
		MaxConcurrent: cfg.Fetch.MaxConcurrent,
		Providers:     only,
	})

	if store := openHistory(ctx, cfg); store != nil {
		defer closeHistory(ctx, store)
		orch.OnResult(recordHistory(store))
	}
	if cfg.Notify.Enabled {
		orch.OnResult(notify.New(nil, cfg.Display.LowThreshold, mask).CheckQuota)
	}

	start := time.Now()
	var loadErr error
	if showSpinner {
		err := spinner.Run(progressWriter, func(track *spinner.Tracker) {
			orch.OnResult(func(_ context.Context, f quota.FileQuota) {
				track.Complete(spinner.CompletionInfo{ID: f.FileID, Success: f.Error == "", Error: f.Error})
			})
			loadErr = orch.LoadCredentials(ctx)
			if loadErr == nil {
				track.Add(spinnerTasks(orch.Sections(), mask)...)
			}
			orch.Wait()
		})
		if err != nil {
			return nil, fmt.Errorf("spinner error: %w", err)
		}
	} else {
		loadErr = orch.LoadCredentials(ctx)
		orch.Wait()
	}
	if loadErr != nil {
		return nil, loadErr
	}

	sections := filterSections(orch.Sections(), only)
	logger.Debug("fetch complete", "total_duration_ms", time.Since(start).Milliseconds(), "sections", len(sections))
	return sections, nil
}

// filterSections keeps only the sections of the requested providers.
func filterSections(sections []quota.Section, only []provider.Type) []quota.Section {
	if len(only) == 0 {
		return sections
	}
	var kept []quota.Section
	for _, s := range sections {
		for _, p := range only {
			if s.Provider == p {
				kept = append(kept, s)
				break
			}
		}
	}
	return kept
}

// spinnerTasks lists the credentials that are being fetched.
func spinnerTasks(sections []quota.Section, mask privacy.Masker) []spinner.Task {
	var tasks []spinner.Task
	for _, s := range sections {
		for _, f := range s.Files {
			if !f.Loading {
				continue
			}
			tasks = append(tasks, spinner.Task{
				ID:    f.FileID,
				Label: mask.Folder(privacy.FormatName(f.Filename)),
			})
		}
	}
	return tasks
}

// openHistory opens the history store when recording is enabled. Failures
// are logged; quota output never depends on history.
func openHistory(ctx context.Context, cfg config.Config) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.FromContext(ctx).Warn("history disabled", "err", err)
		return nil
	}
	return store
}

func closeHistory(ctx context.Context, store *history.Store) {
	logger := logging.FromContext(ctx)
	if n, err := store.Prune(ctx); err != nil {
		logger.Debug("pruning history failed", "err", err)
	} else if n > 0 {
		logger.Debug("pruned history", "rows", n)
	}
	if err := store.Close(); err != nil {
		logger.Debug("closing history failed", "err", err)
	}
}

// recordHistory returns an OnResult hook that stores successful fetches.
func recordHistory(store *history.Store) func(context.Context, quota.FileQuota) {
	return func(ctx context.Context, f quota.FileQuota) {
		if f.Error != "" || len(f.Models) == 0 {
			return
		}
		if err := store.Record(ctx, f.Filename, f.ProviderKey, f.Models); err != nil {
			logging.FromContext(ctx).Warn("recording history failed", "file", f.Filename, "err", err)
		}
	}
}
