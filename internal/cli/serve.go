package cli

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/events"
	"github.com/joshuadavidthomas/zerolimit/internal/history"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/metrics"
	"github.com/joshuadavidthomas/zerolimit/internal/notify"
	"github.com/joshuadavidthomas/zerolimit/internal/quota"
	"github.com/joshuadavidthomas/zerolimit/internal/server"
	"github.com/joshuadavidthomas/zerolimit/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve quota and connections over HTTP with Prometheus metrics",
	Long: "Keep every credential's quota current and expose it as a JSON API and " +
		"Prometheus metrics. Credentials reload on an interval, after a provider is " +
		"linked, and when the watched auth directory changes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Serve.Addr = addr
		}
		if dir, _ := cmd.Flags().GetString("watch-dir"); dir != "" {
			cfg.Serve.WatchDir = dir
		}

		ctx := logging.WithLogger(cmd.Context(), newConfiguredLogger(true))
		return runServe(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	serveCmd.Flags().String("watch-dir", "", "Reload when credential files in this directory change")
}

// noBrowser is the serve-mode URL opener: the API client opens the URL.
func noBrowser(string) error { return nil }

func runServe(ctx context.Context, cfg config.Config) error {
	logger := logging.FromContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := events.NewBus()
	orch := quota.New(newManagementClient(cfg), quota.Config{MaxConcurrent: cfg.Fetch.MaxConcurrent})
	m := metrics.New("zerolimit")
	orch.OnResult(m.ObserveResult)

	store := openHistory(ctx, cfg)
	if store != nil {
		defer closeHistory(ctx, store)
		orch.OnResult(recordHistory(store))
	}
	if cfg.Notify.Enabled {
		orch.OnResult(notify.New(nil, cfg.Display.LowThreshold, masker(cfg)).CheckQuota)
	}

	machine := newMachine(cfg, bus, noBrowser)
	defer machine.Close()

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { m.Follow(ctx, orch) })
	run(func() { orch.Watch(ctx, bus) })
	run(func() { refreshLoop(ctx, bus, store, cfg.Serve.Refresh()) })
	if dir := cfg.Serve.WatchDir; dir != "" {
		run(func() {
			if err := watch.Dir(ctx, dir, bus, watch.DefaultDebounce); err != nil {
				logger.Warn("not watching auth directory", "dir", dir, "err", err)
			}
		})
	}

	if err := orch.LoadCredentials(ctx); err != nil {
		logger.Warn("initial credential load failed", "err", err)
	}

	srv := server.New(orch, bus, machine, m, masker(cfg))
	err := srv.Run(ctx, cfg.Serve.Addr)
	cancel()
	orch.Wait()
	return err
}

// refreshLoop requests a reload every interval and prunes old history.
func refreshLoop(ctx context.Context, bus *events.Bus, store *history.Store, interval time.Duration) {
	logger := logging.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		bus.RequestReload("scheduled refresh")
		if store == nil {
			continue
		}
		if n, err := store.Prune(ctx); err != nil {
			logger.Warn("pruning history failed", "err", err)
		} else if n > 0 {
			logger.Debug("pruned history", "rows", n)
		}
	}
}
