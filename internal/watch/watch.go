// Package watch turns changes in a local auth directory into reload
// requests.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joshuadavidthomas/zerolimit/internal/events"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
)

// DefaultDebounce groups bursts of writes into a single reload.
const DefaultDebounce = 500 * time.Millisecond

// Reason is attached to the reload requests the watcher publishes.
const Reason = "auth directory changed"

// Dir watches dir and publishes a reload on bus after .json files are
// created, written, removed or renamed. It blocks until ctx ends.
func Dir(ctx context.Context, dir string, bus *events.Bus, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := logging.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("watching auth directory", "dir", dir)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("auth file changed", "file", filepath.Base(event.Name), "op", event.Op.String())
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				bus.RequestReload(Reason)
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// The periodic refresh still picks up changes.
			logger.Warn("watcher error", "err", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
