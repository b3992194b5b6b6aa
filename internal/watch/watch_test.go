package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joshuadavidthomas/zerolimit/internal/events"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create json", fsnotify.Event{Name: "/a/codex.json", Op: fsnotify.Create}, true},
		{"write json", fsnotify.Event{Name: "/a/codex.json", Op: fsnotify.Write}, true},
		{"remove json", fsnotify.Event{Name: "/a/codex.JSON", Op: fsnotify.Remove}, true},
		{"rename json", fsnotify.Event{Name: "/a/codex.json", Op: fsnotify.Rename}, true},
		{"chmod json", fsnotify.Event{Name: "/a/codex.json", Op: fsnotify.Chmod}, false},
		{"temp file", fsnotify.Event{Name: "/a/codex.json.tmp", Op: fsnotify.Create}, false},
		{"other file", fsnotify.Event{Name: "/a/notes.txt", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestDir_PublishesDebouncedReload(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Dir(ctx, dir, bus, 20*time.Millisecond) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Dir() error = %v", err)
		}
	}()

	// Give the watcher time to register before writing.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		path := filepath.Join(dir, "kiro-"+string(rune('a'+i%26))+".json")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		select {
		case req := <-sub.C:
			if req.Reason != Reason {
				t.Errorf("Reason = %q, want %q", req.Reason, Reason)
			}
			return
		case <-ticker.C:
		case <-deadline:
			t.Fatal("no reload request published")
		}
	}
}

func TestDir_MissingDirectory(t *testing.T) {
	err := Dir(context.Background(), filepath.Join(t.TempDir(), "missing"), events.NewBus(), 0)
	if err == nil {
		t.Fatal("Dir() should fail for a missing directory")
	}
}
