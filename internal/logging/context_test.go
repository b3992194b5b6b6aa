package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
)

func TestWithLogger_StoresLoggerInContext(t *testing.T) {
	l := NewLogger(&bytes.Buffer{})
	ctx := WithLogger(context.Background(), l)

	got := FromContext(ctx)
	if got != l {
		t.Error("expected FromContext to return the logger stored by WithLogger")
	}
}

func TestFromContext_ReturnsDefaultWhenMissing(t *testing.T) {
	ctx := context.Background()

	got := FromContext(ctx)
	if got == nil {
		t.Fatal("expected FromContext to return a non-nil default logger")
	}
	// Default logger should be at WarnLevel (same as NewLogger)
	if got.GetLevel() != log.WarnLevel {
		t.Errorf("expected default logger at WarnLevel, got %v", got.GetLevel())
	}
}

func TestFromContext_ReturnsStoredLogger_NotDefault(t *testing.T) {
	var buf bytes.Buffer
	custom := NewLogger(&buf)
	Configure(custom, Flags{Verbose: true})

	ctx := WithLogger(context.Background(), custom)
	got := FromContext(ctx)

	if got.GetLevel() != log.DebugLevel {
		t.Errorf("expected stored logger at DebugLevel, got %v", got.GetLevel())
	}
}

func TestConfigure_QuietWinsOverVerbose(t *testing.T) {
	l := NewLogger(&bytes.Buffer{})
	Configure(l, Flags{Verbose: true, Quiet: true})
	if l.GetLevel() != log.ErrorLevel {
		t.Errorf("expected ErrorLevel, got %v", l.GetLevel())
	}
}

func TestConfigure_DaemonLogsInfo(t *testing.T) {
	ctx, buf := NewTestContext(Flags{Daemon: true, NoColor: true})
	FromContext(ctx).Info("reloaded", "files", 3)
	if !bytes.Contains(buf.Bytes(), []byte("reloaded")) {
		t.Errorf("expected info line in daemon mode, got %q", buf.String())
	}
}

func TestConfigure_JSONFormatter(t *testing.T) {
	ctx, buf := NewTestContext(Flags{JSON: true})
	FromContext(ctx).Warn("fetch failed", "provider", "codex")
	if !bytes.Contains(buf.Bytes(), []byte(`"provider":"codex"`)) {
		t.Errorf("expected JSON key/value, got %q", buf.String())
	}
}

func TestComponent_Prefixes(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	Configure(l, Flags{NoColor: true})
	Component(l, "quota").Warn("stale result dropped")
	if !bytes.Contains(buf.Bytes(), []byte("quota")) {
		t.Errorf("expected prefix in output, got %q", buf.String())
	}
}
