// Package logging configures the charmbracelet logger shared by the CLI and
// the serve daemon. Core packages never reach for a global: they take the
// logger out of the context.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Logger writes to stderr so log lines never mix with table or JSON output.
var Logger = NewLogger(os.Stderr)

// Flags holds the CLI flags that affect logging behavior.
type Flags struct {
	Verbose bool
	Quiet   bool
	NoColor bool
	JSON    bool
	// Daemon adds timestamps, for long-running serve output.
	Daemon bool
}

// NewLogger creates a WarnLevel logger writing to w.
func NewLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level: log.WarnLevel,
	})
}

// Configure adjusts l for the given flags. Quiet wins over verbose.
func Configure(l *log.Logger, f Flags) {
	switch {
	case f.Quiet:
		l.SetLevel(log.ErrorLevel)
	case f.Verbose:
		l.SetLevel(log.DebugLevel)
	case f.Daemon:
		l.SetLevel(log.InfoLevel)
	default:
		l.SetLevel(log.WarnLevel)
	}

	if f.NoColor {
		l.SetColorProfile(termenv.Ascii)
	}
	if f.JSON {
		l.SetFormatter(log.JSONFormatter)
	}
	if f.Daemon {
		l.SetReportTimestamp(true)
	}
}

// Component returns a child logger whose lines are prefixed with name.
func Component(l *log.Logger, name string) *log.Logger {
	return l.WithPrefix(name)
}
