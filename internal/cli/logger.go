package cli

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/joshuadavidthomas/zerolimit/internal/logging"
)

// newConfiguredLogger creates a new logger configured based on CLI flags.
// daemon adds timestamps and info-level output for serve.
func newConfiguredLogger(daemon bool) *log.Logger {
	l := logging.NewLogger(os.Stderr)
	logging.Configure(l, logging.Flags{
		Verbose: verbose,
		Quiet:   quiet,
		NoColor: noColor,
		JSON:    jsonOutput,
		Daemon:  daemon,
	})
	return l
}
