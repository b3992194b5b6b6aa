package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joshuadavidthomas/zerolimit/internal/display"
)

// outWriter is the writer used for all command output.
// Tests can replace this to capture output.
var outWriter io.Writer = os.Stdout

// progressWriter receives transient progress UI such as the fetch spinner.
var progressWriter io.Writer = os.Stderr

// out prints formatted output to the configured writer.
func out(format string, a ...any) {
	_, _ = fmt.Fprintf(outWriter, format, a...)
}

// outln prints a line to the configured writer.
func outln(a ...any) {
	_, _ = fmt.Fprintln(outWriter, a...)
}

// structuredOutput reports whether --json or --yaml was requested.
func structuredOutput() bool {
	return jsonOutput || yamlOutput
}

// outputStructured writes data as YAML when --yaml is set, JSON otherwise.
func outputStructured(data any) error {
	if yamlOutput {
		return display.OutputYAML(outWriter, data)
	}
	return display.OutputJSON(outWriter, data)
}

// actionResult is the structured output of commands that change state.
type actionResult struct {
	Success bool     `json:"success" yaml:"success"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
	Files   []string `json:"files,omitempty" yaml:"files,omitempty"`
}
