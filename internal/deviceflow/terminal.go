package deviceflow

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
)

var (
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	bold   = lipgloss.NewStyle().Bold(true)
)

// OpenBrowser tries to open a URL in the default browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("no browser opener for %s", runtime.GOOS)
	}
	return cmd.Start()
}

// WriteCode prints the user code and the page to enter it on.
func WriteCode(w io.Writer, code *Code) {
	_, _ = fmt.Fprintf(w, "Enter code %s at %s\n", bold.Render(code.UserCode), code.VerificationURI)
	_, _ = fmt.Fprintln(w, dim.Render("Waiting for browser authorization..."))
}

// WriteSuccess writes the standard authentication success message.
func WriteSuccess(w io.Writer, filename string) {
	_, _ = fmt.Fprintln(w, green.Render("✓ Authentication successful!")+" "+dim.Render("saved as "+filename))
}

// WriteFailure renders err the way the flow classifies it.
func WriteFailure(w io.Writer, err error) {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrExpired):
		_, _ = fmt.Fprintln(w, yellow.Render("⏱ "+err.Error()))
	default:
		_, _ = fmt.Fprintln(w, red.Render("✗ "+err.Error()))
	}
}
