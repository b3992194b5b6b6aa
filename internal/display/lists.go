package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joshuadavidthomas/zerolimit/internal/connect"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
)

// RenderFiles renders the stored credentials as a table.
func RenderFiles(creds []models.Credential, masker privacy.Masker, noColor bool) string {
	if len(creds) == 0 {
		return dimStyle.Render("No credentials stored on the server.")
	}

	rows := make([][]string, 0, len(creds))
	for _, c := range creds {
		p := provider.Classify(c)
		email := c.Email()
		if email == "" {
			email = "-"
		} else {
			email = masker.Email(email)
		}
		status := c.StringField("status")
		if status == "" {
			status = "active"
		}
		if disabled, _ := c.Field("disabled").(bool); disabled {
			status = "disabled"
		}
		rows = append(rows, []string{masker.Folder(c.Name()), p.DisplayName(), email, status})
	}
	return credentialTable(rows, noColor)
}

// RenderConnection renders one provider's OAuth connection state.
func RenderConnection(p provider.Type, st connect.State) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.DisplayName()))
	b.WriteString("  ")
	b.WriteString(statusStyle(st.Status).Render(string(st.Status)))

	if st.URL != "" && st.Status != connect.StatusSuccess {
		b.WriteString("\n  Open: ")
		b.WriteString(st.URL)
	}
	if st.UserCode != "" && st.Status != connect.StatusSuccess {
		b.WriteString("\n  Code: ")
		b.WriteString(titleStyle.Render(st.UserCode))
	}
	if st.Attempt != "" {
		b.WriteString("\n  ")
		b.WriteString(dimStyle.Render(st.Attempt))
	}
	if st.Error != "" {
		b.WriteString("\n  ")
		b.WriteString(redStyle.Render(st.Error))
	}
	return b.String()
}

func statusStyle(s connect.Status) lipgloss.Style {
	switch s {
	case connect.StatusSuccess:
		return greenStyle
	case connect.StatusError:
		return redStyle
	case connect.StatusWaiting, connect.StatusPolling:
		return yellowStyle
	}
	return dimStyle
}

// RenderLogs renders server log lines, or a placeholder when there are none.
func RenderLogs(lines []string) string {
	if len(lines) == 0 {
		return dimStyle.Render("No log lines.")
	}
	return strings.Join(lines, "\n")
}
