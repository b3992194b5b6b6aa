package spinner

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Tracker reports progress to a running spinner.
type Tracker struct {
	send func(tea.Msg)
}

// Add starts a spinner line for each task.
func (t *Tracker) Add(tasks ...Task) {
	t.send(addMsg(tasks))
}

// Complete marks a task finished.
func (t *Tracker) Complete(info CompletionInfo) {
	t.send(completionMsg(info))
}

// Run shows a spinner line per task while fetchFn runs and blocks until
// fetchFn returns. Progress is drawn to out so stdout stays clean for piped
// results.
func Run(out io.Writer, fetchFn func(*Tracker)) error {
	p := tea.NewProgram(newModel(nil), tea.WithOutput(out), tea.WithInput(nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		fetchFn(&Tracker{send: p.Send})
		p.Send(doneMsg{})
	}()

	_, err := p.Run()
	<-done
	if err != nil {
		return fmt.Errorf("running spinner: %w", err)
	}
	return nil
}

// completionMsg is sent to the model when a fetch completes.
type completionMsg CompletionInfo

type addMsg []Task

type doneMsg struct{}

type model struct {
	spinner     spinner.Model
	tasks       []Task
	completions map[string]CompletionInfo
	quitting    bool
}

var (
	checkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	crossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func newModel(tasks []Task) model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		spinner:     s,
		tasks:       slices.Clone(tasks),
		completions: make(map[string]CompletionInfo),
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case addMsg:
		for _, t := range msg {
			if !m.hasTask(t.ID) {
				m.tasks = append(m.tasks, t)
			}
		}
		return m, nil

	case completionMsg:
		info := CompletionInfo(msg)

		// Fetches can finish before their task is added; keep the first
		// completion and ignore duplicates.
		if _, done := m.completions[info.ID]; done {
			return m, nil
		}
		m.completions[info.ID] = info
		return m, nil

	case doneMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m model) View() string {
	// When done, return empty; the spinner is transient progress UI
	if m.quitting {
		return ""
	}

	if len(m.tasks) == 0 {
		return m.spinner.View() + " Loading credentials..."
	}

	var b strings.Builder
	for i, t := range m.tasks {
		if i > 0 {
			b.WriteString("\n")
		}

		if c, done := m.completions[t.ID]; done {
			if c.Success {
				b.WriteString(checkStyle.Render("✓"))
			} else {
				b.WriteString(crossStyle.Render("✗"))
			}
			b.WriteString(" ")
			b.WriteString(FormatCompletionText(t.Label, c))
		} else {
			b.WriteString(m.spinner.View())
			b.WriteString(" ")
			b.WriteString(t.Label)
		}
	}

	return b.String()
}

func (m model) hasTask(id string) bool {
	return slices.ContainsFunc(m.tasks, func(t Task) bool { return t.ID == id })
}
