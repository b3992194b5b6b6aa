package spinner

// Task is one credential whose quota is being fetched.
type Task struct {
	ID    string
	Label string
}

// CompletionInfo describes a completed quota fetch.
type CompletionInfo struct {
	ID      string
	Success bool
	Error   string
}

// ShouldShow reports whether the spinner should be displayed. It is hidden
// for quiet mode, structured output, or non-TTY (piped) output.
func ShouldShow(quiet, structured, nonTTY bool) bool {
	return !quiet && !structured && !nonTTY
}

// FormatCompletionText formats the text portion of a completion line
// (without symbol).
func FormatCompletionText(label string, info CompletionInfo) string {
	if !info.Success && info.Error != "" {
		return label + " (" + info.Error + ")"
	}
	return label
}
