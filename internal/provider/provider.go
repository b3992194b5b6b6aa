// Package provider defines the closed set of AI providers whose credentials
// the management server stores, and the per-provider facts the quota and
// connection code switch on.
package provider

import (
	"fmt"
	"strings"
)

// Type identifies a provider. The zero value is Unknown.
type Type int

const (
	Unknown Type = iota
	Antigravity
	Codex
	GeminiCLI
	Kiro
	Copilot
	Anthropic
)

// All lists the known providers in display order. Unknown is not included.
var All = []Type{Antigravity, Codex, GeminiCLI, Kiro, Copilot, Anthropic}

// ID returns the stable identifier used by the management API and the CLI.
func (t Type) ID() string {
	switch t {
	case Antigravity:
		return "antigravity"
	case Codex:
		return "codex"
	case GeminiCLI:
		return "gemini-cli"
	case Kiro:
		return "kiro"
	case Copilot:
		return "copilot"
	case Anthropic:
		return "anthropic"
	case Unknown:
		return "unknown"
	}
	return "unknown"
}

func (t Type) String() string { return t.ID() }

// Metadata describes a provider for display.
type Metadata struct {
	ID           string
	Name         string
	Description  string
	DashboardURL string
}

// Meta returns display metadata for t.
func (t Type) Meta() Metadata {
	switch t {
	case Antigravity:
		return Metadata{ID: t.ID(), Name: "Antigravity", Description: "Google Antigravity IDE model quotas", DashboardURL: "https://antigravity.google"}
	case Codex:
		return Metadata{ID: t.ID(), Name: "Codex (OpenAI)", Description: "ChatGPT Codex rate limits", DashboardURL: "https://chatgpt.com/codex/settings/usage"}
	case GeminiCLI:
		return Metadata{ID: t.ID(), Name: "Gemini CLI", Description: "Gemini Code Assist per-model quota buckets", DashboardURL: "https://aistudio.google.com"}
	case Kiro:
		return Metadata{ID: t.ID(), Name: "Kiro (CodeWhisperer)", Description: "AWS Kiro agentic request limits", DashboardURL: "https://kiro.dev"}
	case Copilot:
		return Metadata{ID: t.ID(), Name: "GitHub Copilot", Description: "Copilot chat, completion and premium request quotas", DashboardURL: "https://github.com/settings/copilot"}
	case Anthropic:
		return Metadata{ID: t.ID(), Name: "Claude (Anthropic)", Description: "Claude subscription usage windows", DashboardURL: "https://claude.ai/settings/usage"}
	case Unknown:
		return Metadata{ID: t.ID(), Name: "Other"}
	}
	return Metadata{ID: "unknown", Name: "Other"}
}

// DisplayName returns the human-readable provider name.
func (t Type) DisplayName() string {
	return t.Meta().Name
}

// PremiumOnly reports whether linking this provider requires a "plus" build of
// the management server.
func (t Type) PremiumOnly() bool {
	switch t {
	case Copilot, Kiro:
		return true
	case Antigravity, Codex, GeminiCLI, Anthropic, Unknown:
		return false
	}
	return false
}

// WebUI reports whether the auth-url endpoint should be asked for a browser
// (is_webui) flow rather than a local callback server.
func (t Type) WebUI() bool {
	switch t {
	case Codex, Anthropic, Antigravity, GeminiCLI, Kiro:
		return true
	case Copilot, Unknown:
		return false
	}
	return false
}

// RequiresProjectID reports whether the start request may carry a project id.
func (t Type) RequiresProjectID() bool {
	return t == GeminiCLI
}

// CallbackID is the provider name the /oauth-callback endpoint expects.
func (t Type) CallbackID() string {
	if t == GeminiCLI {
		return "gemini"
	}
	return t.ID()
}

// Parse resolves a provider id or a common alias.
func Parse(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "antigravity":
		return Antigravity, nil
	case "codex", "openai":
		return Codex, nil
	case "gemini-cli", "gemini":
		return GeminiCLI, nil
	case "kiro", "codewhisperer":
		return Kiro, nil
	case "copilot", "github", "github-copilot":
		return Copilot, nil
	case "anthropic", "claude":
		return Anthropic, nil
	}
	return Unknown, fmt.Errorf("unknown provider: %s. Available: %s", s, strings.Join(IDs(), ", "))
}

// IDs returns the ids of All.
func IDs() []string {
	ids := make([]string, len(All))
	for i, t := range All {
		ids[i] = t.ID()
	}
	return ids
}
