package provider

import (
	"strings"

	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

type rule struct {
	t       Type
	prefix  string
	substrs []string
}

// Filename rules run before provider-field rules. Within each list the first
// match wins, so a filename naming two providers resolves to the earlier one.
var filenameRules = []rule{
	{Antigravity, "antigravity-", []string{"antigravity"}},
	{Codex, "codex-", []string{"codex"}},
	{GeminiCLI, "gemini-cli-", []string{"gemini"}},
	{Kiro, "kiro-", []string{"kiro"}},
	{Copilot, "github-copilot-", []string{"copilot"}},
	{Anthropic, "claude-", []string{"claude", "anthropic"}},
}

var providerRules = []rule{
	{Antigravity, "", []string{"antigravity"}},
	{Codex, "", []string{"codex"}},
	{GeminiCLI, "", []string{"gemini"}},
	{Kiro, "", []string{"kiro"}},
	{Copilot, "", []string{"copilot", "github"}},
	{Anthropic, "", []string{"claude", "anthropic"}},
}

// Classify maps a credential to exactly one provider. It is total: any
// credential that matches no rule is Unknown.
func Classify(c models.Credential) Type {
	name := c.Filename
	if name == "" {
		name = c.ID
	}
	if t, ok := match(filenameRules, strings.ToLower(name)); ok {
		return t
	}
	if t, ok := match(providerRules, strings.ToLower(c.Provider)); ok {
		return t
	}
	return Unknown
}

func match(rules []rule, s string) (Type, bool) {
	if s == "" {
		return Unknown, false
	}
	for _, r := range rules {
		if r.prefix != "" && strings.HasPrefix(s, r.prefix) {
			return r.t, true
		}
		for _, sub := range r.substrs {
			if strings.Contains(s, sub) {
				return r.t, true
			}
		}
	}
	return Unknown, false
}
