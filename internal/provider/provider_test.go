package provider

import (
	"testing"

	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		cred models.Credential
		want Type
	}{
		{"antigravity prefix", models.Credential{Filename: "antigravity-a@b.com.json"}, Antigravity},
		{"codex prefix", models.Credential{Filename: "codex-user.json"}, Codex},
		{"gemini cli prefix", models.Credential{Filename: "gemini-cli-user.json"}, GeminiCLI},
		{"gemini substring", models.Credential{Filename: "my-gemini.json"}, GeminiCLI},
		{"kiro prefix", models.Credential{Filename: "kiro-1.json"}, Kiro},
		{"github copilot prefix", models.Credential{Filename: "github-copilot-octo.json"}, Copilot},
		{"claude prefix", models.Credential{Filename: "claude-me.json"}, Anthropic},
		{"anthropic substring", models.Credential{Filename: "x-anthropic.json"}, Anthropic},
		{"filename is case-insensitive", models.Credential{Filename: "CODEX-A.JSON"}, Codex},
		{"filename wins over provider", models.Credential{Filename: "kiro-a.json", Provider: "codex"}, Kiro},
		{"earlier filename rule wins", models.Credential{Filename: "antigravity-codex@x.com.json"}, Antigravity},
		{"id used when filename empty", models.Credential{ID: "codex-id.json"}, Codex},
		{"provider field fallback", models.Credential{Filename: "token.json", Provider: "Gemini"}, GeminiCLI},
		{"provider github", models.Credential{Filename: "t.json", Provider: "github"}, Copilot},
		{"provider claude", models.Credential{Filename: "t.json", Provider: "claude"}, Anthropic},
		{"unmatched", models.Credential{Filename: "other.json", Provider: "qwen"}, Unknown},
		{"empty credential", models.Credential{}, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.cred); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify_IsTotal(t *testing.T) {
	inputs := []string{"", "-", "json", "a@b.c", "GITHUB", "ko", "\x00", "日本.json"}
	for _, f := range inputs {
		for _, p := range inputs {
			got := Classify(models.Credential{Filename: f, Provider: p})
			valid := got == Unknown
			for _, known := range All {
				if got == known {
					valid = true
				}
			}
			if !valid {
				t.Errorf("Classify(%q, %q) = %d, not an enum member", f, p, got)
			}
		}
	}
}

func TestType_Mappings(t *testing.T) {
	if GeminiCLI.CallbackID() != "gemini" {
		t.Errorf("GeminiCLI.CallbackID() = %q, want gemini", GeminiCLI.CallbackID())
	}
	if Codex.CallbackID() != "codex" {
		t.Errorf("Codex.CallbackID() = %q, want codex", Codex.CallbackID())
	}
	for _, tt := range All {
		want := tt == Copilot || tt == Kiro
		if tt.PremiumOnly() != want {
			t.Errorf("%v.PremiumOnly() = %v, want %v", tt, tt.PremiumOnly(), want)
		}
	}
	if Copilot.WebUI() {
		t.Error("Copilot should not request a webui flow")
	}
	if Unknown.DisplayName() != "Other" {
		t.Errorf("Unknown.DisplayName() = %q, want Other", Unknown.DisplayName())
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"codex", Codex, false},
		{"Claude", Anthropic, false},
		{"gemini", GeminiCLI, false},
		{"github", Copilot, false},
		{"nope", Unknown, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Parse(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
