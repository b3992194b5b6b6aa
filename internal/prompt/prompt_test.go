package prompt

import (
	"errors"
	"testing"
)

func TestMockPrompter_Input(t *testing.T) {
	m := &Mock{
		InputFunc: func(cfg InputConfig) (string, error) {
			return "test-value", nil
		},
	}

	result, err := m.Input(InputConfig{Title: "Enter something"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "test-value" {
		t.Errorf("got %q, want %q", result, "test-value")
	}
}

func TestMockPrompter_InputError(t *testing.T) {
	m := &Mock{
		InputFunc: func(cfg InputConfig) (string, error) {
			return "", errors.New("user cancelled")
		},
	}

	_, err := m.Input(InputConfig{Title: "Enter something"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestMockPrompter_Confirm(t *testing.T) {
	m := &Mock{
		ConfirmFunc: func(cfg ConfirmConfig) (bool, error) {
			return true, nil
		},
	}

	result, err := m.Confirm(ConfirmConfig{Title: "Are you sure?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result {
		t.Error("got false, want true")
	}
}

func TestMockPrompter_MultiSelect(t *testing.T) {
	m := &Mock{
		MultiSelectFunc: func(cfg MultiSelectConfig) ([]string, error) {
			return []string{"codex-alice.json", "kiro-bob.json"}, nil
		},
	}

	result, err := m.MultiSelect(MultiSelectConfig{
		Title: "Delete credentials",
		Options: []SelectOption{
			{Label: "codex-alice", Value: "codex-alice.json"},
			{Label: "kiro-bob", Value: "kiro-bob.json"},
			{Label: "claude-carol", Value: "claude-carol.json"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("got %d results, want 2", len(result))
	}
	if result[0] != "codex-alice.json" || result[1] != "kiro-bob.json" {
		t.Errorf("got %v, want [codex-alice.json kiro-bob.json]", result)
	}
}

func TestMockPrompter_Select(t *testing.T) {
	m := &Mock{
		SelectFunc: func(cfg SelectConfig) (string, error) {
			return cfg.Options[1].Value, nil
		},
	}

	result, err := m.Select(SelectConfig{
		Title: "Provider",
		Options: []SelectOption{
			{Label: "Codex (OpenAI)", Value: "codex"},
			{Label: "GitHub Copilot", Value: "copilot"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "copilot" {
		t.Errorf("got %q, want copilot", result)
	}
	if len(m.SelectCalls) != 1 || m.SelectCalls[0].Title != "Provider" {
		t.Errorf("calls = %+v", m.SelectCalls)
	}
}

func TestDefaultPrompter_IsSet(t *testing.T) {
	if Default == nil {
		t.Fatal("Default prompter should not be nil")
	}
}

func TestSetDefault_Restores(t *testing.T) {
	original := Default

	mock := &Mock{}
	SetDefault(mock)
	if Default != mock {
		t.Fatal("SetDefault did not set the mock")
	}

	SetDefault(original)
	if Default != original {
		t.Fatal("SetDefault did not restore original")
	}
}

func TestValidateServerAddress(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"", false},
		{"localhost:8317", false},
		{"https://proxy.example.com", false},
		{"  http://127.0.0.1:8317/v0/management ", false},
		{"ftp://proxy.example.com", true},
		{"http://", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if err := ValidateServerAddress(tt.in); (err != nil) != tt.wantErr {
				t.Errorf("ValidateServerAddress(%q) = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestValidateProjectID(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"", false},
		{"my-project-123", false},
		{"Upper-Case", true},
		{"abc", true},
		{"ends-with-", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if err := ValidateProjectID(tt.in); (err != nil) != tt.wantErr {
				t.Errorf("ValidateProjectID(%q) = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}
