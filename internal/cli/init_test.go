package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/prompt"
)

func TestInteractiveWizard_SavesServer(t *testing.T) {
	buf := setupCLI(t)
	t.Cleanup(reloadConfig)
	srv := newFakeManagement(t)
	srv.withFiles(map[string]any{"name": "codex-bob.json", "provider": "codex"})

	mock := &prompt.Mock{
		InputFunc: func(cfg prompt.InputConfig) (string, error) {
			if strings.Contains(cfg.Title, "address") {
				return srv.srv.URL, nil
			}
			return "wizard-key", nil
		},
		MultiSelectFunc: func(cfg prompt.MultiSelectConfig) ([]string, error) {
			if len(cfg.Options) == 0 {
				t.Error("MultiSelect should have provider options")
			}
			return nil, nil
		},
	}
	usePrompt(t, mock)

	if err := interactiveWizard(context.Background()); err != nil {
		t.Fatalf("interactiveWizard() error: %v", err)
	}

	if len(mock.InputCalls) != 2 {
		t.Errorf("expected 2 Input calls, got %d", len(mock.InputCalls))
	}
	if len(mock.MultiSelectCalls) != 1 {
		t.Fatalf("expected 1 MultiSelect call, got %d", len(mock.MultiSelectCalls))
	}

	// Providers with a stored credential are marked.
	var codexLabel string
	for _, o := range mock.MultiSelectCalls[0].Options {
		if o.Value == "codex" {
			codexLabel = o.Label
		}
	}
	if !strings.HasPrefix(codexLabel, "✓") {
		t.Errorf("codex option should be marked linked, got %q", codexLabel)
	}

	data, err := os.ReadFile(config.ConfigFile())
	if err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if !strings.Contains(string(data), "wizard-key") {
		t.Errorf("key not saved:\n%s", data)
	}

	reqs := srv.requestsTo(http.MethodGet, "/auth-files")
	if len(reqs) == 0 || reqs[0].Header.Get("Authorization") != "Bearer wizard-key" {
		t.Error("wizard should check the server with the new key")
	}

	output := buf.String()
	for _, want := range []string{"Connected to", "1 credentials", "No providers selected"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestInteractiveWizard_Unreachable(t *testing.T) {
	buf := setupCLI(t)
	t.Cleanup(reloadConfig)
	srv := newFakeManagement(t)
	srv.handle("/auth-files", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid management key"}`, http.StatusUnauthorized)
	})

	mock := &prompt.Mock{
		InputFunc: func(cfg prompt.InputConfig) (string, error) {
			if strings.Contains(cfg.Title, "address") {
				return srv.srv.URL, nil
			}
			return "wrong", nil
		},
	}
	usePrompt(t, mock)

	if err := interactiveWizard(context.Background()); err != nil {
		t.Fatalf("interactiveWizard() error: %v", err)
	}
	if len(mock.MultiSelectCalls) != 0 {
		t.Error("providers should not be offered when the server is unreachable")
	}
	if !strings.Contains(buf.String(), "Cannot reach") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestInteractiveWizard_Quiet(t *testing.T) {
	buf := setupCLI(t)
	setFlag(t, &quiet, true)
	mock := &prompt.Mock{}
	usePrompt(t, mock)

	if err := interactiveWizard(context.Background()); err != nil {
		t.Fatalf("interactiveWizard() error: %v", err)
	}
	if len(mock.InputCalls) != 0 {
		t.Error("quiet wizard should not prompt")
	}
	if !strings.Contains(buf.String(), "zerolimit auth") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestQuickSetup(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "reachable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"files":[]}`))
			},
			want: "Link an account",
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusUnauthorized)
			},
			want: "config set-server",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := setupCLI(t)
			srv := newFakeManagement(t)
			srv.handle("/auth-files", tt.handler)
			srv.use(t)

			mock := &prompt.Mock{}
			usePrompt(t, mock)

			if err := quickSetup(context.Background()); err != nil {
				t.Fatalf("quickSetup() error: %v", err)
			}
			if len(mock.InputCalls) != 0 || len(mock.ConfirmCalls) != 0 || len(mock.MultiSelectCalls) != 0 {
				t.Error("quickSetup should not use any prompts")
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestInitCmd_JSON(t *testing.T) {
	buf := setupCLI(t)
	setFlag(t, &jsonOutput, true)
	srv := newFakeManagement(t)
	srv.withFiles(map[string]any{"name": "kiro-a.json"}, map[string]any{"name": "kiro-b.json"})
	srv.use(t)

	if err := runCmd(t, initCmd); err != nil {
		t.Fatalf("init --json error: %v", err)
	}

	var st initStatus
	if err := json.Unmarshal(buf.Bytes(), &st); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if !st.FirstRun {
		t.Error("expected first run with no config file")
	}
	if !st.Reachable || st.Credentials != 2 || !st.KeySet {
		t.Errorf("status = %+v", st)
	}
	if len(st.Providers) != 6 {
		t.Errorf("available providers = %v", st.Providers)
	}
}
