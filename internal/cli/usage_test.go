package cli

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

const usageBody = `{
  "failed_requests": 1,
  "usage": {
    "total_requests": 3,
    "success_count": 2,
    "failure_count": 1,
    "total_tokens": 4500,
    "apis": {
      "sk-alpha-key": {
        "total_requests": 3,
        "total_tokens": 4500,
        "models": {
          "gpt-5": {
            "total_requests": 3,
            "total_tokens": 4500,
            "details": [
              {"timestamp": "2026-10-14T12:00:00Z", "source": "codex-a@example.com", "tokens": {"total_tokens": 1500}},
              {"timestamp": "2026-10-15T12:00:00Z", "source": "codex-a@example.com", "tokens": {"total_tokens": 1500}, "failed": true},
              {"timestamp": "2026-10-15T12:30:00Z", "source": "codex-a@example.com", "tokens": {"total_tokens": 1500}}
            ]
          }
        }
      }
    }
  }
}`

func usageServer(t *testing.T, body string) *fakeManagement {
	t.Helper()
	srv := newFakeManagement(t)
	srv.handleJSON("/usage", json.RawMessage(body))
	srv.use(t)
	return srv
}

func resetUsageFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { _ = usageCmd.Flags().Set("by", "day") })
}

func TestUsage(t *testing.T) {
	tests := []struct {
		name        string
		showPrivate bool
		want        []string
		notWant     []string
	}{
		{
			name:    "masked",
			want:    []string{"gpt-5", "sk******ey", "4.5K", "1 failed", "requests per day"},
			notWant: []string{"sk-alpha-key", "codex-a@example.com"},
		},
		{
			name:        "show private",
			showPrivate: true,
			want:        []string{"sk-alpha-key", "codex-a@example.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := setupCLI(t)
			resetUsageFlags(t)
			srv := usageServer(t, usageBody)
			setFlag(t, &noColor, true)
			setFlag(t, &showPrivate, tt.showPrivate)

			if err := runCmd(t, usageCmd); err != nil {
				t.Fatalf("usage error: %v", err)
			}
			if n := len(srv.requestsTo(http.MethodGet, "/usage")); n != 1 {
				t.Errorf("GET /usage requests = %d, want 1", n)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output contains %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestUsage_JSON(t *testing.T) {
	buf := setupCLI(t)
	resetUsageFlags(t)
	usageServer(t, usageBody)
	setFlag(t, &jsonOutput, true)

	if err := runCmd(t, usageCmd); err != nil {
		t.Fatalf("usage error: %v", err)
	}

	var got struct {
		Totals struct {
			Requests int64 `json:"requests"`
			Failed   int64 `json:"failed"`
		} `json:"totals"`
		Models []struct {
			Name   string `json:"name"`
			API    string `json:"api"`
			Failed int64  `json:"failed"`
		} `json:"models"`
		Grouping string `json:"grouping"`
		Trends   []struct {
			Requests int64 `json:"requests"`
		} `json:"trends"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got.Totals.Requests != 3 || got.Totals.Failed != 1 {
		t.Errorf("totals = %+v", got.Totals)
	}
	if len(got.Models) != 1 || got.Models[0].API != "sk******ey" || got.Models[0].Failed != 1 {
		t.Errorf("models = %+v", got.Models)
	}
	if got.Grouping != "day" || len(got.Trends) != 2 {
		t.Errorf("grouping = %q, trends = %+v", got.Grouping, got.Trends)
	}
}

func TestUsage_YAMLByHour(t *testing.T) {
	buf := setupCLI(t)
	resetUsageFlags(t)
	usageServer(t, usageBody)
	setFlag(t, &yamlOutput, true)

	_ = usageCmd.Flags().Set("by", "hour")
	if err := runCmd(t, usageCmd); err != nil {
		t.Fatalf("usage error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"grouping: hour", "requests: 3", "name: gpt-5"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
}

func TestUsage_Quiet(t *testing.T) {
	buf := setupCLI(t)
	resetUsageFlags(t)
	usageServer(t, usageBody)
	setFlag(t, &quiet, true)

	if err := runCmd(t, usageCmd); err != nil {
		t.Fatalf("usage error: %v", err)
	}
	if got := buf.String(); got != "requests: 3\ntokens: 4500\nfailed: 1\n" {
		t.Errorf("quiet output = %q", got)
	}
}

func TestUsage_Empty(t *testing.T) {
	buf := setupCLI(t)
	resetUsageFlags(t)
	usageServer(t, `{"failed_requests": 0, "usage": {"total_requests": 0, "apis": {}}}`)

	if err := runCmd(t, usageCmd); err != nil {
		t.Fatalf("usage error: %v", err)
	}
	if !strings.Contains(buf.String(), "usage-statistics-enabled") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestUsage_Errors(t *testing.T) {
	t.Run("bad grouping", func(t *testing.T) {
		setupCLI(t)
		resetUsageFlags(t)
		srv := usageServer(t, usageBody)

		_ = usageCmd.Flags().Set("by", "week")
		if err := runCmd(t, usageCmd); err == nil || !strings.Contains(err.Error(), "week") {
			t.Fatalf("err = %v", err)
		}
		if n := len(srv.requestsTo(http.MethodGet, "/usage")); n != 0 {
			t.Errorf("requested usage with invalid flag: %d", n)
		}
	})

	t.Run("server error", func(t *testing.T) {
		setupCLI(t)
		resetUsageFlags(t)
		srv := newFakeManagement(t)
		srv.handle("/usage", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid management key"}`))
		})
		srv.use(t)

		if err := runCmd(t, usageCmd); err == nil || !strings.Contains(err.Error(), "invalid management key") {
			t.Fatalf("err = %v", err)
		}
	})
}
