package display

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/joshuadavidthomas/zerolimit/internal/connect"
	"github.com/joshuadavidthomas/zerolimit/internal/history"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
	"github.com/joshuadavidthomas/zerolimit/internal/quota"
	"github.com/joshuadavidthomas/zerolimit/internal/usage"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func TestRemainingColor(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "green"},
		{50, "green"},
		{49.9, "yellow"},
		{20, "yellow"},
		{19, "red"},
		{0, "red"},
	}
	for _, tt := range tests {
		if got := RemainingColor(tt.pct); got != tt.want {
			t.Errorf("RemainingColor(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		name   string
		pct    float64
		filled int
	}{
		{"empty", 0, 0},
		{"half", 50, 5},
		{"full", 100, 10},
		{"over", 150, 10},
		{"negative", -5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := stripANSI(RenderBar(tt.pct, 10, "green"))
			if n := utf8.RuneCountInString(bar); n != 10 {
				t.Fatalf("bar width = %d, want 10: %q", n, bar)
			}
			if got := strings.Count(bar, "█"); got != tt.filled {
				t.Errorf("filled = %d, want %d", got, tt.filled)
			}
		})
	}
}

func testSections() []quota.Section {
	return []quota.Section{
		{
			Provider:    provider.Codex,
			Key:         "codex",
			DisplayName: "Codex (OpenAI)",
			Files: []quota.FileQuota{
				{
					FileID:   "1",
					Filename: "codex-alice.json",
					Plan:     "plus",
					Email:    "alice@example.com",
					Models: []models.QuotaModel{
						{Name: "Primary", Percentage: 75, ResetTime: "2h 5m"},
						{Name: "Secondary", Percentage: 10, ResetTime: "-"},
					},
				},
				{FileID: "2", Filename: "codex-bob.json", Error: "token expired"},
				{FileID: "3", Filename: "codex-carol.json", Loading: true},
			},
		},
	}
}

func TestRenderSections(t *testing.T) {
	out := stripANSI(RenderSections(testSections(), Options{}))

	for _, want := range []string{
		"Codex (OpenAI) (3)",
		"codex-alice",
		"plus",
		"alice@example.com",
		"Primary",
		"75%",
		"2h 5m",
		"Secondary",
		"10%",
		"token expired",
		"loading…",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, " - ") {
		t.Errorf("placeholder reset label should be hidden:\n%s", out)
	}
}

func TestRenderSections_Masked(t *testing.T) {
	out := stripANSI(RenderSections(testSections(), Options{Masker: privacy.Masker{Enabled: true}}))

	if strings.Contains(out, "alice@example.com") {
		t.Errorf("email should be masked:\n%s", out)
	}
	if strings.Contains(out, "codex-alice") {
		t.Errorf("filename should be masked:\n%s", out)
	}
}

func TestRenderSections_Empty(t *testing.T) {
	out := stripANSI(RenderSections(nil, Options{}))
	if !strings.Contains(out, "No credentials") {
		t.Errorf("got %q", out)
	}
}

func TestRenderSections_PanelsAligned(t *testing.T) {
	out := stripANSI(RenderSections(testSections(), Options{}))
	lines := strings.Split(out, "\n")
	width := utf8.RuneCountInString(lines[0])
	for i, line := range lines {
		if n := utf8.RuneCountInString(line); n != width {
			t.Errorf("line %d width = %d, want %d: %q", i, n, width, line)
		}
	}
}

func TestRenderFiles(t *testing.T) {
	creds := []models.Credential{
		{Filename: "claude-a.json", Provider: "claude", Fields: map[string]any{"email": "a@example.com"}},
		{Filename: "mystery.json", Provider: "something", Fields: map[string]any{"disabled": true}},
	}
	out := stripANSI(RenderFiles(creds, privacy.Masker{}, true))

	for _, want := range []string{"Name", "Provider", "claude-a.json", "Claude (Anthropic)", "a@example.com", "active", "Other", "disabled", "2 credentials"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFiles_Empty(t *testing.T) {
	if out := stripANSI(RenderFiles(nil, privacy.Masker{}, true)); !strings.Contains(out, "No credentials") {
		t.Errorf("got %q", out)
	}
}

func TestRenderConnection(t *testing.T) {
	tests := []struct {
		name    string
		state   connect.State
		want    []string
		notWant []string
	}{
		{
			name:  "waiting",
			state: connect.State{Status: connect.StatusWaiting, URL: "https://auth.example/x"},
			want:  []string{"Codex (OpenAI)", "waiting", "https://auth.example/x"},
		},
		{
			name:  "device code",
			state: connect.State{Status: connect.StatusPolling, URL: "https://github.com/login/device", UserCode: "ABCD-1234"},
			want:  []string{"polling", "ABCD-1234"},
		},
		{
			name:    "success hides url",
			state:   connect.State{Status: connect.StatusSuccess, URL: "https://auth.example/x"},
			want:    []string{"success"},
			notWant: []string{"https://auth.example/x"},
		},
		{
			name:  "error",
			state: connect.State{Status: connect.StatusError, Error: "denied"},
			want:  []string{"error", "denied"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := stripANSI(RenderConnection(provider.Codex, tt.state))
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("missing %q in %q", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("unexpected %q in %q", w, out)
				}
			}
		})
	}
}

func TestRenderLogs(t *testing.T) {
	if out := stripANSI(RenderLogs(nil)); out != "No log lines." {
		t.Errorf("empty = %q", out)
	}
	if out := RenderLogs([]string{"a", "b"}); out != "a\nb" {
		t.Errorf("lines = %q", out)
	}
}

func TestRenderError_AuthHint(t *testing.T) {
	if out := stripANSI(RenderError("management API returned 401")); !strings.Contains(out, "set-server") {
		t.Errorf("expected hint, got %q", out)
	}
	if out := stripANSI(RenderError("connection refused")); strings.Contains(out, "set-server") {
		t.Errorf("unexpected hint in %q", out)
	}
}

func TestRenderChart_NoData(t *testing.T) {
	if out := stripANSI(RenderChart(nil, ChartOptions{})); out != "No data available" {
		t.Errorf("got %q", out)
	}
}

func TestRenderChart_Legend(t *testing.T) {
	samples := []history.Sample{
		{Model: "pro", Percentage: 90},
		{Model: "flash", Percentage: 100},
		{Model: "pro", Percentage: 80},
		{Model: "pro", Percentage: 70},
	}
	out := stripANSI(RenderChart(samples, ChartOptions{Width: 30, Height: 5, Caption: "remaining %"}))

	for _, want := range []string{"■ flash", "■ pro", "remaining %"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGroupSeries(t *testing.T) {
	names, series := groupSeries([]history.Sample{
		{Model: "b", Percentage: 1},
		{Model: "a", Percentage: 2},
		{Model: "b", Percentage: 3},
	})
	if strings.Join(names, ",") != "a,b" {
		t.Fatalf("names = %v", names)
	}
	if len(series[1]) != 2 || series[1][0] != 1 || series[1][1] != 3 {
		t.Errorf("series b = %v", series[1])
	}
}

func TestPadSeries(t *testing.T) {
	got := padSeries([]float64{5, 7}, 4)
	want := []float64{5, 7, 7, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("padSeries = %v, want %v", got, want)
		}
	}
	if got := padSeries([]float64{1, 2, 3}, 2); len(got) != 3 {
		t.Errorf("longer series should be unchanged, got %v", got)
	}
}

func TestOutputYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := OutputYAML(&buf, testSections()[:1]); err != nil {
		t.Fatalf("OutputYAML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"provider: codex", "display_name: Codex (OpenAI)", "file_id: \"1\"", "reset_time: 2h 5m"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := OutputJSON(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "{\n  \"a\": 1\n}\n" {
		t.Errorf("got %q", got)
	}
}

func TestCleanTableOutput(t *testing.T) {
	got := cleanTableOutput("   \n  a  \n\n b\n")
	if got != " a\nb" {
		t.Errorf("got %q", got)
	}
}

func TestRenderUsage(t *testing.T) {
	stats := usage.Stats{
		Totals: usage.Totals{Requests: 1200, Succeeded: 1190, Failed: 10, Tokens: 2_500_000, CachedTokens: 40},
		Models: []usage.ModelStat{
			{Name: "gpt-5", API: "sk******ey", Requests: 1000, Tokens: 2_000_000, Failed: 10},
			{Name: "claude-sonnet", API: "k1", Requests: 200, Tokens: 500_000},
		},
		Grouping: usage.ByDay,
		Trends: []usage.Trend{
			{Period: "2026-10-14", Requests: 700},
			{Period: "2026-10-15", Requests: 500},
		},
		Sources: []string{"claude"},
	}
	out := stripANSI(RenderUsage(stats, UsageOptions{Width: 40, NoColor: true}))

	for _, want := range []string{
		"Usage", "1.2K", "10 failed", "2.50M", "40 cached", "claude",
		"Model", "Requests", "gpt-5", "sk******ey", "2.00M", "claude-sonnet",
		"requests per day, 2026-10-14 to 2026-10-15",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderUsage_SinglePeriod(t *testing.T) {
	stats := usage.Stats{
		Totals: usage.Totals{Requests: 3},
		Trends: []usage.Trend{{Period: "2026-10-15", Requests: 3, Tokens: 90}},
	}
	out := stripANSI(RenderUsage(stats, UsageOptions{NoColor: true}))
	if !strings.Contains(out, "2026-10-15: 3 requests, 90 tokens") {
		t.Errorf("got:\n%s", out)
	}
	if strings.Contains(out, "requests per") {
		t.Errorf("single period should not chart:\n%s", out)
	}
}

func TestRenderUsage_Empty(t *testing.T) {
	out := stripANSI(RenderUsage(usage.Stats{}, UsageOptions{}))
	if !strings.Contains(out, "usage-statistics-enabled") {
		t.Errorf("got %q", out)
	}
}
