package usage

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
)

const sample = `{
  "failed_requests": 3,
  "usage": {
    "total_requests": 6,
    "success_count": 4,
    "failure_count": 2,
    "total_tokens": 1500,
    "apis": {
      "sk-alpha-key": {
        "total_requests": 5,
        "total_tokens": 1200,
        "models": {
          "gpt-5": {
            "total_requests": 3,
            "total_tokens": 900,
            "details": [
              {"timestamp": "2026-10-14T09:15:00Z", "source": "codex-a@example.com", "tokens": {"total_tokens": 300, "cached_tokens": 10, "reasoning_tokens": 5}, "failed": false},
              {"timestamp": "2026-10-14T09:45:00Z", "source": "codex-a@example.com", "tokens": {"total_tokens": 300}, "failed": true},
              {"timestamp": "2026-10-15T11:00:00Z", "source": "codex-b@example.com", "tokens": {"total_tokens": "300"}, "failed": false}
            ]
          },
          "claude-sonnet": {
            "total_requests": 2,
            "total_tokens": 300,
            "details": [
              {"timestamp": "not a time", "source": "claude", "tokens": {"total_tokens": 150, "cached_tokens": 20}, "failed": true},
              {"timestamp": "2026-10-15T11:30:00Z", "source": "claude", "tokens": null}
            ]
          }
        }
      },
      "k1": {
        "total_requests": 1,
        "total_tokens": 300,
        "models": {
          "claude-sonnet": {"total_requests": 1, "total_tokens": 300}
        }
      }
    }
  }
}`

func decode(t *testing.T, body string) *Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &resp
}

func TestSummarize(t *testing.T) {
	stats := Summarize(decode(t, sample), ByDay, time.UTC)

	wantTotals := Totals{Requests: 6, Succeeded: 4, Failed: 2, Tokens: 1500, CachedTokens: 30, ReasoningTokens: 5}
	if stats.Totals != wantTotals {
		t.Errorf("totals = %+v, want %+v", stats.Totals, wantTotals)
	}

	wantModels := []ModelStat{
		{Name: "gpt-5", API: "sk-alpha-key", Requests: 3, Tokens: 900, Failed: 1},
		{Name: "claude-sonnet", API: "sk-alpha-key", Requests: 2, Tokens: 300, Failed: 1},
		{Name: "claude-sonnet", API: "k1", Requests: 1, Tokens: 300},
	}
	if !reflect.DeepEqual(stats.Models, wantModels) {
		t.Errorf("models = %+v\nwant %+v", stats.Models, wantModels)
	}

	if len(stats.APIs) != 2 || stats.APIs[0].Name != "sk-alpha-key" || stats.APIs[1].Name != "k1" {
		t.Fatalf("apis = %+v", stats.APIs)
	}
	if got := stats.APIs[0].Models; len(got) != 2 || got[0].Name != "gpt-5" {
		t.Errorf("api models = %+v", got)
	}

	wantTrends := []Trend{
		{Period: "2026-10-14", Requests: 2, Tokens: 600},
		{Period: "2026-10-15", Requests: 2, Tokens: 300},
	}
	if !reflect.DeepEqual(stats.Trends, wantTrends) {
		t.Errorf("trends = %+v, want %+v", stats.Trends, wantTrends)
	}

	wantSources := []string{"claude", "codex-a@example.com", "codex-b@example.com"}
	if !reflect.DeepEqual(stats.Sources, wantSources) {
		t.Errorf("sources = %v, want %v", stats.Sources, wantSources)
	}
}

func TestSummarize_ByHourInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	stats := Summarize(decode(t, sample), ByHour, loc)

	want := []string{"2026-10-14 11:00", "2026-10-15 13:00"}
	var got []string
	for _, tr := range stats.Trends {
		got = append(got, tr.Period)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("periods = %v, want %v", got, want)
	}
	if stats.Trends[0].Requests != 2 {
		t.Errorf("first hour requests = %d, want 2", stats.Trends[0].Requests)
	}
}

func TestSummarize_FailedFallsBackToFailedRequests(t *testing.T) {
	stats := Summarize(decode(t, `{"failed_requests": 7, "usage": {"total_requests": 9}}`), ByDay, time.UTC)
	if stats.Totals.Failed != 7 || stats.Totals.Requests != 9 {
		t.Errorf("totals = %+v", stats.Totals)
	}
}

func TestSummarize_Empty(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
	}{
		{"nil", nil},
		{"no usage", &Response{}},
		{"usage null", decode(t, `{"usage": null}`)},
		{"usage wrong type", decode(t, `{"usage": "off"}`)},
		{"empty usage", decode(t, `{"usage": {}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := Summarize(tt.resp, ByDay, time.UTC)
			if !stats.Empty() {
				t.Errorf("stats not empty: %+v", stats)
			}
			if stats.Models == nil || stats.Trends == nil || stats.APIs == nil || stats.Sources == nil {
				t.Error("nil slices would render as null")
			}
		})
	}
}

func TestParseGrouping(t *testing.T) {
	tests := []struct {
		in      string
		want    Grouping
		wantErr bool
	}{
		{"day", ByDay, false},
		{"hour", ByHour, false},
		{"week", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGrouping(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseGrouping(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestStats_Mask(t *testing.T) {
	stats := Summarize(decode(t, sample), ByDay, time.UTC)

	if got := stats.Mask(privacy.Masker{}); !reflect.DeepEqual(got, stats) {
		t.Error("disabled masker changed stats")
	}

	masked := stats.Mask(privacy.Masker{Enabled: true})
	if masked.APIs[0].Name != "sk******ey" || masked.APIs[1].Name != "k1" {
		t.Errorf("api names = %q, %q", masked.APIs[0].Name, masked.APIs[1].Name)
	}
	if masked.Models[0].API != "sk******ey" || masked.APIs[0].Models[0].API != "sk******ey" {
		t.Errorf("model api not masked: %+v", masked.Models[0])
	}
	if masked.Sources[1] != "co******om" {
		t.Errorf("source = %q", masked.Sources[1])
	}
	if stats.APIs[0].Name != "sk-alpha-key" || stats.Models[0].API != "sk-alpha-key" {
		t.Error("Mask modified the receiver")
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{12345, "12.3K"},
		{1_500_000, "1.50M"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.in); got != tt.want {
			t.Errorf("FormatCount(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
