package antigravity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/apicall"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func names(ms []models.QuotaModel) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func TestParse_ExcludesAndMapsNames(t *testing.T) {
	body := `{"models": {
		"chat_x": {"quotaInfo": {"remainingFraction": 0.1}},
		"tab_flash_lite_preview": {},
		"secret": {"isInternal": true},
		"gemini-2.5-flash": {"quotaInfo": {"remainingFraction": 0.42, "resetTime": "2025-03-01T15:30:00Z"}},
		"claude-sonnet": {"displayName": "Claude Sonnet 4.5", "quotaInfo": {"remaining_fraction": "0.76"}}
	}}`

	got := parseModels([]byte(body), now)

	if len(got) != 2 {
		t.Fatalf("models = %v, want 2 entries", names(got))
	}
	if got[0].Name != "Claude Sonnet 4.5" || got[0].Percentage != 76 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Name != "Gemini 2.5 Flash" || got[1].Percentage != 42 || got[1].ResetTime != "3h 30m" {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestParse_MissingFraction(t *testing.T) {
	body := `{"models": {
		"a": {"quotaInfo": {"resetTime": "2025-03-02T12:00:00Z"}},
		"b": {"quotaInfo": {}},
		"c": {"remaining": 0.5}
	}}`
	got := parseModels([]byte(body), now)
	want := map[string]float64{"a": 0, "b": 100, "c": 50}
	if len(got) != 3 {
		t.Fatalf("models = %v", names(got))
	}
	for _, m := range got {
		if m.Percentage != want[m.Name] {
			t.Errorf("%s percentage = %v, want %v", m.Name, m.Percentage, want[m.Name])
		}
	}
	if got[0].ResetTime != "1d 0h" {
		t.Errorf("a reset = %q, want 1d 0h", got[0].ResetTime)
	}
}

func TestParse_UnionsReferencedIDs(t *testing.T) {
	body := `{
		"models": {"gemini-2.5-flash": {"quotaInfo": {"remainingFraction": 0.5}}, "broken": 7},
		"agentModelSorts": [{"groups": [{"modelIds": ["rev19-uic3-1p", "gemini-2.5-flash", 3]}]}, null],
		"commandModelIds": ["chat_hidden", "broken"],
		"tabModelIds": "not-a-list",
		"defaultAgentModelId": "gemini-3-pro-image"
	}`
	got := parseModels([]byte(body), now)

	want := []models.QuotaModel{
		{Name: "Gemini 2.5 Computer Use", Percentage: 100},
		{Name: "Gemini 2.5 Flash", Percentage: 50},
		{Name: "Gemini 3 Pro Image", Percentage: 100},
	}
	if len(got) != len(want) {
		t.Fatalf("models = %v", names(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParse_Robustness(t *testing.T) {
	inputs := []string{``, `null`, `{}`, `[]`, `"x"`, `{"models": []}`, `{"models": {"a": [1]}}`, `{"other": true}`}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got := Parse([]byte(in))
			if got.Models == nil || len(got.Models) != 0 {
				t.Errorf("Models = %+v, want empty", got.Models)
			}
		})
	}
}

func TestParse_StringWrapped(t *testing.T) {
	got := Parse([]byte(`"{\"models\":{\"m\":{\"remainingFraction\":1.7}}}"`))
	if len(got.Models) != 1 || got.Models[0].Percentage != 100 {
		t.Errorf("Models = %+v", got.Models)
	}
}

func TestFetch_FallsThroughEndpoints(t *testing.T) {
	var urls []string
	caller := apicall.CallerFunc(func(_ context.Context, req apicall.Request) (*apicall.Result, error) {
		urls = append(urls, req.URL)
		if req.Data != "{}" || req.Method != "POST" {
			t.Errorf("unexpected request %+v", req)
		}
		switch len(urls) {
		case 1:
			return nil, errors.New("dial tcp: timeout")
		case 2:
			return &apicall.Result{StatusCode: 200, Body: []byte(`{"models":{}}`)}, nil
		}
		return &apicall.Result{StatusCode: 200, Body: []byte(`{"models":{"m":{"remainingFraction":0.3}}}`)}, nil
	})

	got := Fetch(context.Background(), caller, "idx", models.Credential{})

	if len(urls) != 3 || urls[2] != QuotaURLs[2] {
		t.Errorf("urls = %v", urls)
	}
	if got.Error != "" || len(got.Models) != 1 || got.Models[0].Percentage != 30 {
		t.Errorf("result = %+v", got)
	}
}

func TestFetch_LastError(t *testing.T) {
	caller := apicall.CallerFunc(func(context.Context, apicall.Request) (*apicall.Result, error) {
		return &apicall.Result{StatusCode: 403, Body: []byte(`{"error":{"message":"auth required"}}`)}, nil
	})
	got := Fetch(context.Background(), caller, "idx", models.Credential{})
	if got.Error != "Token invalid or expired (403)" {
		t.Errorf("Error = %q", got.Error)
	}
}
