package gemini

import (
	"context"
	"testing"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/apicall"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParse_Buckets(t *testing.T) {
	body := `{"buckets": [
		{"modelId": "gemini-2.5-pro", "remainingFraction": 0.25, "resetTime": "2025-03-01T12:45:00Z"},
		{"model_id": "gemini-2.5-flash", "remaining_fraction": "1"},
		{"remainingFraction": 2},
		"junk"
	]}`
	got := parse([]byte(body), now)

	want := []models.QuotaModel{
		{Name: "gemini-2.5-pro", Percentage: 25, ResetTime: "45m"},
		{Name: "gemini-2.5-flash", Percentage: 100},
		{Name: "Unknown", Percentage: 100},
	}
	if len(got.Models) != len(want) {
		t.Fatalf("Models = %+v", got.Models)
	}
	for i := range want {
		if got.Models[i] != want[i] {
			t.Errorf("Models[%d] = %+v, want %+v", i, got.Models[i], want[i])
		}
	}
}

func TestParse_Robustness(t *testing.T) {
	for _, in := range []string{``, `null`, `{}`, `[]`, `{"buckets": {}}`, `{"buckets": "x"}`, `true`} {
		t.Run(in, func(t *testing.T) {
			got := Parse([]byte(in))
			if got.Models == nil || len(got.Models) != 0 || got.Error != "" {
				t.Errorf("got %+v, want empty result", got)
			}
		})
	}
}

func TestProjectID(t *testing.T) {
	tests := []struct {
		name string
		cred models.Credential
		want string
	}{
		{"top level", models.Credential{Fields: map[string]any{"account": "me@x.com (proj-a)"}}, "proj-a"},
		{"last group wins", models.Credential{Fields: map[string]any{"account": "Me (team) me@x.com (proj-b)"}}, "proj-b"},
		{"metadata", models.Credential{Metadata: map[string]any{"account": "(proj-c)"}}, "proj-c"},
		{"attributes after empty top level", models.Credential{Fields: map[string]any{"account": "no project"}, Attributes: map[string]any{"account": "a (proj-d)"}}, "proj-d"},
		{"non-string", models.Credential{Fields: map[string]any{"account": 42.0}}, ""},
		{"missing", models.Credential{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectID(tt.cred); got != tt.want {
				t.Errorf("ProjectID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	t.Run("missing project", func(t *testing.T) {
		caller := apicall.CallerFunc(func(context.Context, apicall.Request) (*apicall.Result, error) {
			t.Fatal("no request expected")
			return nil, nil
		})
		got := Fetch(context.Background(), caller, "idx", models.Credential{})
		if got.Error != "Project ID not found in file" {
			t.Errorf("Error = %q", got.Error)
		}
	})

	t.Run("posts project", func(t *testing.T) {
		var seen apicall.Request
		caller := apicall.CallerFunc(func(_ context.Context, req apicall.Request) (*apicall.Result, error) {
			seen = req
			return &apicall.Result{StatusCode: 200, Body: []byte(`{"buckets":[{"modelId":"m","remainingFraction":0.5}]}`)}, nil
		})
		cred := models.Credential{Fields: map[string]any{"account": "me@x.com (proj-a)"}}
		got := Fetch(context.Background(), caller, "idx", cred)

		if seen.Method != "POST" || seen.URL != QuotaURL || seen.Data != `{"project":"proj-a"}` {
			t.Errorf("request = %+v", seen)
		}
		if len(got.Models) != 1 || got.Models[0].Percentage != 50 {
			t.Errorf("result = %+v", got)
		}
	})
}
