package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestClampPct(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{42.5, 42.5},
		{100, 100},
		{140, 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampPct(tt.in); got != tt.want {
			t.Errorf("ClampPct(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRoundPct(t *testing.T) {
	if got := RoundPct(41.6); got != 42 {
		t.Errorf("RoundPct(41.6) = %v, want 42", got)
	}
	if got := RoundPct(150.2); got != 100 {
		t.Errorf("RoundPct(150.2) = %v, want 100", got)
	}
}

func TestFormatTimeUntil(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"unparseable", "soon", "-"},
		{"empty", "", "-"},
		{"past", "2025-03-01T11:00:00Z", "Ready"},
		{"exactly now", "2025-03-01T12:00:00Z", "Ready"},
		{"minutes", "2025-03-01T12:45:30Z", "45m"},
		{"hours", "2025-03-01T15:20:00Z", "3h 20m"},
		{"days", "2025-03-03T17:00:00Z", "2d 5h"},
		{"fractional seconds", "2025-03-01T13:00:00.123456Z", "1h 0m"},
		{"offset", "2025-03-01T14:00:00+01:00", "1h 0m"},
		{"zone-less", "2025-03-01T13:30:00", "1h 30m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimeUntil(tt.raw, now); got != tt.want {
				t.Errorf("FormatTimeUntil(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatEpochUntil_SecondsAndMillis(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	if got := FormatEpochUntil(1_700_003_600, now); got != "1h 0m" {
		t.Errorf("seconds epoch = %q, want 1h 0m", got)
	}
	if got := FormatEpochUntil(1_700_003_600_000, now); got != "1h 0m" {
		t.Errorf("millis epoch = %q, want 1h 0m", got)
	}
	if got := FormatEpochUntil(1_600_000_000, now); got != "Ready" {
		t.Errorf("past epoch = %q, want Ready", got)
	}
}

func TestFormatDayHour(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Hour, ""},
		{90 * time.Minute, "1h 0m"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, tt := range tests {
		if got := FormatDayHour(tt.d); got != tt.want {
			t.Errorf("FormatDayHour(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestCredential_Unmarshal(t *testing.T) {
	raw := `{
		"id": "codex-a@b.com.json",
		"name": "codex-a@b.com.json",
		"provider": "codex",
		"auth_index": 3,
		"email": " a@b.com ",
		"metadata": {"account": "a@b.com (proj-1)"},
		"attributes": {"plan_type": "pro"}
	}`
	var c Credential
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if c.Filename != "codex-a@b.com.json" {
		t.Errorf("Filename = %q, want name fallback", c.Filename)
	}
	if c.Provider != "codex" {
		t.Errorf("Provider = %q", c.Provider)
	}
	if got := c.StringField("auth_index"); got != "3" {
		t.Errorf("auth_index = %q, want 3", got)
	}
	if got := c.Email(); got != "a@b.com" {
		t.Errorf("Email() = %q", got)
	}
	if c.Metadata["account"] != "a@b.com (proj-1)" {
		t.Errorf("Metadata not captured: %v", c.Metadata)
	}
	if c.Attributes["plan_type"] != "pro" {
		t.Errorf("Attributes not captured: %v", c.Attributes)
	}
}

func TestCredential_MarshalKeepsUnknownFields(t *testing.T) {
	var c Credential
	if err := json.Unmarshal([]byte(`{"filename":"kiro.json","extra":{"x":1}}`), &c); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-unmarshal failed: %v", err)
	}
	if _, ok := back["extra"]; !ok {
		t.Errorf("extra field dropped: %s", out)
	}
	if back["filename"] != "kiro.json" {
		t.Errorf("filename = %v", back["filename"])
	}
}
