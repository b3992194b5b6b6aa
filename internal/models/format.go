package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ClampPct clamps a percentage to [0, 100]. NaN clamps to 0.
func ClampPct(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// RoundPct rounds half away from zero and clamps to [0, 100].
func RoundPct(v float64) float64 {
	return ClampPct(math.Round(v))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTime parses the timestamp shapes seen in provider payloads. Zone-less
// layouts are read as UTC.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimeUntil renders the countdown to an absolute timestamp: "-" when it
// cannot be parsed, "Ready" once it has passed, else "Xd Yh", "Xh Ym" or "Xm".
func FormatTimeUntil(raw string, now time.Time) string {
	t, ok := ParseTime(raw)
	if !ok {
		return "-"
	}
	return FormatCountdown(t.Sub(now))
}

// FormatEpochUntil is FormatTimeUntil for numeric epochs. Values below 1e10
// are seconds, larger values milliseconds.
func FormatEpochUntil(epoch float64, now time.Time) string {
	var t time.Time
	if epoch < 1e10 {
		t = time.UnixMilli(int64(epoch * 1000))
	} else {
		t = time.UnixMilli(int64(epoch))
	}
	return FormatCountdown(t.Sub(now))
}

// FormatCountdown renders a remaining duration.
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "Ready"
	}
	total := int64(d / time.Minute)
	days := total / (24 * 60)
	hours := (total % (24 * 60)) / 60
	minutes := total % 60
	switch {
	case days > 0:
		return formatDH(days, hours)
	case hours > 0:
		return formatHM(hours, minutes)
	default:
		return strconv.FormatInt(minutes, 10) + "m"
	}
}

// FormatDayHour renders a remaining duration at hour precision, "Xd Yh" or
// "Yh 0m". Non-positive durations render as "".
func FormatDayHour(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	totalHours := int64(d / time.Hour)
	days := totalHours / 24
	hours := totalHours % 24
	if days > 0 {
		return formatDH(days, hours)
	}
	return formatHM(hours, 0)
}

func formatDH(d, h int64) string {
	return strconv.FormatInt(d, 10) + "d " + strconv.FormatInt(h, 10) + "h"
}
func formatHM(h, m int64) string {
	return strconv.FormatInt(h, 10) + "h " + strconv.FormatInt(m, 10) + "m"
}

// FormatNumber renders a float the way a JSON number would be printed.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
