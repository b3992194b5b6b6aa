package claude

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/flexjson"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

// UsagePeriod is one rolling window. Utilization is the consumed percentage.
type UsagePeriod struct {
	Utilization flexjson.Number `json:"utilization"`
	ResetsAt    flexjson.String `json:"resets_at"`
}

// ExtraUsage is pay-as-you-go overage on top of the subscription windows.
type ExtraUsage struct {
	IsEnabled    flexjson.Bool   `json:"is_enabled"`
	UsedCredits  flexjson.Number `json:"used_credits"`
	MonthlyLimit flexjson.Number `json:"monthly_limit"`
	Utilization  flexjson.Number `json:"utilization"`
}

// OAuthUsageResponse is the /api/oauth/usage payload, or an API error
// envelope when Type is "error".
type OAuthUsageResponse struct {
	Type           flexjson.String             `json:"type"`
	Error          APIError                    `json:"error"`
	FiveHour       flexjson.Value[UsagePeriod] `json:"five_hour"`
	SevenDay       flexjson.Value[UsagePeriod] `json:"seven_day"`
	SevenDaySonnet flexjson.Value[UsagePeriod] `json:"seven_day_sonnet"`
	SevenDayOpus   flexjson.Value[UsagePeriod] `json:"seven_day_opus"`
	ExtraUsage     flexjson.Value[ExtraUsage]  `json:"extra_usage"`
}

// APIError is the error member of an error envelope. Any value other than
// null, false, 0 or "" counts as present; only an object carries a message.
type APIError struct {
	Message string
	Present bool
}

func (e *APIError) UnmarshalJSON(b []byte) error {
	*e = APIError{}
	switch string(bytes.TrimSpace(b)) {
	case "null", "false", "0", `""`:
		return nil
	}
	e.Present = true
	var obj struct {
		Message flexjson.String `json:"message"`
	}
	if json.Unmarshal(b, &obj) == nil {
		e.Message = obj.Message.Or("")
	}
	return nil
}

// Parse normalizes a usage payload. Unlike the other providers, an empty
// result is reported as an error.
func Parse(body []byte) models.QuotaResult {
	return parse(body, time.Now())
}

func parse(body []byte, now time.Time) models.QuotaResult {
	var resp OAuthUsageResponse
	if !flexjson.DecodeObject(body, &resp) {
		return models.Failed("Invalid response format")
	}
	if resp.Type.Or("") == "error" && resp.Error.Present {
		if resp.Error.Message != "" {
			return models.Failed(resp.Error.Message)
		}
		return models.Failed("API Error")
	}

	result := models.QuotaResult{Models: []models.QuotaModel{}}
	for _, w := range []struct {
		name   string
		period flexjson.Value[UsagePeriod]
	}{
		{"five-hour-session", resp.FiveHour},
		{"seven-day-weekly", resp.SevenDay},
		{"seven-day-sonnet", resp.SevenDaySonnet},
		{"seven-day-opus", resp.SevenDayOpus},
	} {
		p, ok := w.period.Get()
		if !ok || !p.Utilization.Valid {
			continue
		}
		m := models.QuotaModel{Name: w.name, Percentage: models.ClampPct(100 - p.Utilization.Value)}
		if at := p.ResetsAt.Or(""); at != "" {
			m.ResetTime = models.FormatTimeUntil(at, now)
		}
		result.Models = append(result.Models, m)
	}

	if extra, ok := resp.ExtraUsage.Get(); ok && bool(extra.IsEnabled) && extra.Utilization.Valid {
		m := models.QuotaModel{Name: "extra-usage", Percentage: models.ClampPct(100 - extra.Utilization.Value)}
		if extra.UsedCredits.Valid && extra.MonthlyLimit.Valid {
			m.DisplayValue = models.FormatNumber(extra.UsedCredits.Value) + " / " + models.FormatNumber(extra.MonthlyLimit.Value)
		}
		result.Models = append(result.Models, m)
	}

	if len(result.Models) == 0 {
		return models.Failed("No quota data found")
	}
	return result
}
