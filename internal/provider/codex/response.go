package codex

import (
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/flexjson"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

// UsageResponse is the wham/usage payload. Every key has a snake_case and a
// camelCase spelling in the wild.
type UsageResponse struct {
	PlanType                 flexjson.String            `json:"plan_type"`
	PlanTypeCamel            flexjson.String            `json:"planType"`
	RateLimit                flexjson.Value[RateLimits] `json:"rate_limit"`
	RateLimitCamel           flexjson.Value[RateLimits] `json:"rateLimit"`
	FiveHourWindow           flexjson.Value[RateWindow] `json:"5_hour_window"`
	FiveHourWindowCamel      flexjson.Value[RateWindow] `json:"fiveHourWindow"`
	WeeklyWindow             flexjson.Value[RateWindow] `json:"weekly_window"`
	WeeklyWindowCamel        flexjson.Value[RateWindow] `json:"weeklyWindow"`
	CodeReviewRateLimit      flexjson.Value[RateLimits] `json:"code_review_rate_limit"`
	CodeReviewRateLimitCamel flexjson.Value[RateLimits] `json:"codeReviewRateLimit"`
	CodeReviewWindow         flexjson.Value[RateWindow] `json:"code_review_window"`
	CodeReviewWindowCamel    flexjson.Value[RateWindow] `json:"codeReviewWindow"`
}

// RateLimits holds the primary (5-hour) and secondary (weekly) windows.
type RateLimits struct {
	PrimaryWindow        flexjson.Value[RateWindow] `json:"primary_window"`
	PrimaryWindowCamel   flexjson.Value[RateWindow] `json:"primaryWindow"`
	SecondaryWindow      flexjson.Value[RateWindow] `json:"secondary_window"`
	SecondaryWindowCamel flexjson.Value[RateWindow] `json:"secondaryWindow"`
}

// Primary returns whichever primary window key is populated.
func (r RateLimits) Primary() flexjson.Value[RateWindow] {
	return flexjson.First(r.PrimaryWindow, r.PrimaryWindowCamel)
}

// Secondary returns whichever secondary window key is populated.
func (r RateLimits) Secondary() flexjson.Value[RateWindow] {
	return flexjson.First(r.SecondaryWindow, r.SecondaryWindowCamel)
}

// RateWindow is a single limit window. Either used_percent or a
// remaining/total count pair is present.
type RateWindow struct {
	UsedPercent            flexjson.Number `json:"used_percent"`
	UsedPercentCamel       flexjson.Number `json:"usedPercent"`
	RemainingCount         flexjson.Number `json:"remaining_count"`
	RemainingCountCamel    flexjson.Number `json:"remainingCount"`
	TotalCount             flexjson.Number `json:"total_count"`
	TotalCountCamel        flexjson.Number `json:"totalCount"`
	ResetAt                flexjson.Number `json:"reset_at"`
	ResetAtCamel           flexjson.Number `json:"resetAt"`
	ResetAfterSeconds      flexjson.Number `json:"reset_after_seconds"`
	ResetAfterSecondsCamel flexjson.Number `json:"resetAfterSeconds"`
}

// RemainingPercent converts the window to a remaining share.
func (w RateWindow) RemainingPercent() float64 {
	if used := flexjson.FirstNumber(w.UsedPercent, w.UsedPercentCamel); used.Valid {
		return models.ClampPct(100 - used.Value)
	}
	remaining := flexjson.FirstNumber(w.RemainingCount, w.RemainingCountCamel).Or(0)
	total := flexjson.FirstNumber(w.TotalCount, w.TotalCountCamel).Or(1)
	if total < 1 {
		total = 1
	}
	return models.RoundPct(remaining / total * 100)
}

// ResetLabel renders the time until the window resets, or "" when unknown.
func (w RateWindow) ResetLabel(now time.Time) string {
	if at := flexjson.FirstNumber(w.ResetAt, w.ResetAtCamel).Or(0); at > 0 {
		return models.FormatEpochUntil(at, now)
	}
	if after := flexjson.FirstNumber(w.ResetAfterSeconds, w.ResetAfterSecondsCamel).Or(0); after > 0 {
		return models.FormatCountdown(time.Duration(after * float64(time.Second)))
	}
	return ""
}

// Parse normalizes a usage payload, which may arrive as a JSON string
// wrapping the object. Codex windows are reported as limits, which the
// result carries in Models.
func Parse(body []byte) models.QuotaResult {
	return parse(body, time.Now(), defaultPlan)
}

const defaultPlan = "Plus"

func parse(body []byte, now time.Time, fallbackPlan string) models.QuotaResult {
	var resp UsageResponse
	if !flexjson.DecodeObject(flexjson.Unquote(body), &resp) {
		return models.QuotaResult{Models: []models.QuotaModel{}}
	}

	result := models.QuotaResult{
		Plan:   flexjson.FirstString(resp.PlanType, resp.PlanTypeCamel).Or(fallbackPlan),
		Models: []models.QuotaModel{},
	}
	add := func(name string, w flexjson.Value[RateWindow]) {
		window, ok := w.Get()
		if !ok {
			return
		}
		result.Models = append(result.Models, models.QuotaModel{
			Name:       name,
			Percentage: window.RemainingPercent(),
			ResetTime:  window.ResetLabel(now),
		})
	}

	if rl, ok := flexjson.First(resp.RateLimit, resp.RateLimitCamel).Get(); ok {
		add("5-hour limit", rl.Primary())
		add("Weekly limit", rl.Secondary())
	} else {
		add("5-hour limit", flexjson.First(resp.FiveHourWindow, resp.FiveHourWindowCamel))
		add("Weekly limit", flexjson.First(resp.WeeklyWindow, resp.WeeklyWindowCamel))
	}

	if cr, ok := flexjson.First(resp.CodeReviewRateLimit, resp.CodeReviewRateLimitCamel).Get(); ok {
		add("Code review limit", cr.Primary())
	} else {
		add("Code review limit", flexjson.First(resp.CodeReviewWindow, resp.CodeReviewWindowCamel))
	}
	return result
}
