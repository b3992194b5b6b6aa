package kiro

import (
	"math"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/flexjson"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

// UsageLimitsResponse is the getUsageLimits payload.
type UsageLimitsResponse struct {
	SubscriptionInfo   flexjson.Value[SubscriptionInfo]                 `json:"subscriptionInfo"`
	UserInfo           flexjson.Value[UserInfo]                         `json:"userInfo"`
	UsageBreakdownList flexjson.Value[[]flexjson.Value[UsageBreakdown]] `json:"usageBreakdownList"`
	NextDateReset      flexjson.Number                                  `json:"nextDateReset"`
}

type SubscriptionInfo struct {
	SubscriptionTitle flexjson.String `json:"subscriptionTitle"`
}

type UserInfo struct {
	Email flexjson.String `json:"email"`
}

// UsageBreakdown is one metered resource, optionally with a free trial
// allowance on top of the base limit.
type UsageBreakdown struct {
	ResourceType      flexjson.String               `json:"resourceType"`
	DisplayName       flexjson.String               `json:"displayName"`
	DisplayNamePlural flexjson.String               `json:"displayNamePlural"`
	NextDateReset     flexjson.Number               `json:"nextDateReset"`
	FreeTrialInfo     flexjson.Value[FreeTrialInfo] `json:"freeTrialInfo"`
	Usage
}

type FreeTrialInfo struct {
	FreeTrialStatus flexjson.String `json:"freeTrialStatus"`
	FreeTrialExpiry flexjson.Number `json:"freeTrialExpiry"`
	Usage
}

// Usage is a used/limit pair. The precision variants are preferred.
type Usage struct {
	CurrentUsage              flexjson.Number `json:"currentUsage"`
	CurrentUsageWithPrecision flexjson.Number `json:"currentUsageWithPrecision"`
	UsageLimit                flexjson.Number `json:"usageLimit"`
	UsageLimitWithPrecision   flexjson.Number `json:"usageLimitWithPrecision"`
}

// RemainingPercent returns the rounded remaining share and the limit. The
// share is 0 when there is no limit.
func (u Usage) RemainingPercent() (pct, total float64) {
	used := math.Round(flexjson.FirstNumber(u.CurrentUsageWithPrecision, u.CurrentUsage).Or(0))
	total = math.Round(flexjson.FirstNumber(u.UsageLimitWithPrecision, u.UsageLimit).Or(0))
	if total <= 0 {
		return 0, total
	}
	return models.RoundPct((total - used) / total * 100), total
}

// Parse normalizes a getUsageLimits payload. An object payload always yields
// at least one model.
func Parse(body []byte) models.QuotaResult {
	return parse(body, time.Now())
}

func parse(body []byte, now time.Time) models.QuotaResult {
	var resp UsageLimitsResponse
	if !flexjson.DecodeObject(body, &resp) {
		return models.QuotaResult{Models: []models.QuotaModel{}}
	}

	result := models.QuotaResult{
		Plan:   resp.SubscriptionInfo.Val.SubscriptionTitle.Or("Standard"),
		Email:  resp.UserInfo.Val.Email.Or(""),
		Models: []models.QuotaModel{},
	}

	breakdowns, _ := resp.UsageBreakdownList.Get()
	for _, b := range breakdowns {
		bd, ok := b.Get()
		if !ok {
			continue
		}
		name := flexjson.FirstString(bd.DisplayName, bd.ResourceType).Or("Usage")
		plural := bd.DisplayNamePlural.Or(name + "s")

		reset := bd.NextDateReset.Or(0)
		if reset == 0 {
			reset = resp.NextDateReset.Or(0)
		}

		trial, hasTrial := bd.FreeTrialInfo.Get()
		trialActive := hasTrial && trial.FreeTrialStatus.Or("") == "ACTIVE"
		if trialActive {
			pct, _ := trial.RemainingPercent()
			result.Models = append(result.Models, models.QuotaModel{
				Name:       "Bonus " + plural,
				Percentage: pct,
				ResetTime:  epochDayHour(trial.FreeTrialExpiry.Or(0), now),
			})
		}

		if pct, total := bd.RemainingPercent(); total > 0 {
			label := plural
			if trialActive {
				label = "Base " + plural
			}
			result.Models = append(result.Models, models.QuotaModel{
				Name:       label,
				Percentage: pct,
				ResetTime:  epochDayHour(reset, now),
			})
		}
	}

	if len(result.Models) == 0 {
		result.Models = append(result.Models, models.QuotaModel{Name: "kiro-standard", Percentage: 100})
	}
	return result
}

func epochDayHour(epochSeconds float64, now time.Time) string {
	if epochSeconds == 0 {
		return ""
	}
	at := time.UnixMilli(int64(epochSeconds * 1000))
	return models.FormatDayHour(at.Sub(now))
}
